package service

import (
	"context"
	"strconv"
	"strings"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/example/goshop/internal/datamodels/product"
	"github.com/example/goshop/internal/datamodels/search"
)

// 热门搜索词计数用 Redis 有序集合维护
const popularSearchKey = "search:popular"

// SearchService 商品搜索与搜索词统计
type SearchService struct {
	products product.Repository
	searches search.Repository
	redis    radix.Client
	log      *zap.Logger
}

func NewSearchService(products product.Repository, searches search.Repository, redis radix.Client, log *zap.Logger) *SearchService {
	return &SearchService{products: products, searches: searches, redis: redis, log: log}
}

// Search 按关键字搜索商品。登录用户记一条最近搜索，
// 同时累计热门词计数；统计失败不影响搜索结果。
func (s *SearchService) Search(ctx context.Context, userID int64, params product.ListParams) ([]*product.Product, int64, error) {
	if params.PerPage <= 0 {
		params.PerPage = defaultPerPage
	}
	if params.Page <= 0 {
		params.Page = 1
	}
	list, count, err := s.products.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	q := strings.TrimSpace(strings.ToLower(params.Keyword))
	if q != "" {
		if userID > 0 {
			if err := s.searches.CreateRecent(ctx, &search.RecentSearch{UserID: userID, Query: q}); err != nil {
				s.log.Warn("save recent search failed", zap.String("query", q), zap.Error(err))
			}
		}
		if s.redis != nil {
			if err := s.redis.Do(radix.Cmd(nil, "ZINCRBY", popularSearchKey, "1", q)); err != nil {
				s.log.Warn("bump popular search failed", zap.String("query", q), zap.Error(err))
			}
		}
	}
	return list, count, nil
}

// Recent 当前用户最近 N 条搜索词
func (s *SearchService) Recent(ctx context.Context, userID int64, limit int) ([]*search.RecentSearch, error) {
	return s.searches.ListRecentByUser(ctx, userID, limit)
}

// Popular 热门搜索词，按计数倒序
func (s *SearchService) Popular(_ context.Context, limit int) ([]*search.PopularSearch, error) {
	if limit <= 0 {
		limit = 10
	}
	if s.redis == nil {
		return nil, nil
	}
	var raw []string
	err := s.redis.Do(radix.Cmd(&raw, "ZREVRANGE", popularSearchKey, "0", strconv.Itoa(limit-1), "WITHSCORES"))
	if err != nil {
		return nil, err
	}
	list := make([]*search.PopularSearch, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		count, _ := strconv.ParseFloat(raw[i+1], 64)
		list = append(list, &search.PopularSearch{Query: raw[i], Count: int64(count)})
	}
	return list, nil
}
