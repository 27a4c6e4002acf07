package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/search"
)

type searchRepo struct {
	db *gorm.DB
}

// NewSearchRepository 创建搜索记录仓储
func NewSearchRepository(db *gorm.DB) search.Repository {
	return &searchRepo{db: db}
}

func (r *searchRepo) CreateRecent(ctx context.Context, rs *search.RecentSearch) error {
	return r.db.WithContext(ctx).Create(rs).Error
}

func (r *searchRepo) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*search.RecentSearch, error) {
	if limit <= 0 {
		limit = 5
	}
	var list []*search.RecentSearch
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
