package search

import (
	"context"
	"time"
)

// RecentSearch 用户最近搜索记录，热门搜索计数放在 Redis
type RecentSearch struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"userId"`
	Query     string    `gorm:"size:128;not null" json:"query"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// PopularSearch 热门搜索词及其计数，从 Redis 聚合而来
type PopularSearch struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Repository 搜索记录仓储接口
type Repository interface {
	CreateRecent(ctx context.Context, rs *RecentSearch) error
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*RecentSearch, error)
}
