package notification

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 通知不存在
var ErrNotFound = errors.New("notification not found")

// Notification 站内通知
type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"userId"`
	Type      string    `gorm:"size:32" json:"type"`
	Title     string    `gorm:"size:128" json:"title"`
	Message   string    `gorm:"size:512" json:"message"`
	Read      bool      `gorm:"index" json:"read"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Repository 通知仓储接口
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]*Notification, error)
	Update(ctx context.Context, n *Notification) error
}
