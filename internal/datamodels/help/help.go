package help

import (
	"context"
	"errors"
	"time"
)

// ErrTicketNotFound 工单不存在
var ErrTicketNotFound = errors.New("ticket not found")

// 工单状态
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Faq 常见问题
type Faq struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Question string `gorm:"size:255;not null" json:"question"`
	Answer   string `gorm:"size:1024;not null" json:"answer"`
}

// SupportTicket 客服工单
type SupportTicket struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"userId"`
	Subject   string    `gorm:"size:128;not null" json:"subject"`
	Message   string    `gorm:"size:1024;not null" json:"message"`
	Status    string    `gorm:"size:16;index;default:open" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// Repository 帮助中心仓储接口
type Repository interface {
	ListFaqs(ctx context.Context) ([]*Faq, error)
	CreateTicket(ctx context.Context, t *SupportTicket) error
	GetTicket(ctx context.Context, id int64) (*SupportTicket, error)
	ListTicketsByUser(ctx context.Context, userID int64) ([]*SupportTicket, error)
	UpdateTicket(ctx context.Context, t *SupportTicket) error
}
