package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/example/goshop/internal/datamodels/help"
)

type helpRepo struct {
	db *gorm.DB
}

// NewHelpRepository 创建帮助中心仓储
func NewHelpRepository(db *gorm.DB) help.Repository {
	return &helpRepo{db: db}
}

func (r *helpRepo) ListFaqs(ctx context.Context) ([]*help.Faq, error) {
	var list []*help.Faq
	if err := r.db.WithContext(ctx).Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *helpRepo) CreateTicket(ctx context.Context, t *help.SupportTicket) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *helpRepo) GetTicket(ctx context.Context, id int64) (*help.SupportTicket, error) {
	var t help.SupportTicket
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, help.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *helpRepo) ListTicketsByUser(ctx context.Context, userID int64) ([]*help.SupportTicket, error) {
	var list []*help.SupportTicket
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *helpRepo) UpdateTicket(ctx context.Context, t *help.SupportTicket) error {
	return r.db.WithContext(ctx).Save(t).Error
}
