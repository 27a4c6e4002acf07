package service

import (
	"context"
	"errors"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/notification"
)

// NotificationService 站内通知
type NotificationService struct {
	notifications notification.Repository
}

func NewNotificationService(notifications notification.Repository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// ListMine 当前用户全部通知，新的在前
func (s *NotificationService) ListMine(ctx context.Context, userID int64) ([]*notification.Notification, error) {
	return s.notifications.ListByUser(ctx, userID)
}

// MarkRead 标记已读，只能操作自己的通知
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID int64) (*notification.Notification, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			return nil, apperr.NotFound("notification not found")
		}
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.Forbidden("you are not allowed to update this notification")
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	if err := s.notifications.Update(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}
