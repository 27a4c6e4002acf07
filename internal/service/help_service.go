package service

import (
	"context"
	"errors"

	"github.com/example/goshop/internal/apperr"
	"github.com/example/goshop/internal/datamodels/help"
)

// HelpService 帮助中心：FAQ 与客服工单
type HelpService struct {
	repo help.Repository
}

func NewHelpService(repo help.Repository) *HelpService {
	return &HelpService{repo: repo}
}

func (s *HelpService) ListFaqs(ctx context.Context) ([]*help.Faq, error) {
	return s.repo.ListFaqs(ctx)
}

// CreateTicket 提交工单，初始状态 open
func (s *HelpService) CreateTicket(ctx context.Context, userID int64, subject, message string) (*help.SupportTicket, error) {
	if subject == "" || message == "" {
		return nil, apperr.Validation("subject and message are required")
	}
	t := &help.SupportTicket{
		UserID:  userID,
		Subject: subject,
		Message: message,
		Status:  help.TicketStatusOpen,
	}
	if err := s.repo.CreateTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListMyTickets 当前用户的工单列表
func (s *HelpService) ListMyTickets(ctx context.Context, userID int64) ([]*help.SupportTicket, error) {
	return s.repo.ListTicketsByUser(ctx, userID)
}

// CloseTicket 关闭工单，本人或管理员可操作
func (s *HelpService) CloseTicket(ctx context.Context, userID int64, isAdmin bool, ticketID int64) (*help.SupportTicket, error) {
	t, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, help.ErrTicketNotFound) {
			return nil, apperr.NotFound("ticket not found")
		}
		return nil, err
	}
	if t.UserID != userID && !isAdmin {
		return nil, apperr.Forbidden("you are not allowed to update this ticket")
	}
	if t.Status == help.TicketStatusClosed {
		return t, nil
	}
	t.Status = help.TicketStatusClosed
	if err := s.repo.UpdateTicket(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}
