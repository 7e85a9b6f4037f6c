package notification

import (
	"context"
	"fmt"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

type Service interface {
	List(ctx context.Context, userID string, isRead *bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, isRead *bool, limit, offset int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}

const defaultListLimit = 50

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, userID string, isRead *bool, limit, offset int) ([]domain.Notification, error) {
	if limit < 1 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRecipient(ctx, userID, isRead, limit, offset)
}

// MarkRead flips a notification to read. Someone else's notification reads as
// not found rather than forbidden, so recipients can't probe foreign IDs.
func (s *service) MarkRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}
