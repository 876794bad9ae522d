package notification

import (
	"context"
	"time"

	"github.com/pressmarket/backend/internal/domain/notification"
	"github.com/pressmarket/backend/internal/domain/shared"
)

// NotificationResponse is the outward shape of an in-app notification
type NotificationResponse struct {
	ID            uint64     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	Message       string     `json:"message,omitempty"`
	PublicationID *uint64    `json:"publication_id,omitempty"`
	IsRead        bool       `json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Service handles a recipient's view of their notifications
type Service struct {
	repo notification.Repository
}

// NewService creates a new notification service
func NewService(repo notification.Repository) *Service {
	return &Service{repo: repo}
}

// List returns a recipient's notifications, newest first
func (s *Service) List(ctx context.Context, recipientID uint64, filter shared.Filter) ([]NotificationResponse, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, err := s.repo.FindForRecipient(ctx, recipientID, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]NotificationResponse, len(items))
	for i := range items {
		responses[i] = toResponse(&items[i])
	}
	return responses, nil
}

// UnreadCount returns the number of unread notifications for a recipient
func (s *Service) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	return s.repo.CountUnread(ctx, recipientID)
}

// MarkRead flags one notification as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, recipientID, id uint64) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != recipientID {
		return shared.ErrNotFound
	}
	if n.IsRead {
		return nil
	}

	n.MarkRead()
	return s.repo.Save(ctx, n)
}

// MarkAllRead flags all of a recipient's notifications as read
func (s *Service) MarkAllRead(ctx context.Context, recipientID uint64) error {
	return s.repo.MarkAllRead(ctx, recipientID)
}

// Delete removes one notification at the recipient's request. Nothing else
// ever deletes notifications.
func (s *Service) Delete(ctx context.Context, recipientID, id uint64) error {
	return s.repo.Delete(ctx, recipientID, id)
}

func toResponse(n *notification.Notification) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		PublicationID: n.PublicationID,
		IsRead:        n.IsRead,
		ReadAt:        n.ReadAt,
		CreatedAt:     n.CreatedAt,
	}
}
