package notification

import (
	"context"

	"github.com/pressmarket/backend/internal/domain/shared"
)

// Repository defines persistence operations for notifications
type Repository interface {
	// FindByID finds a notification by its ID
	FindByID(ctx context.Context, id uint64) (*Notification, error)

	// FindForRecipient finds a recipient's notifications, newest first
	FindForRecipient(ctx context.Context, recipientID uint64, filter shared.Filter) ([]Notification, error)

	// CountUnread counts a recipient's unread notifications
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)

	// Save creates or updates a notification
	Save(ctx context.Context, n *Notification) error

	// MarkAllRead flags all of a recipient's notifications as read
	MarkAllRead(ctx context.Context, recipientID uint64) error

	// Delete removes a notification. Deletion is always user-initiated.
	Delete(ctx context.Context, recipientID, id uint64) error
}
