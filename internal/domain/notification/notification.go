package notification

import (
	"time"

	"github.com/pressmarket/backend/internal/domain/shared"
)

// Type tags the reason a notification was produced
type Type string

const (
	TypePublicationSubmitted Type = "publication_submitted"
	TypePublicationApproved  Type = "publication_approved"
	TypePublicationRejected  Type = "publication_rejected"

	// Advisory types surface a degraded email delivery to operators
	// without failing the transition that triggered it.
	TypeSubmittedEmailFailed Type = "publication_submitted_email_failed"
	TypeApprovedEmailFailed  Type = "publication_approved_email_failed"
	TypeRejectedEmailFailed  Type = "publication_rejected_email_failed"
)

// IsValid checks if the type is a known value
func (t Type) IsValid() bool {
	switch t {
	case TypePublicationSubmitted, TypePublicationApproved, TypePublicationRejected,
		TypeSubmittedEmailFailed, TypeApprovedEmailFailed, TypeRejectedEmailFailed:
		return true
	}
	return false
}

// EmailFailedVariant returns the advisory variant of a primary type, or the
// type itself when called on an advisory type.
func (t Type) EmailFailedVariant() Type {
	switch t {
	case TypePublicationSubmitted:
		return TypeSubmittedEmailFailed
	case TypePublicationApproved:
		return TypeApprovedEmailFailed
	case TypePublicationRejected:
		return TypeRejectedEmailFailed
	}
	return t
}

// Notification is an in-app message for a single recipient. It references a
// publication weakly by ID and only its read flag ever changes.
type Notification struct {
	shared.BaseEntity
	RecipientID   uint64     `gorm:"not null;index"`
	Type          Type       `gorm:"type:varchar(50);not null"`
	Title         string     `gorm:"type:varchar(200);not null"`
	Message       string     `gorm:"type:text"`
	PublicationID *uint64    `gorm:"index"`
	IsRead        bool       `gorm:"not null;default:false;index"`
	ReadAt        *time.Time
}

// TableName returns the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

// New creates a notification for a recipient
func New(recipientID uint64, typ Type, title, message string, publicationID *uint64) (*Notification, error) {
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown notification type")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Notification title cannot be empty")
	}

	return &Notification{
		BaseEntity:    shared.NewBaseEntity(),
		RecipientID:   recipientID,
		Type:          typ,
		Title:         title,
		Message:       message,
		PublicationID: publicationID,
	}, nil
}

// MarkRead flags the notification as read. Idempotent.
func (n *Notification) MarkRead() {
	if n.IsRead {
		return
	}
	now := time.Now()
	n.IsRead = true
	n.ReadAt = &now
	n.UpdatedAt = now
}
