package publication

import (
	"github.com/pressmarket/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypePublication = "Publication"

// Event type constants
const (
	EventTypePublicationSubmitted = "PublicationSubmitted"
	EventTypePublicationApproved  = "PublicationApproved"
	EventTypePublicationRejected  = "PublicationRejected"
)

// PublicationSubmittedEvent is published when a draft enters the review queue
type PublicationSubmittedEvent struct {
	shared.BaseDomainEvent
	PublicationID uint64  `json:"publication_id"`
	Name          string  `json:"name"`
	Website       string  `json:"website"`
	OwnerUserID   *uint64 `json:"owner_user_id,omitempty"`
}

// NewPublicationSubmittedEvent creates a new PublicationSubmittedEvent
func NewPublicationSubmittedEvent(pub *Publication) *PublicationSubmittedEvent {
	return &PublicationSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePublicationSubmitted, AggregateTypePublication, pub.ID),
		PublicationID:   pub.ID,
		Name:            pub.Name,
		Website:         pub.Website,
		OwnerUserID:     pub.OwnerUserID(),
	}
}

// PublicationApprovedEvent is published when a publication is approved
type PublicationApprovedEvent struct {
	shared.BaseDomainEvent
	PublicationID uint64  `json:"publication_id"`
	Name          string  `json:"name"`
	ApprovedBy    uint64  `json:"approved_by"`
	Comments      string  `json:"comments,omitempty"`
	OwnerUserID   *uint64 `json:"owner_user_id,omitempty"`
}

// NewPublicationApprovedEvent creates a new PublicationApprovedEvent
func NewPublicationApprovedEvent(pub *Publication, comments string) *PublicationApprovedEvent {
	var approvedBy uint64
	if pub.ApprovedBy != nil {
		approvedBy = *pub.ApprovedBy
	}
	return &PublicationApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePublicationApproved, AggregateTypePublication, pub.ID),
		PublicationID:   pub.ID,
		Name:            pub.Name,
		ApprovedBy:      approvedBy,
		Comments:        comments,
		OwnerUserID:     pub.OwnerUserID(),
	}
}

// PublicationRejectedEvent is published when a publication is rejected
type PublicationRejectedEvent struct {
	shared.BaseDomainEvent
	PublicationID uint64  `json:"publication_id"`
	Name          string  `json:"name"`
	RejectedBy    uint64  `json:"rejected_by"`
	Reason        string  `json:"reason"`
	OwnerUserID   *uint64 `json:"owner_user_id,omitempty"`
}

// NewPublicationRejectedEvent creates a new PublicationRejectedEvent
func NewPublicationRejectedEvent(pub *Publication, reason string) *PublicationRejectedEvent {
	var rejectedBy uint64
	if pub.RejectedBy != nil {
		rejectedBy = *pub.RejectedBy
	}
	return &PublicationRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePublicationRejected, AggregateTypePublication, pub.ID),
		PublicationID:   pub.ID,
		Name:            pub.Name,
		RejectedBy:      rejectedBy,
		Reason:          reason,
		OwnerUserID:     pub.OwnerUserID(),
	}
}
