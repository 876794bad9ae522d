package publication

import (
	"time"

	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/shopspring/decimal"
)

// CreatePublicationRequest carries the payload for registering a publication
type CreatePublicationRequest struct {
	Name            string           `json:"name" validate:"required,max=200"`
	Website         string           `json:"website" validate:"required,max=255,startswith=http"`
	Grade           string           `json:"grade" validate:"max=10"`
	Price           *decimal.Decimal `json:"price"`
	TurnaroundDays  *int             `json:"turnaround_days" validate:"omitempty,min=0"`
	Language        string           `json:"language" validate:"max=50"`
	Region          string           `json:"region" validate:"max=100"`
	Industry        string           `json:"industry" validate:"max=100"`
	DomainAuthority *int             `json:"domain_authority" validate:"omitempty,min=0,max=100"`
	DomainRating    *int             `json:"domain_rating" validate:"omitempty,min=0,max=100"`
	IndexScore      *int             `json:"index_score" validate:"omitempty,min=0,max=100"`
	WordLimit       *int             `json:"word_limit" validate:"omitempty,min=0"`
	ImageCount      *int             `json:"image_count" validate:"omitempty,min=0"`
	Sponsored       *bool            `json:"sponsored"`
	DoFollow        *bool            `json:"do_follow"`
	LiveOnPlatform  *bool            `json:"live_on_platform"`

	// SaveAsDraft keeps the record out of the review queue until the
	// submitter finishes it
	SaveAsDraft bool `json:"save_as_draft"`
}

// UpdatePublicationRequest carries a partial update. A status value that
// differs from the record's current status is rejected; transitions must go
// through the approve/reject operations.
type UpdatePublicationRequest struct {
	Name            *string          `json:"name" validate:"omitempty,max=200"`
	Website         *string          `json:"website" validate:"omitempty,max=255,startswith=http"`
	Grade           *string          `json:"grade" validate:"omitempty,max=10"`
	Price           *decimal.Decimal `json:"price"`
	TurnaroundDays  *int             `json:"turnaround_days" validate:"omitempty,min=0"`
	Language        *string          `json:"language" validate:"omitempty,max=50"`
	Region          *string          `json:"region" validate:"omitempty,max=100"`
	Industry        *string          `json:"industry" validate:"omitempty,max=100"`
	DomainAuthority *int             `json:"domain_authority" validate:"omitempty,min=0,max=100"`
	DomainRating    *int             `json:"domain_rating" validate:"omitempty,min=0,max=100"`
	IndexScore      *int             `json:"index_score" validate:"omitempty,min=0,max=100"`
	WordLimit       *int             `json:"word_limit" validate:"omitempty,min=0"`
	ImageCount      *int             `json:"image_count" validate:"omitempty,min=0"`
	Sponsored       *bool            `json:"sponsored"`
	DoFollow        *bool            `json:"do_follow"`
	LiveOnPlatform  *bool            `json:"live_on_platform"`
	AdminComments   *string          `json:"admin_comments"`
	Status          *string          `json:"status"`
}

// BulkEditFields is the allow-list of fields a bulk update may touch.
// Name, website, status, and ownership are deliberately absent; the type is
// the contract.
type BulkEditFields struct {
	Price          *decimal.Decimal `json:"price"`
	TurnaroundDays *int             `json:"turnaround_days" validate:"omitempty,min=0"`
	WordLimit      *int             `json:"word_limit" validate:"omitempty,min=0"`
	ImageCount     *int             `json:"image_count" validate:"omitempty,min=0"`
	Sponsored      *bool            `json:"sponsored"`
	DoFollow       *bool            `json:"do_follow"`
}

// PublicationResponse is the outward shape of a publication record
type PublicationResponse struct {
	ID              uint64          `json:"id"`
	Name            string          `json:"name"`
	Website         string          `json:"website"`
	Grade           string          `json:"grade,omitempty"`
	Price           decimal.Decimal `json:"price"`
	TurnaroundDays  int             `json:"turnaround_days"`
	Language        string          `json:"language,omitempty"`
	Region          string          `json:"region,omitempty"`
	Industry        string          `json:"industry,omitempty"`
	DomainAuthority int             `json:"domain_authority"`
	DomainRating    int             `json:"domain_rating"`
	IndexScore      int             `json:"index_score"`
	WordLimit       int             `json:"word_limit"`
	ImageCount      int             `json:"image_count"`
	Sponsored       bool            `json:"sponsored"`
	DoFollow        bool            `json:"do_follow"`
	LiveOnPlatform  bool            `json:"live_on_platform"`

	SubmittedBy      *uint64 `json:"submitted_by,omitempty"`
	SubmittedByAdmin *uint64 `json:"submitted_by_admin,omitempty"`

	Status          string     `json:"status"`
	IsActive        bool       `json:"is_active"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      *uint64    `json:"approved_by,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`
	RejectedBy      *uint64    `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	AdminComments   string     `json:"admin_comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntryResponse is one ledger line in API shape
type HistoryEntryResponse struct {
	Status    string    `json:"status"`
	ChangedBy uint64    `json:"changed_by"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// ListFilter carries listing parameters. Role-based scoping (own records
// only, approved only) is decided by the caller and arrives pre-applied in
// these fields.
type ListFilter struct {
	Page        int
	PageSize    int
	OrderBy     string
	OrderDir    string
	Search      string
	Status      string
	SubmittedBy *uint64
	Industry    string
	Region      string
	ActiveOnly  bool
}

// ToPublicationResponse converts a domain publication to response DTO
func ToPublicationResponse(pub *publication.Publication) PublicationResponse {
	return PublicationResponse{
		ID:               pub.ID,
		Name:             pub.Name,
		Website:          pub.Website,
		Grade:            pub.Grade,
		Price:            pub.Price,
		TurnaroundDays:   pub.TurnaroundDays,
		Language:         pub.Language,
		Region:           pub.Region,
		Industry:         pub.Industry,
		DomainAuthority:  pub.DomainAuthority,
		DomainRating:     pub.DomainRating,
		IndexScore:       pub.IndexScore,
		WordLimit:        pub.WordLimit,
		ImageCount:       pub.ImageCount,
		Sponsored:        pub.Sponsored,
		DoFollow:         pub.DoFollow,
		LiveOnPlatform:   pub.LiveOnPlatform,
		SubmittedBy:      pub.SubmittedBy,
		SubmittedByAdmin: pub.SubmittedByAdmin,
		Status:           string(pub.Status),
		IsActive:         pub.IsActive,
		ApprovedAt:       pub.ApprovedAt,
		ApprovedBy:       pub.ApprovedBy,
		RejectedAt:       pub.RejectedAt,
		RejectedBy:       pub.RejectedBy,
		RejectionReason:  pub.RejectionReason,
		AdminComments:    pub.AdminComments,
		CreatedAt:        pub.CreatedAt,
		UpdatedAt:        pub.UpdatedAt,
	}
}

// ToPublicationResponses converts a slice of domain publications
func ToPublicationResponses(pubs []publication.Publication) []PublicationResponse {
	responses := make([]PublicationResponse, len(pubs))
	for i := range pubs {
		responses[i] = ToPublicationResponse(&pubs[i])
	}
	return responses
}

// ToHistoryResponses converts ledger entries to response DTOs
func ToHistoryResponses(entries []publication.StatusHistoryEntry) []HistoryEntryResponse {
	responses := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = HistoryEntryResponse{
			Status:    string(e.Status),
			ChangedBy: e.ChangedBy,
			Reason:    e.Reason,
			ChangedAt: e.ChangedAt,
		}
	}
	return responses
}
