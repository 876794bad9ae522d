package publication

import (
	"strings"
	"time"

	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the editorial status of a publication
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid checks if the status is a known enum value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s to
// target. Approved and rejected records can be flipped to the other state by
// a re-review, but neither can go back to pending.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDraft:
		return target == StatusPending
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved:
		return target == StatusRejected
	case StatusRejected:
		return target == StatusApproved
	}
	return false
}

// ActorRole identifies which actor class is performing an operation
type ActorRole string

const (
	RoleUser  ActorRole = "user"
	RoleAdmin ActorRole = "admin"
)

// Actor is the already-authenticated caller of a lifecycle operation.
// Verification happens upstream; the domain trusts these values.
type Actor struct {
	ID   uint64
	Role ActorRole
}

// Publication represents a registered outlet/listing in the marketplace.
// It is the aggregate root for the editorial approval workflow.
type Publication struct {
	shared.BaseAggregateRoot
	Name            string          `gorm:"type:varchar(200);not null"`
	Website         string          `gorm:"type:varchar(255);not null;index"`
	Grade           string          `gorm:"type:varchar(10)"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TurnaroundDays  int             `gorm:"not null;default:0"`
	Language        string          `gorm:"type:varchar(50)"`
	Region          string          `gorm:"type:varchar(100)"`
	Industry        string          `gorm:"type:varchar(100)"`
	DomainAuthority int             `gorm:"not null;default:0"`
	DomainRating    int             `gorm:"not null;default:0"`
	IndexScore      int             `gorm:"not null;default:0"`
	WordLimit       int             `gorm:"not null;default:0"`
	ImageCount      int             `gorm:"not null;default:0"`
	Sponsored       bool            `gorm:"not null;default:false"`
	DoFollow        bool            `gorm:"not null;default:false"`
	LiveOnPlatform  bool            `gorm:"not null;default:false"`

	SubmittedBy      *uint64 `gorm:"index"`
	SubmittedByAdmin *uint64 `gorm:"index"`

	Status          Status     `gorm:"type:varchar(20);not null;default:'draft';index"`
	IsActive        bool       `gorm:"not null;default:true;index"`
	ApprovedAt      *time.Time
	ApprovedBy      *uint64
	RejectedAt      *time.Time
	RejectedBy      *uint64
	RejectionReason string     `gorm:"type:text"`
	AdminComments   string     `gorm:"type:text"`

	pendingHistory []StatusHistoryEntry `gorm:"-"`
}

// TableName returns the table name for GORM
func (Publication) TableName() string {
	return "publications"
}

// NewPublication creates a new publication owned by the submitting actor.
// Exactly one of the user/admin ownership references is set, based on the
// actor's role. New records start in draft.
func NewPublication(name, website string, submitter Actor) (*Publication, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateWebsite(website); err != nil {
		return nil, err
	}

	pub := &Publication{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Website:           strings.ToLower(website),
		Price:             decimal.Zero,
		Status:            StatusDraft,
		IsActive:          true,
	}

	actorID := submitter.ID
	if submitter.Role == RoleAdmin {
		pub.SubmittedByAdmin = &actorID
	} else {
		pub.SubmittedBy = &actorID
	}

	return pub, nil
}

// Submit moves a draft into the pending review queue. When the submitter
// flags the record as incomplete it stays in draft and nothing is recorded.
func (p *Publication) Submit(actor Actor, complete bool) error {
	if p.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Only draft publications can be submitted")
	}
	if !complete {
		return nil
	}

	p.transition(StatusPending, actor.ID, "")
	p.AddDomainEvent(NewPublicationSubmittedEvent(p))

	return nil
}

// Approve marks the publication as approved by the given admin. Rejection
// fields are cleared so that at most one of the approval/rejection field
// sets is populated.
func (p *Publication) Approve(actorID uint64, comments string) error {
	if p.Status == StatusApproved {
		return shared.NewDomainError("ALREADY_APPROVED", "Publication is already approved")
	}
	if !p.Status.CanTransitionTo(StatusApproved) {
		return shared.NewDomainError("INVALID_TRANSITION", "Publication cannot be approved from status "+string(p.Status))
	}

	now := time.Now()
	p.transition(StatusApproved, actorID, "")
	p.ApprovedAt = &now
	p.ApprovedBy = &actorID
	p.RejectedAt = nil
	p.RejectedBy = nil
	p.RejectionReason = ""
	if comments != "" {
		p.AdminComments = comments
	}

	p.AddDomainEvent(NewPublicationApprovedEvent(p, comments))

	return nil
}

// Reject marks the publication as rejected with a mandatory reason.
// Approval fields are cleared so the exclusivity invariant holds.
func (p *Publication) Reject(actorID uint64, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason cannot be empty")
	}
	if p.Status == StatusRejected {
		return shared.NewDomainError("ALREADY_REJECTED", "Publication is already rejected")
	}
	if !p.Status.CanTransitionTo(StatusRejected) {
		return shared.NewDomainError("INVALID_TRANSITION", "Publication cannot be rejected from status "+string(p.Status))
	}

	now := time.Now()
	p.transition(StatusRejected, actorID, reason)
	p.RejectedAt = &now
	p.RejectedBy = &actorID
	p.RejectionReason = reason
	p.ApprovedAt = nil
	p.ApprovedBy = nil

	p.AddDomainEvent(NewPublicationRejectedEvent(p, reason))

	return nil
}

// UpdateDetails updates the publication's name and website
func (p *Publication) UpdateDetails(name, website string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := validateWebsite(website); err != nil {
		return err
	}

	p.Name = name
	p.Website = strings.ToLower(website)
	p.touch()

	return nil
}

// SetGrade sets the listing grade
func (p *Publication) SetGrade(grade string) error {
	if len(grade) > 10 {
		return shared.NewDomainError("INVALID_GRADE", "Grade cannot exceed 10 characters")
	}
	p.Grade = grade
	p.touch()
	return nil
}

// SetPricing sets the price and turnaround time
func (p *Publication) SetPricing(price decimal.Decimal, turnaroundDays int) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if turnaroundDays < 0 {
		return shared.NewDomainError("INVALID_TURNAROUND", "Turnaround days cannot be negative")
	}

	p.Price = price
	p.TurnaroundDays = turnaroundDays
	p.touch()

	return nil
}

// SetClassification sets the language, region, and industry attributes
func (p *Publication) SetClassification(language, region, industry string) {
	p.Language = language
	p.Region = region
	p.Industry = industry
	p.touch()
}

// SetScores sets the numeric authority scores. All three are 0-100 scales.
func (p *Publication) SetScores(domainAuthority, domainRating, indexScore int) error {
	for _, v := range []int{domainAuthority, domainRating, indexScore} {
		if v < 0 || v > 100 {
			return shared.NewDomainError("INVALID_SCORE", "Scores must be between 0 and 100")
		}
	}

	p.DomainAuthority = domainAuthority
	p.DomainRating = domainRating
	p.IndexScore = indexScore
	p.touch()

	return nil
}

// SetContentLimits sets the word limit and image count constraints
func (p *Publication) SetContentLimits(wordLimit, imageCount int) error {
	if wordLimit < 0 || imageCount < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Content limits cannot be negative")
	}

	p.WordLimit = wordLimit
	p.ImageCount = imageCount
	p.touch()

	return nil
}

// SetFlags sets the boolean listing flags
func (p *Publication) SetFlags(sponsored, doFollow, liveOnPlatform bool) {
	p.Sponsored = sponsored
	p.DoFollow = doFollow
	p.LiveOnPlatform = liveOnPlatform
	p.touch()
}

// SetAdminComments replaces the editorial comments
func (p *Publication) SetAdminComments(comments string) {
	p.AdminComments = comments
	p.touch()
}

// SoftDelete deactivates the publication. The record is never physically
// deleted; status is untouched. Deleting an already-inactive record is a
// no-op success.
func (p *Publication) SoftDelete(actorID uint64) {
	if !p.IsActive {
		return
	}
	p.IsActive = false
	p.touch()
}

// Restore reactivates a soft-deleted publication. Idempotent.
func (p *Publication) Restore(actorID uint64) {
	if p.IsActive {
		return
	}
	p.IsActive = true
	p.touch()
}

// OwnerUserID returns the submitting user's ID, or nil when the record was
// registered by an admin on someone's behalf.
func (p *Publication) OwnerUserID() *uint64 {
	return p.SubmittedBy
}

// IsApproved returns true if the publication is approved
func (p *Publication) IsApproved() bool {
	return p.Status == StatusApproved
}

// IsRejected returns true if the publication is rejected
func (p *Publication) IsRejected() bool {
	return p.Status == StatusRejected
}

// PendingHistory returns ledger entries produced by transitions since the
// aggregate was loaded. They are persisted together with the record itself.
func (p *Publication) PendingHistory() []StatusHistoryEntry {
	return p.pendingHistory
}

// ClearPendingHistory clears the pending ledger entries after persistence
func (p *Publication) ClearPendingHistory() {
	p.pendingHistory = nil
}

// RefreshEventIDs restamps pending events with the record's persisted ID.
// Events raised before the first insert carry a zero ID until the store
// assigns one, same as pending ledger entries.
func (p *Publication) RefreshEventIDs() {
	for _, ev := range p.GetDomainEvents() {
		switch e := ev.(type) {
		case *PublicationSubmittedEvent:
			e.AggID = p.ID
			e.PublicationID = p.ID
		case *PublicationApprovedEvent:
			e.AggID = p.ID
			e.PublicationID = p.ID
		case *PublicationRejectedEvent:
			e.AggID = p.ID
			e.PublicationID = p.ID
		}
	}
}

// transition applies a status change and records a matching ledger entry.
// Guards run in the calling operation; by this point the move is legal.
func (p *Publication) transition(target Status, actorID uint64, reason string) {
	p.Status = target
	p.touch()
	p.pendingHistory = append(p.pendingHistory, StatusHistoryEntry{
		PublicationID: p.ID,
		Status:        target,
		ChangedBy:     actorID,
		Reason:        reason,
		ChangedAt:     time.Now(),
	})
}

func (p *Publication) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// validateName validates the publication name
func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Publication name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Publication name cannot exceed 200 characters")
	}
	return nil
}

// validateWebsite validates the website URL
func validateWebsite(website string) error {
	if website == "" {
		return shared.NewDomainError("INVALID_WEBSITE", "Website cannot be empty")
	}
	if len(website) > 255 {
		return shared.NewDomainError("INVALID_WEBSITE", "Website cannot exceed 255 characters")
	}
	if !strings.HasPrefix(website, "http://") && !strings.HasPrefix(website, "https://") {
		return shared.NewDomainError("INVALID_WEBSITE", "Website must start with http:// or https://")
	}
	return nil
}
