package publication

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var validate = validator.New()

// recordLocks serializes mutations per record ID. Together with the
// conditional write in the repository this guarantees that two concurrent
// transitions on the same record cannot interleave a load-decide-write
// sequence.
type recordLocks struct {
	mu sync.Map // map[uint64]*sync.Mutex
}

func (l *recordLocks) lock(id uint64) func() {
	v, _ := l.mu.LoadOrStore(id, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Service enforces the publication state machine for single records.
// Every status change appends exactly one ledger entry, persisted in the
// same transaction as the record itself.
type Service struct {
	repo     publication.Repository
	history  publication.HistoryRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
	locks    recordLocks
}

// NewService creates a new publication lifecycle service
func NewService(
	repo publication.Repository,
	history publication.HistoryRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:     repo,
		history:  history,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Create registers a new publication for the submitting actor. Unless the
// caller saves it as a draft, the record is submitted into the review queue
// immediately.
func (s *Service) Create(ctx context.Context, actor publication.Actor, req CreatePublicationRequest) (*PublicationResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", err.Error())
	}

	exists, err := s.repo.ExistsByWebsite(ctx, strings.ToLower(req.Website))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "A publication with this website is already registered")
	}

	pub, err := publication.NewPublication(req.Name, req.Website, actor)
	if err != nil {
		return nil, err
	}

	if err := s.applyCreateFields(pub, req); err != nil {
		return nil, err
	}

	if !req.SaveAsDraft {
		if err := pub.Submit(actor, true); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, pub); err != nil {
		return nil, err
	}

	// The submitted event was raised before the insert assigned an ID.
	pub.RefreshEventIDs()
	s.publishEvents(ctx, pub)

	response := ToPublicationResponse(pub)
	return &response, nil
}

// Submit moves an existing draft into the review queue
func (s *Service) Submit(ctx context.Context, id uint64, actor publication.Actor) (*PublicationResponse, error) {
	pub, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		return p.Submit(actor, true)
	})
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// Approve approves a publication. The approval and the matching ledger
// entry are committed as one unit; the notification fan-out runs as a bus
// side effect and can never roll the transition back.
func (s *Service) Approve(ctx context.Context, id, actorID uint64, comments string) (*PublicationResponse, error) {
	pub, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		return p.Approve(actorID, comments)
	})
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// Reject rejects a publication with a mandatory reason
func (s *Service) Reject(ctx context.Context, id, actorID uint64, reason string) (*PublicationResponse, error) {
	pub, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		return p.Reject(actorID, reason)
	})
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// Update applies a partial field update. Status is not writable here: a
// status value that differs from the record's current status fails, so a
// generic update can never smuggle in a transition.
func (s *Service) Update(ctx context.Context, id uint64, actor publication.Actor, req UpdatePublicationRequest) (*PublicationResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", err.Error())
	}

	pub, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		if req.Status != nil {
			requested := publication.Status(*req.Status)
			if !requested.IsValid() {
				return shared.NewDomainError("INVALID_STATUS", "Unknown status value: "+*req.Status)
			}
			if requested != p.Status {
				return shared.NewDomainError("INVALID_TRANSITION", "Status changes must go through the approve or reject operations")
			}
		}
		return s.applyUpdateFields(p, req)
	})
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// ApplyBulkEdit applies the allow-listed bulk-editable fields to one record
func (s *Service) ApplyBulkEdit(ctx context.Context, id uint64, actor publication.Actor, fields BulkEditFields) (*PublicationResponse, error) {
	if err := validate.Struct(fields); err != nil {
		return nil, shared.NewDomainError("VALIDATION_FAILED", err.Error())
	}

	pub, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		if fields.Price != nil || fields.TurnaroundDays != nil {
			price := p.Price
			turnaround := p.TurnaroundDays
			if fields.Price != nil {
				price = *fields.Price
			}
			if fields.TurnaroundDays != nil {
				turnaround = *fields.TurnaroundDays
			}
			if err := p.SetPricing(price, turnaround); err != nil {
				return err
			}
		}
		if fields.WordLimit != nil || fields.ImageCount != nil {
			wordLimit := p.WordLimit
			imageCount := p.ImageCount
			if fields.WordLimit != nil {
				wordLimit = *fields.WordLimit
			}
			if fields.ImageCount != nil {
				imageCount = *fields.ImageCount
			}
			if err := p.SetContentLimits(wordLimit, imageCount); err != nil {
				return err
			}
		}
		if fields.Sponsored != nil || fields.DoFollow != nil {
			sponsored := p.Sponsored
			doFollow := p.DoFollow
			if fields.Sponsored != nil {
				sponsored = *fields.Sponsored
			}
			if fields.DoFollow != nil {
				doFollow = *fields.DoFollow
			}
			p.SetFlags(sponsored, doFollow, p.LiveOnPlatform)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// SoftDelete deactivates a publication. Idempotent: deleting an inactive
// record succeeds without writing anything.
func (s *Service) SoftDelete(ctx context.Context, id uint64, actor publication.Actor) error {
	_, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		p.SoftDelete(actor.ID)
		return nil
	})
	return err
}

// Restore reactivates a soft-deleted publication. Idempotent.
func (s *Service) Restore(ctx context.Context, id uint64, actor publication.Actor) error {
	_, err := s.withRecord(ctx, id, func(p *publication.Publication) error {
		p.Restore(actor.ID)
		return nil
	})
	return err
}

// GetByID retrieves a publication by ID
func (s *Service) GetByID(ctx context.Context, id uint64) (*PublicationResponse, error) {
	pub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	response := ToPublicationResponse(pub)
	return &response, nil
}

// GetHistory returns the status ledger for a publication, oldest first
func (s *Service) GetHistory(ctx context.Context, id uint64) ([]HistoryEntryResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	entries, err := s.history.ListFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToHistoryResponses(entries), nil
}

// List retrieves publications with filtering and pagination. The filter
// arrives already scoped to what the caller may see.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PublicationResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.OrderBy == "" {
		filter.OrderBy = "created_at"
	}
	if filter.OrderDir == "" {
		filter.OrderDir = "desc"
	}

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
		Filters:  make(map[string]interface{}),
	}

	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.SubmittedBy != nil {
		domainFilter.Filters["submitted_by"] = *filter.SubmittedBy
	}
	if filter.Industry != "" {
		domainFilter.Filters["industry"] = filter.Industry
	}
	if filter.Region != "" {
		domainFilter.Filters["region"] = filter.Region
	}
	if filter.ActiveOnly {
		domainFilter.Filters["is_active"] = true
	}

	pubs, err := s.repo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToPublicationResponses(pubs), total, nil
}

// CountByStatus returns publication counts per status
func (s *Service) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	var total int64

	for _, status := range []publication.Status{
		publication.StatusDraft,
		publication.StatusPending,
		publication.StatusApproved,
		publication.StatusRejected,
	} {
		count, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		counts[string(status)] = count
		total += count
	}
	counts["total"] = total

	return counts, nil
}

// withRecord runs a mutation against one record under its lock, then
// persists record and pending ledger entries conditionally on the version
// observed at load. A conflicting concurrent write from another instance is
// retried once against fresh state.
func (s *Service) withRecord(ctx context.Context, id uint64, mutate func(*publication.Publication) error) (*publication.Publication, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		pub, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		expected := pub.GetVersion()
		if err := mutate(pub); err != nil {
			return nil, err
		}
		if pub.GetVersion() == expected {
			// Nothing changed; skip the write entirely.
			return pub, nil
		}

		if err := s.repo.UpdateWithHistory(ctx, pub, expected); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		s.publishEvents(ctx, pub)
		return pub, nil
	}

	return nil, lastErr
}

// publishEvents hands the aggregate's pending events to the bus. Publishing
// is advisory: failures are logged and the operation stays successful.
func (s *Service) publishEvents(ctx context.Context, pub *publication.Publication) {
	if s.eventBus == nil {
		return
	}
	events := pub.GetDomainEvents()
	if len(events) > 0 {
		if err := s.eventBus.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish publication events",
				zap.Uint64("publication_id", pub.ID),
				zap.Error(err),
			)
		}
	}
	pub.ClearDomainEvents()
}

func (s *Service) applyCreateFields(pub *publication.Publication, req CreatePublicationRequest) error {
	if req.Grade != "" {
		if err := pub.SetGrade(req.Grade); err != nil {
			return err
		}
	}
	if req.Price != nil || req.TurnaroundDays != nil {
		price := pub.Price
		turnaround := pub.TurnaroundDays
		if req.Price != nil {
			price = *req.Price
		}
		if req.TurnaroundDays != nil {
			turnaround = *req.TurnaroundDays
		}
		if err := pub.SetPricing(price, turnaround); err != nil {
			return err
		}
	}
	if req.Language != "" || req.Region != "" || req.Industry != "" {
		pub.SetClassification(req.Language, req.Region, req.Industry)
	}
	if req.DomainAuthority != nil || req.DomainRating != nil || req.IndexScore != nil {
		da, dr, idx := pub.DomainAuthority, pub.DomainRating, pub.IndexScore
		if req.DomainAuthority != nil {
			da = *req.DomainAuthority
		}
		if req.DomainRating != nil {
			dr = *req.DomainRating
		}
		if req.IndexScore != nil {
			idx = *req.IndexScore
		}
		if err := pub.SetScores(da, dr, idx); err != nil {
			return err
		}
	}
	if req.WordLimit != nil || req.ImageCount != nil {
		wordLimit, imageCount := pub.WordLimit, pub.ImageCount
		if req.WordLimit != nil {
			wordLimit = *req.WordLimit
		}
		if req.ImageCount != nil {
			imageCount = *req.ImageCount
		}
		if err := pub.SetContentLimits(wordLimit, imageCount); err != nil {
			return err
		}
	}
	if req.Sponsored != nil || req.DoFollow != nil || req.LiveOnPlatform != nil {
		sponsored, doFollow, live := pub.Sponsored, pub.DoFollow, pub.LiveOnPlatform
		if req.Sponsored != nil {
			sponsored = *req.Sponsored
		}
		if req.DoFollow != nil {
			doFollow = *req.DoFollow
		}
		if req.LiveOnPlatform != nil {
			live = *req.LiveOnPlatform
		}
		pub.SetFlags(sponsored, doFollow, live)
	}
	return nil
}

func (s *Service) applyUpdateFields(p *publication.Publication, req UpdatePublicationRequest) error {
	if req.Name != nil || req.Website != nil {
		name := p.Name
		website := p.Website
		if req.Name != nil {
			name = *req.Name
		}
		if req.Website != nil {
			website = *req.Website
		}
		if err := p.UpdateDetails(name, website); err != nil {
			return err
		}
	}
	if req.Grade != nil {
		if err := p.SetGrade(*req.Grade); err != nil {
			return err
		}
	}
	if req.Price != nil || req.TurnaroundDays != nil {
		price := p.Price
		turnaround := p.TurnaroundDays
		if req.Price != nil {
			price = *req.Price
		}
		if req.TurnaroundDays != nil {
			turnaround = *req.TurnaroundDays
		}
		if err := p.SetPricing(price, turnaround); err != nil {
			return err
		}
	}
	if req.Language != nil || req.Region != nil || req.Industry != nil {
		language, region, industry := p.Language, p.Region, p.Industry
		if req.Language != nil {
			language = *req.Language
		}
		if req.Region != nil {
			region = *req.Region
		}
		if req.Industry != nil {
			industry = *req.Industry
		}
		p.SetClassification(language, region, industry)
	}
	if req.DomainAuthority != nil || req.DomainRating != nil || req.IndexScore != nil {
		da, dr, idx := p.DomainAuthority, p.DomainRating, p.IndexScore
		if req.DomainAuthority != nil {
			da = *req.DomainAuthority
		}
		if req.DomainRating != nil {
			dr = *req.DomainRating
		}
		if req.IndexScore != nil {
			idx = *req.IndexScore
		}
		if err := p.SetScores(da, dr, idx); err != nil {
			return err
		}
	}
	if req.WordLimit != nil || req.ImageCount != nil {
		wordLimit, imageCount := p.WordLimit, p.ImageCount
		if req.WordLimit != nil {
			wordLimit = *req.WordLimit
		}
		if req.ImageCount != nil {
			imageCount = *req.ImageCount
		}
		if err := p.SetContentLimits(wordLimit, imageCount); err != nil {
			return err
		}
	}
	if req.Sponsored != nil || req.DoFollow != nil || req.LiveOnPlatform != nil {
		sponsored, doFollow, live := p.Sponsored, p.DoFollow, p.LiveOnPlatform
		if req.Sponsored != nil {
			sponsored = *req.Sponsored
		}
		if req.DoFollow != nil {
			doFollow = *req.DoFollow
		}
		if req.LiveOnPlatform != nil {
			live = *req.LiveOnPlatform
		}
		p.SetFlags(sponsored, doFollow, live)
	}
	if req.AdminComments != nil {
		p.SetAdminComments(*req.AdminComments)
	}
	return nil
}
