package publication

import (
	"context"
	"fmt"

	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultMaxBatchSize bounds bulk operations when no limit is configured
const DefaultMaxBatchSize = 100

// BulkError describes one failed item in a bulk operation
type BulkError struct {
	ID      uint64 `json:"id,omitempty"`
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// BulkResult aggregates the outcome of a bulk operation. It is ephemeral;
// nothing persists it. Succeeded+Failed always equals the batch length.
type BulkResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []BulkError `json:"errors,omitempty"`
}

func (r *BulkResult) ok() {
	r.Succeeded++
}

func (r *BulkResult) fail(index int, id uint64, err error) {
	r.Failed++
	r.Errors = append(r.Errors, BulkError{ID: id, Index: index, Message: err.Error()})
}

// BulkUpdateItem targets one record in a bulk update
type BulkUpdateItem struct {
	ID     uint64         `json:"id" validate:"required"`
	Fields BulkEditFields `json:"fields"`
}

// BulkStatusChangeRequest applies one status to many records
type BulkStatusChangeRequest struct {
	IDs      []uint64 `json:"ids" validate:"required,min=1"`
	Status   string   `json:"status" validate:"required"`
	Reason   string   `json:"reason"`
	Comments string   `json:"comments"`
}

// BulkService applies an operation to many records with per-item isolation:
// each item runs through the single-record lifecycle service, one failure is
// recorded and the batch moves on. Already-succeeded items are never rolled
// back when later items fail.
type BulkService struct {
	svc          *Service
	maxBatchSize int
	logger       *zap.Logger
}

// NewBulkService creates a new bulk coordinator. A maxBatchSize of zero or
// less falls back to DefaultMaxBatchSize.
func NewBulkService(svc *Service, maxBatchSize int, logger *zap.Logger) *BulkService {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	return &BulkService{
		svc:          svc,
		maxBatchSize: maxBatchSize,
		logger:       logger,
	}
}

// BulkCreate registers many publications. Each payload is validated
// independently; a malformed one fails that item only.
func (s *BulkService) BulkCreate(ctx context.Context, actor publication.Actor, reqs []CreatePublicationRequest) (*BulkResult, error) {
	if err := s.checkBatchSize(len(reqs)); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i, req := range reqs {
		if err := s.runItem(ctx, func() error {
			_, err := s.svc.Create(ctx, actor, req)
			return err
		}); err != nil {
			result.fail(i, 0, err)
			continue
		}
		result.ok()
	}

	s.logResult("bulk create", len(reqs), result)
	return result, nil
}

// BulkUpdate applies allow-listed field edits to many records. Unresolved
// IDs are recorded as not-found failures, never skipped silently.
func (s *BulkService) BulkUpdate(ctx context.Context, actor publication.Actor, items []BulkUpdateItem) (*BulkResult, error) {
	if err := s.checkBatchSize(len(items)); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i, item := range items {
		item := item
		if err := s.runItem(ctx, func() error {
			_, err := s.svc.ApplyBulkEdit(ctx, item.ID, actor, item.Fields)
			return err
		}); err != nil {
			result.fail(i, item.ID, err)
			continue
		}
		result.ok()
	}

	s.logResult("bulk update", len(items), result)
	return result, nil
}

// BulkDelete soft-deletes many records. A nonexistent ID is a failure
// entry, not an abort.
func (s *BulkService) BulkDelete(ctx context.Context, actor publication.Actor, ids []uint64) (*BulkResult, error) {
	if err := s.checkBatchSize(len(ids)); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i, id := range ids {
		id := id
		if err := s.runItem(ctx, func() error {
			return s.svc.SoftDelete(ctx, id, actor)
		}); err != nil {
			result.fail(i, id, err)
			continue
		}
		result.ok()
	}

	s.logResult("bulk delete", len(ids), result)
	return result, nil
}

// BulkStatusChange transitions many records to the requested status. An
// unknown status value is a request-shape error and fails the whole batch
// before any item is processed.
func (s *BulkService) BulkStatusChange(ctx context.Context, actor publication.Actor, req BulkStatusChangeRequest) (*BulkResult, error) {
	target := publication.Status(req.Status)
	if !target.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown status value: "+req.Status)
	}
	if err := s.checkBatchSize(len(req.IDs)); err != nil {
		return nil, err
	}

	result := &BulkResult{}
	for i, id := range req.IDs {
		id := id
		if err := s.runItem(ctx, func() error {
			switch target {
			case publication.StatusApproved:
				_, err := s.svc.Approve(ctx, id, actor.ID, req.Comments)
				return err
			case publication.StatusRejected:
				_, err := s.svc.Reject(ctx, id, actor.ID, req.Reason)
				return err
			default:
				return shared.NewDomainError("INVALID_TRANSITION", "Bulk status change to "+req.Status+" is not allowed")
			}
		}); err != nil {
			result.fail(i, id, err)
			continue
		}
		result.ok()
	}

	s.logResult("bulk status change", len(req.IDs), result)
	return result, nil
}

// checkBatchSize rejects oversized batches before any item is processed
func (s *BulkService) checkBatchSize(n int) error {
	if n > s.maxBatchSize {
		return shared.NewDomainError("BATCH_TOO_LARGE",
			fmt.Sprintf("Batch of %d items exceeds the maximum of %d", n, s.maxBatchSize))
	}
	return nil
}

// runItem executes one item and converts a panic into an error so a single
// bad item can never take the batch down with it.
func (s *BulkService) runItem(ctx context.Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("bulk item panicked", zap.Any("panic", r))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn()
}

func (s *BulkService) logResult(op string, total int, result *BulkResult) {
	s.logger.Info(op+" finished",
		zap.Int("total", total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
}
