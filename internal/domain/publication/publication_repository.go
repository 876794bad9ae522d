package publication

import (
	"context"

	"github.com/pressmarket/backend/internal/domain/shared"
)

// Repository defines persistence operations for publications.
// Records are only mutated through lifecycle operations; there is no
// physical delete.
type Repository interface {
	// FindByID finds a publication by its ID
	FindByID(ctx context.Context, id uint64) (*Publication, error)

	// Create inserts a new publication together with any pending ledger
	// entries, in a single transaction
	Create(ctx context.Context, pub *Publication) error

	// UpdateWithHistory persists a mutated publication and appends its
	// pending ledger entries in a single transaction. The write is
	// conditional on expectedVersion: when the stored row has moved on,
	// nothing is written and shared.ErrConcurrencyConflict is returned.
	UpdateWithHistory(ctx context.Context, pub *Publication, expectedVersion int) error

	// FindAll finds publications matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Publication, error)

	// Count counts publications matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts publications per status value
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// ExistsByWebsite checks whether an active publication is already
	// registered for the given website
	ExistsByWebsite(ctx context.Context, website string) (bool, error)
}

// HistoryRepository provides read access to the append-only status ledger.
// Writes go through Repository so they share the record's transaction.
type HistoryRepository interface {
	// ListFor returns the ledger entries for a publication, oldest first
	ListFor(ctx context.Context, publicationID uint64) ([]StatusHistoryEntry, error)
}
