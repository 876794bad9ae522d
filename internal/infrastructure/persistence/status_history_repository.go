package persistence

import (
	"context"

	"github.com/pressmarket/backend/internal/domain/publication"
	"gorm.io/gorm"
)

// GormStatusHistoryRepository implements publication.HistoryRepository using GORM
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewGormStatusHistoryRepository creates a new GormStatusHistoryRepository
func NewGormStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// ListFor returns the ledger for one publication in the order the entries
// were written. The ID tiebreak keeps entries written in the same
// millisecond stable.
func (r *GormStatusHistoryRepository) ListFor(ctx context.Context, publicationID uint64) ([]publication.StatusHistoryEntry, error) {
	var entries []publication.StatusHistoryEntry
	if err := r.db.WithContext(ctx).
		Where("publication_id = ?", publicationID).
		Order("changed_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
