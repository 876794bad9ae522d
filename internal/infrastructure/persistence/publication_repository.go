package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// PublicationSortFields contains allowed sort fields for publications
var PublicationSortFields = map[string]bool{
	"id":               true,
	"created_at":       true,
	"updated_at":       true,
	"name":             true,
	"website":          true,
	"grade":            true,
	"price":            true,
	"turnaround_days":  true,
	"domain_authority": true,
	"domain_rating":    true,
	"status":           true,
}

// GormPublicationRepository implements publication.Repository using GORM
type GormPublicationRepository struct {
	db *gorm.DB
}

// NewGormPublicationRepository creates a new GormPublicationRepository
func NewGormPublicationRepository(db *gorm.DB) *GormPublicationRepository {
	return &GormPublicationRepository{db: db}
}

// FindByID finds a publication by its ID
func (r *GormPublicationRepository) FindByID(ctx context.Context, id uint64) (*publication.Publication, error) {
	var pub publication.Publication
	if err := r.db.WithContext(ctx).First(&pub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &pub, nil
}

// Create persists a new publication together with any ledger entries the
// aggregate accumulated, in one transaction.
func (r *GormPublicationRepository) Create(ctx context.Context, pub *publication.Publication) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(pub).Error; err != nil {
			return err
		}
		return insertPendingHistory(tx, pub)
	})
	if err != nil {
		return err
	}
	pub.ClearPendingHistory()
	return nil
}

// UpdateWithHistory persists the mutated aggregate and its pending ledger
// entries in one transaction, conditional on the version the caller loaded.
// When another writer got there first the write touches nothing and
// shared.ErrConcurrencyConflict is returned.
func (r *GormPublicationRepository) UpdateWithHistory(ctx context.Context, pub *publication.Publication, expectedVersion int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&publication.Publication{}).
			Where("id = ? AND version = ?", pub.ID, expectedVersion).
			Select("*").
			Omit("id", "created_at").
			Updates(pub)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return insertPendingHistory(tx, pub)
	})
	if err != nil {
		return err
	}
	pub.ClearPendingHistory()
	return nil
}

// FindAll finds publications matching the filter
func (r *GormPublicationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]publication.Publication, error) {
	var pubs []publication.Publication
	query := r.applyFilter(r.db.WithContext(ctx).Model(&publication.Publication{}), filter)

	if err := query.Find(&pubs).Error; err != nil {
		return nil, err
	}
	return pubs, nil
}

// Count counts publications matching the filter
func (r *GormPublicationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyConditions(r.db.WithContext(ctx).Model(&publication.Publication{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts publications in one status
func (r *GormPublicationRepository) CountByStatus(ctx context.Context, status publication.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&publication.Publication{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByWebsite checks whether any publication is registered for the website
func (r *GormPublicationRepository) ExistsByWebsite(ctx context.Context, website string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&publication.Publication{}).
		Where("website = ?", strings.ToLower(website)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyConditions applies search and field filters without pagination
func (r *GormPublicationRepository) applyConditions(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(website) LIKE ?", search, search)
	}

	for field, value := range filter.Filters {
		switch field {
		case "status", "grade", "language", "region", "industry", "submitted_by", "submitted_by_admin", "is_active", "sponsored", "do_follow":
			query = query.Where(field+" = ?", value)
		}
	}

	return query
}

// applyFilter applies conditions, ordering and pagination
func (r *GormPublicationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyConditions(query, filter)

	orderBy := ValidateSortField(filter.OrderBy, PublicationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		if offset < 0 {
			offset = 0
		}
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	return query
}

// insertPendingHistory drains the aggregate's accumulated ledger entries
// into the history table. Entries created before the record had an ID are
// stamped with the now-known publication ID.
func insertPendingHistory(tx *gorm.DB, pub *publication.Publication) error {
	entries := pub.PendingHistory()
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		entries[i].PublicationID = pub.ID
	}
	return tx.Create(&entries).Error
}
