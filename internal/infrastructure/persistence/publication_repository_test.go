package persistence

import (
	"context"
	"testing"

	"github.com/pressmarket/backend/internal/domain/publication"
	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPublicationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&publication.Publication{}, &publication.StatusHistoryEntry{})
	require.NoError(t, err)

	return db
}

func submittedPublication(t *testing.T, name, website string) *publication.Publication {
	t.Helper()
	actor := publication.Actor{ID: 7, Role: publication.RoleUser}
	pub, err := publication.NewPublication(name, website, actor)
	require.NoError(t, err)
	require.NoError(t, pub.Submit(actor, true))
	return pub
}

func TestGormPublicationRepository_CreatePersistsLedger(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	history := NewGormStatusHistoryRepository(db)
	ctx := context.Background()

	pub := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.Len(t, pub.PendingHistory(), 1)

	require.NoError(t, repo.Create(ctx, pub))

	assert.NotZero(t, pub.ID)
	assert.Empty(t, pub.PendingHistory(), "ledger entries must be drained on persist")

	entries, err := history.ListFor(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pub.ID, entries[0].PublicationID)
	assert.Equal(t, publication.StatusPending, entries[0].Status)
	assert.Equal(t, uint64(7), entries[0].ChangedBy)
}

func TestGormPublicationRepository_FindByID_NotFound(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)

	_, err := repo.FindByID(context.Background(), 12345)

	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormPublicationRepository_UpdateWithHistory(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	history := NewGormStatusHistoryRepository(db)
	ctx := context.Background()

	pub := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.NoError(t, repo.Create(ctx, pub))

	loaded, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	expected := loaded.GetVersion()
	require.NoError(t, loaded.Approve(42, "looks good"))

	require.NoError(t, repo.UpdateWithHistory(ctx, loaded, expected))

	reloaded, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, publication.StatusApproved, reloaded.Status)
	assert.Equal(t, expected+1, reloaded.GetVersion())
	require.NotNil(t, reloaded.ApprovedBy)
	assert.Equal(t, uint64(42), *reloaded.ApprovedBy)

	entries, err := history.ListFor(ctx, pub.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, publication.StatusPending, entries[0].Status)
	assert.Equal(t, publication.StatusApproved, entries[1].Status)
}

func TestGormPublicationRepository_UpdateWithHistory_StaleVersion(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	history := NewGormStatusHistoryRepository(db)
	ctx := context.Background()

	pub := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.NoError(t, repo.Create(ctx, pub))

	// Two loads of the same record; the second writer must lose.
	first, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)

	expected := first.GetVersion()
	require.NoError(t, first.Approve(42, ""))
	require.NoError(t, repo.UpdateWithHistory(ctx, first, expected))

	staleExpected := second.GetVersion()
	require.NoError(t, second.Reject(43, "duplicate review"))
	err = repo.UpdateWithHistory(ctx, second, staleExpected)

	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The losing write must leave neither the record nor the ledger touched.
	reloaded, err := repo.FindByID(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, publication.StatusApproved, reloaded.Status)

	entries, err := history.ListFor(ctx, pub.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGormPublicationRepository_FindAllWithFilters(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	ctx := context.Background()

	first := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.NoError(t, first.Approve(42, ""))
	require.NoError(t, repo.Create(ctx, first))

	second := submittedPublication(t, "Green Gazette", "https://gazette.example.com")
	require.NoError(t, repo.Create(ctx, second))

	third := submittedPublication(t, "Tech Weekly", "https://techweekly.example.com")
	require.NoError(t, third.Approve(42, ""))
	third.SoftDelete(7)
	require.NoError(t, repo.Create(ctx, third))

	t.Run("filters by status", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["status"] = "approved"

		pubs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, pubs, 2)
	})

	t.Run("filters by status and active flag", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["status"] = "approved"
		filter.Filters["is_active"] = true

		pubs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, pubs, 1)
		assert.Equal(t, "Tech Daily", pubs[0].Name)
	})

	t.Run("searches by name", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Search = "tech"

		pubs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, pubs, 2)
	})

	t.Run("unknown filter keys are ignored", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["version; DROP TABLE publications"] = 1

		pubs, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, pubs, 3)
	})

	t.Run("paginates", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2
		filter.OrderBy = "name"
		filter.OrderDir = "asc"

		page1, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, "Green Gazette", page1[0].Name)

		filter.Page = 2
		page2, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, page2, 1)

		total, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
	})
}

func TestGormPublicationRepository_CountByStatus(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	ctx := context.Background()

	pending := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.NoError(t, repo.Create(ctx, pending))

	approved := submittedPublication(t, "Green Gazette", "https://gazette.example.com")
	require.NoError(t, approved.Approve(42, ""))
	require.NoError(t, repo.Create(ctx, approved))

	count, err := repo.CountByStatus(ctx, publication.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountByStatus(ctx, publication.StatusDraft)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestGormPublicationRepository_ExistsByWebsite(t *testing.T) {
	db := setupPublicationTestDB(t)
	repo := NewGormPublicationRepository(db)
	ctx := context.Background()

	pub := submittedPublication(t, "Tech Daily", "https://techdaily.example.com")
	require.NoError(t, repo.Create(ctx, pub))

	exists, err := repo.ExistsByWebsite(ctx, "HTTPS://TECHDAILY.EXAMPLE.COM")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByWebsite(ctx, "https://other.example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}
