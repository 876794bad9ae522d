package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/pressmarket/backend/internal/domain/notification"
	"github.com/pressmarket/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&notification.Notification{}, &userRecord{})
	require.NoError(t, err)

	return db
}

func saveNotification(t *testing.T, repo *GormNotificationRepository, recipientID uint64, typ notification.Type, title string) *notification.Notification {
	t.Helper()
	pubID := uint64(1)
	n, err := notification.New(recipientID, typ, title, "message body", &pubID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), n))
	return n
}

func TestGormNotificationRepository_SaveAndFind(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	n := saveNotification(t, repo, 7, notification.TypePublicationApproved, "Publication approved")
	assert.NotZero(t, n.ID)

	found, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), found.RecipientID)
	assert.Equal(t, notification.TypePublicationApproved, found.Type)
	assert.False(t, found.IsRead)

	_, err = repo.FindByID(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormNotificationRepository_FindForRecipient(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	saveNotification(t, repo, 7, notification.TypePublicationSubmitted, "Submitted")
	saveNotification(t, repo, 7, notification.TypePublicationApproved, "Approved")
	saveNotification(t, repo, 8, notification.TypePublicationRejected, "Rejected")

	items, err := repo.FindForRecipient(ctx, 7, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first.
	assert.Equal(t, "Approved", items[0].Title)
	assert.Equal(t, "Submitted", items[1].Title)

	filter := shared.DefaultFilter()
	filter.Filters["is_read"] = false
	items, err = repo.FindForRecipient(ctx, 8, filter)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestGormNotificationRepository_UnreadLifecycle(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	first := saveNotification(t, repo, 7, notification.TypePublicationSubmitted, "Submitted")
	saveNotification(t, repo, 7, notification.TypePublicationApproved, "Approved")

	count, err := repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	first.MarkRead()
	require.NoError(t, repo.Save(ctx, first))

	count, err = repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.MarkAllRead(ctx, 7))

	count, err = repo.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	items, err := repo.FindForRecipient(ctx, 7, shared.DefaultFilter())
	require.NoError(t, err)
	for _, n := range items {
		assert.True(t, n.IsRead)
		assert.NotNil(t, n.ReadAt)
	}
}

func TestGormNotificationRepository_Delete(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	n := saveNotification(t, repo, 7, notification.TypePublicationApproved, "Approved")

	// A different recipient cannot delete it.
	err := repo.Delete(ctx, 8, n.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, 7, n.ID))

	_, err = repo.FindByID(ctx, n.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormUserDirectory_EmailFor(t *testing.T) {
	db := setupNotificationTestDB(t)
	directory := NewGormUserDirectory(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, db.Create(&userRecord{ID: 7, Email: "owner@example.com", CreatedAt: now, UpdatedAt: now}).Error)
	require.NoError(t, db.Create(&userRecord{ID: 8, Email: "", CreatedAt: now, UpdatedAt: now}).Error)

	address, err := directory.EmailFor(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", address)

	_, err = directory.EmailFor(ctx, 9)
	require.ErrorIs(t, err, shared.ErrNotFound)

	// A user row without an address is treated the same as a missing user.
	_, err = directory.EmailFor(ctx, 8)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
