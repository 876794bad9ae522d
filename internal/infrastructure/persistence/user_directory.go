package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/pressmarket/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// userRecord is the slice of the users table the notification path needs.
// User management itself lives in a separate system; this module only reads
// the address book.
type userRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string {
	return "users"
}

// GormUserDirectory resolves recipient email addresses from the users table
type GormUserDirectory struct {
	db *gorm.DB
}

// NewGormUserDirectory creates a new GormUserDirectory
func NewGormUserDirectory(db *gorm.DB) *GormUserDirectory {
	return &GormUserDirectory{db: db}
}

// EmailFor returns the email address on file for a user
func (d *GormUserDirectory) EmailFor(ctx context.Context, userID uint64) (string, error) {
	var user userRecord
	if err := d.db.WithContext(ctx).Select("id", "email").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	if user.Email == "" {
		return "", shared.ErrNotFound
	}
	return user.Email, nil
}
