package publication

import (
	"time"
)

// StatusHistoryEntry is one immutable line in the status ledger. Entries are
// only ever appended; nothing updates or reorders them.
type StatusHistoryEntry struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicationID uint64    `gorm:"not null;index" json:"publication_id"`
	Status        Status    `gorm:"type:varchar(20);not null" json:"status"`
	ChangedBy     uint64    `gorm:"not null" json:"changed_by"`
	Reason        string    `gorm:"type:text" json:"reason,omitempty"`
	ChangedAt     time.Time `gorm:"not null" json:"changed_at"`
}

// TableName returns the table name for GORM
func (StatusHistoryEntry) TableName() string {
	return "publication_status_history"
}
