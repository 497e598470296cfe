package db

import (
	"time"

	"gorm.io/datatypes"
)

// User represents a file-host account. Accounts own uploads and API keys;
// the CreatedAt column feeds the daily registrations metric.
type User struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"size:255;not null"`
}

// Upload is the record of one hosted file. Storage of the bytes themselves
// lives behind the upload pipeline; this table only carries the metadata
// the analytics and listing paths need.
type Upload struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	// OwnerID is nil for anonymous uploads.
	OwnerID *uint `gorm:"index"`

	FileName    string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:128"`
	SizeBytes   int64  `gorm:"not null;default:0"`

	// ViewCount is a running total, incremented on every recorded view.
	// The daily breakdown lives in view_events / daily_rollups.
	ViewCount int64 `gorm:"not null;default:0"`

	// Metadata holds arbitrary key/value pairs attached by the uploading
	// client (ShareX and friends send tool name, capture type, etc.) so
	// callers can tag uploads without schema changes.
	Metadata datatypes.JSONMap `gorm:"type:json"`
}

// ViewEvent is one recorded view of an upload. Append-only; rows are never
// mutated and are pruned only by the retention worker via ExpiresAt.
type ViewEvent struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`

	// ExpiresAt is the timestamp after which this event is eligible for
	// deletion by the retention worker. A nil value means the event does
	// not currently expire.
	ExpiresAt *time.Time `gorm:"index"`

	UploadID uint `gorm:"index;not null"`

	// RemoteIP is the viewer's address, used for the per-day distinct-IP
	// uniqueness approximation. Empty when the address is unknown.
	RemoteIP string `gorm:"size:64"`
}

// DailyRollup stores pre-aggregated sitewide metrics for one calendar day.
// Written exclusively by the rollup writer via upsert-by-day; exactly zero
// or one row exists per day. Readers never consume the current day's row,
// today is always computed live from the raw tables.
type DailyRollup struct {
	ID uint `gorm:"primaryKey"`

	// Day is the calendar date in YYYY-MM-DD form, local server time.
	// Stored as text so the key round-trips exactly; lexicographic order
	// matches date order for range scans.
	Day string `gorm:"size:10;uniqueIndex;not null"`

	TotalViews      int64 `gorm:"not null;default:0"`
	UniqueViews     int64 `gorm:"not null;default:0"`
	UploadsCount    int64 `gorm:"not null;default:0"`
	UsersRegistered int64 `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// APIKey represents an upload token for the ingestion API (ShareX-style
// clients send it as a bearer token). Each key belongs to a user.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// UserID links this key to the account that owns it.
	UserID uint `gorm:"index;not null"`

	// Name is a user-friendly identifier for this key (e.g. "sharex-desktop").
	Name string `gorm:"size:128;not null"`

	// Key is the actual bearer token value (stored as-is, unique).
	Key string `gorm:"uniqueIndex;size:255;not null"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`

	// User is the owner of this API key.
	User User `gorm:"foreignKey:UserID"`
}
