// Package analytics computes daily view/upload metrics over a rolling
// window, combining stored per-day rollups for completed days with a live
// computation for the current, still-open day.
//
// All day bucketing uses the host's local midnight. "Unique" views are
// approximated by distinct source IP per day; shared or proxied addresses
// undercount and dynamic addresses overcount, and dashboards depend on
// exactly this definition.
package analytics

import (
	"context"
	"time"
)

// DayFormat is the calendar-date layout used for rollup keys and Point.Date.
const DayFormat = "2006-01-02"

// Point is one day of aggregated metrics, shaped for direct chart
// consumption. Every scope produces all four fields; metrics that do not
// apply to a scope (registrations outside sitewide) are reported as 0 so
// chart code never branches on shape.
type Point struct {
	Date            string `json:"date"`
	TotalViews      int64  `json:"totalViews"`
	UniqueViews     int64  `json:"uniqueViews"`
	UploadsCount    int64  `json:"uploadsCount"`
	UsersRegistered int64  `json:"usersRegistered"`
}

// Rollup is one stored day of sitewide aggregates.
type Rollup struct {
	Day             string
	TotalViews      int64
	UniqueViews     int64
	UploadsCount    int64
	UsersRegistered int64
}

// EventStore reads raw view events. Both counts cover the half-open
// interval [from, to). A nil uploadIDs means no upload filter; a non-nil
// slice restricts to those uploads and callers guarantee it is non-empty.
type EventStore interface {
	CountViews(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error)
	// CountUniqueIPs counts distinct non-empty source addresses.
	CountUniqueIPs(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error)
}

// UploadStore reads upload records.
type UploadStore interface {
	// CountCreated counts uploads created in [from, to), optionally
	// restricted to an id set (nil means no filter).
	CountCreated(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error)
	// OwnedUploadIDs lists the ids of every upload owned by userID.
	OwnedUploadIDs(ctx context.Context, userID uint) ([]uint, error)
}

// UserStore reads account records.
type UserStore interface {
	CountRegistered(ctx context.Context, from, to time.Time) (int64, error)
}

// RollupStore persists daily rollup rows. Upsert must replace all four
// metrics atomically when a row for the day already exists, which is what
// makes concurrent writer invocations for the same day safe.
type RollupStore interface {
	Upsert(ctx context.Context, r Rollup) error
	// ListRange returns rows with fromDay <= day < beforeDay, ascending.
	ListRange(ctx context.Context, fromDay, beforeDay string) ([]Rollup, error)
}

// Service is the analytics engine. It only ever reads the event, upload
// and user stores; the rollup store is the single thing it writes, and
// only through WriteRollup.
type Service struct {
	events  EventStore
	uploads UploadStore
	users   UserStore
	rollups RollupStore
	now     func() time.Time
}

// NewService builds a Service. now fixes the clock used to decide which
// day is "today"; pass nil for the system clock.
func NewService(events EventStore, uploads UploadStore, users UserStore, rollups RollupStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{events: events, uploads: uploads, users: users, rollups: rollups, now: now}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func zeroPoint(day time.Time) Point {
	return Point{Date: day.Format(DayFormat)}
}
