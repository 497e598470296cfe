package db

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"floofy/internal/analytics"
)

// ViewEventStore implements analytics.EventStore on the view_events table.
type ViewEventStore struct {
	db *gorm.DB
}

func NewViewEventStore(db *gorm.DB) *ViewEventStore { return &ViewEventStore{db: db} }

func (s *ViewEventStore) inRange(ctx context.Context, from, to time.Time, uploadIDs []uint) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&ViewEvent{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	if uploadIDs != nil {
		q = q.Where("upload_id IN ?", uploadIDs)
	}
	return q
}

func (s *ViewEventStore) CountViews(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	var n int64
	err := s.inRange(ctx, from, to, uploadIDs).Count(&n).Error
	return n, err
}

// CountUniqueIPs counts distinct non-empty remote addresses. Events with
// no recorded address are excluded rather than lumped into one bucket.
func (s *ViewEventStore) CountUniqueIPs(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	var n int64
	err := s.inRange(ctx, from, to, uploadIDs).
		Where("remote_ip <> ''").
		Distinct("remote_ip").
		Count(&n).Error
	return n, err
}

// UploadRecordStore implements analytics.UploadStore on the uploads table.
type UploadRecordStore struct {
	db *gorm.DB
}

func NewUploadRecordStore(db *gorm.DB) *UploadRecordStore { return &UploadRecordStore{db: db} }

func (s *UploadRecordStore) CountCreated(ctx context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	q := s.db.WithContext(ctx).Model(&Upload{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	if uploadIDs != nil {
		q = q.Where("id IN ?", uploadIDs)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

func (s *UploadRecordStore) OwnedUploadIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&Upload{}).
		Where("owner_id = ?", userID).
		Pluck("id", &ids).Error
	return ids, err
}

// AccountStore implements analytics.UserStore on the users table.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore { return &AccountStore{db: db} }

func (s *AccountStore) CountRegistered(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&User{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	return n, err
}

// DailyRollupStore implements analytics.RollupStore on the daily_rollups table.
type DailyRollupStore struct {
	db *gorm.DB
}

func NewDailyRollupStore(db *gorm.DB) *DailyRollupStore { return &DailyRollupStore{db: db} }

// Upsert writes one day's aggregates, replacing all four metrics when a
// row for the day already exists. Last write wins for the whole row, so
// there is never a partially updated day.
func (s *DailyRollupStore) Upsert(ctx context.Context, r analytics.Rollup) error {
	row := DailyRollup{
		Day:             r.Day,
		TotalViews:      r.TotalViews,
		UniqueViews:     r.UniqueViews,
		UploadsCount:    r.UploadsCount,
		UsersRegistered: r.UsersRegistered,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_views":      r.TotalViews,
			"unique_views":     r.UniqueViews,
			"uploads_count":    r.UploadsCount,
			"users_registered": r.UsersRegistered,
			"updated_at":       time.Now(),
		}),
	}).Create(&row).Error
}

func (s *DailyRollupStore) ListRange(ctx context.Context, fromDay, beforeDay string) ([]analytics.Rollup, error) {
	var rows []DailyRollup
	if err := s.db.WithContext(ctx).
		Where("day >= ? AND day < ?", fromDay, beforeDay).
		Order("day").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]analytics.Rollup, 0, len(rows))
	for _, row := range rows {
		out = append(out, analytics.Rollup{
			Day:             row.Day,
			TotalViews:      row.TotalViews,
			UniqueViews:     row.UniqueViews,
			UploadsCount:    row.UploadsCount,
			UsersRegistered: row.UsersRegistered,
		})
	}
	return out, nil
}

// NewAnalyticsService wires the four GORM stores into an analytics.Service.
// now may be nil for the system clock.
func NewAnalyticsService(db *gorm.DB, now func() time.Time) *analytics.Service {
	return analytics.NewService(
		NewViewEventStore(db),
		NewUploadRecordStore(db),
		NewAccountStore(db),
		NewDailyRollupStore(db),
		now,
	)
}
