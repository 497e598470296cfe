package analytics

import (
	"context"
	"time"
)

// resolveUploadIDs returns the upload-id filter for s. A nil slice with
// ok=true means no filter (sitewide). ok=false means the scope matches
// nothing (a user with zero uploads) and every metric is zero; callers
// short-circuit instead of issuing an IN () query against an empty set.
func (svc *Service) resolveUploadIDs(ctx context.Context, s Scope) (ids []uint, ok bool, err error) {
	switch s.kind {
	case scopeUpload:
		return []uint{s.uploadID}, true, nil
	case scopeUser:
		ids, err = svc.uploads.OwnedUploadIDs(ctx, s.userID)
		if err != nil {
			return nil, false, err
		}
		if len(ids) == 0 {
			return nil, false, nil
		}
		return ids, true, nil
	default:
		return nil, true, nil
	}
}

// countInterval computes the four metrics for the half-open interval
// [from, to) against the raw tables. Both the live-today path and the
// rollup writer go through here, so the two always agree on semantics.
func (svc *Service) countInterval(ctx context.Context, from, to time.Time, s Scope, uploadIDs []uint) (Point, error) {
	p := Point{Date: from.Format(DayFormat)}

	var err error
	if p.TotalViews, err = svc.events.CountViews(ctx, from, to, uploadIDs); err != nil {
		return Point{}, err
	}
	if p.UniqueViews, err = svc.events.CountUniqueIPs(ctx, from, to, uploadIDs); err != nil {
		return Point{}, err
	}
	if p.UploadsCount, err = svc.uploads.CountCreated(ctx, from, to, uploadIDs); err != nil {
		return Point{}, err
	}
	if s.IsSitewide() {
		if p.UsersRegistered, err = svc.users.CountRegistered(ctx, from, to); err != nil {
			return Point{}, err
		}
	}
	return p, nil
}

// Today computes the current day's metrics directly from the raw tables.
// No rollup row exists for the still-open day, so this is always a fresh
// computation; repeated calls reflect events recorded in between.
func (svc *Service) Today(ctx context.Context, s Scope) (Point, error) {
	day := startOfDay(svc.now())

	ids, ok, err := svc.resolveUploadIDs(ctx, s)
	if err != nil {
		return Point{}, err
	}
	if !ok {
		return zeroPoint(day), nil
	}
	return svc.countInterval(ctx, day, day.AddDate(0, 0, 1), s, ids)
}
