package analytics

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// Series produces a dense, date-ascending sequence of exactly days points
// covering the inclusive window ending today. Completed days come from
// stored rollups (sitewide) or raw per-day counts (scoped); today is
// computed live; dates with no data are filled with zero points so the
// result always has the requested length with no missing dates.
//
// Series never mutates analytics state. The completed-day fetch and the
// live-today computation are independent and run concurrently.
func (svc *Service) Series(ctx context.Context, days int, s Scope) ([]Point, error) {
	if days < 1 {
		return nil, errors.New("analytics: days must be at least 1")
	}

	today := startOfDay(svc.now())
	start := today.AddDate(0, 0, -(days - 1))

	var (
		past       map[string]Point
		todayPoint Point
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		past, err = svc.pastPoints(gctx, start, today, s)
		return err
	})
	g.Go(func() error {
		var err error
		todayPoint, err = svc.Today(gctx, s)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Point, 0, days)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		if d.Equal(today) {
			out = append(out, todayPoint)
			continue
		}
		if p, ok := past[d.Format(DayFormat)]; ok {
			out = append(out, p)
		} else {
			out = append(out, zeroPoint(d))
		}
	}
	return out, nil
}

// pastPoints returns metrics for the completed days in [start, today),
// keyed by date. Today is deliberately excluded: its rollup row, if the
// scheduler has already written one, is still in motion and the live path
// is authoritative for it.
func (svc *Service) pastPoints(ctx context.Context, start, today time.Time, s Scope) (map[string]Point, error) {
	if s.IsSitewide() {
		rows, err := svc.rollups.ListRange(ctx, start.Format(DayFormat), today.Format(DayFormat))
		if err != nil {
			return nil, err
		}
		m := make(map[string]Point, len(rows))
		for _, r := range rows {
			m[r.Day] = Point{
				Date:            r.Day,
				TotalViews:      r.TotalViews,
				UniqueViews:     r.UniqueViews,
				UploadsCount:    r.UploadsCount,
				UsersRegistered: r.UsersRegistered,
			}
		}
		return m, nil
	}

	// Scoped series have no precomputed rollups; count each completed day
	// straight from the raw tables with the same interval routine the live
	// path uses.
	ids, ok, err := svc.resolveUploadIDs(ctx, s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]Point{}, nil
	}
	m := make(map[string]Point)
	for d := start; d.Before(today); d = d.AddDate(0, 0, 1) {
		p, err := svc.countInterval(ctx, d, d.AddDate(0, 0, 1), s, ids)
		if err != nil {
			return nil, err
		}
		m[p.Date] = p
	}
	return m, nil
}
