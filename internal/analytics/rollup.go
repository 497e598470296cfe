package analytics

import (
	"context"
	"log"
	"time"
)

// WriteRollup computes sitewide metrics for the calendar day containing
// day and upserts the rollup row. Re-running for the same day with
// unchanged data writes identical metrics, so repeated or concurrent
// invocations (scheduler plus admin backfill) are safe.
//
// Best effort: failures are logged and never propagated, since the usual
// caller is a background tick with nobody waiting on a result. The ok
// return lets the admin backfill endpoint report the outcome.
func (svc *Service) WriteRollup(ctx context.Context, day time.Time) (ok bool) {
	day = startOfDay(day)

	p, err := svc.countInterval(ctx, day, day.AddDate(0, 0, 1), Sitewide(), nil)
	if err != nil {
		log.Printf("rollup: compute failed for %s: %v", day.Format(DayFormat), err)
		return false
	}

	err = svc.rollups.Upsert(ctx, Rollup{
		Day:             p.Date,
		TotalViews:      p.TotalViews,
		UniqueViews:     p.UniqueViews,
		UploadsCount:    p.UploadsCount,
		UsersRegistered: p.UsersRegistered,
	})
	if err != nil {
		log.Printf("rollup: upsert failed for %s: %v", p.Date, err)
		return false
	}
	return true
}

// StartRollupWorker launches a background goroutine that recomputes the
// most recent backfillDays completed days at startup, then rewrites
// yesterday's and today's rollups every hour. Rewriting yesterday on the
// first ticks after midnight finalizes it with any events the last tick
// of the old day missed.
func StartRollupWorker(svc *Service, backfillDays int) {
	go func() {
		ctx := context.Background()

		today := startOfDay(svc.now())
		for i := backfillDays; i >= 1; i-- {
			svc.WriteRollup(ctx, today.AddDate(0, 0, -i))
		}
		svc.WriteRollup(ctx, today)

		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for t := range ticker.C {
			svc.WriteRollup(ctx, t.AddDate(0, 0, -1))
			svc.WriteRollup(ctx, t)
		}
	}()
}
