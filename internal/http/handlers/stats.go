package handlers

import (
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"floofy/internal/analytics"
)

// parseScope reads the optional upload/user query parameters. At most one
// may be set; ids that don't exist simply yield zero-valued metrics.
func parseScope(ctx *fasthttp.RequestCtx) (analytics.Scope, bool) {
	uploadArg := string(ctx.QueryArgs().Peek("upload"))
	userArg := string(ctx.QueryArgs().Peek("user"))

	if uploadArg != "" && userArg != "" {
		errResponse(ctx, fasthttp.StatusBadRequest, "upload and user are mutually exclusive")
		return analytics.Scope{}, false
	}
	if uploadArg != "" {
		id, err := strconv.ParseUint(uploadArg, 10, 32)
		if err != nil || id == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid upload id")
			return analytics.Scope{}, false
		}
		return analytics.ForUpload(uint(id)), true
	}
	if userArg != "" {
		id, err := strconv.ParseUint(userArg, 10, 32)
		if err != nil || id == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid user id")
			return analytics.Scope{}, false
		}
		return analytics.ForUser(uint(id)), true
	}
	return analytics.Sitewide(), true
}

func parseDays(ctx *fasthttp.RequestCtx) int {
	days := 7
	if d := string(ctx.QueryArgs().Peek("days")); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 {
			if n > 365 {
				n = 365
			}
			days = n
		}
	}
	return days
}

// StatsSeries serves the gap-filled daily series for charts.
func StatsSeries(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		scope, ok := parseScope(ctx)
		if !ok {
			return
		}
		days := parseDays(ctx)

		series, err := svc.Series(ctx, days, scope)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query stats")
			return
		}
		jsonResponse(ctx, map[string]any{"series": series})
	}
}

// StatsToday serves the current day's live metrics as a single point.
func StatsToday(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		scope, ok := parseScope(ctx)
		if !ok {
			return
		}

		point, err := svc.Today(ctx, scope)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query stats")
			return
		}
		jsonResponse(ctx, map[string]any{"today": point})
	}
}

// AdminRollup recomputes and upserts one day's rollup on demand, for
// backfilling or repairing a day after late-arriving data. Date defaults
// to today. Failures surface as ok=false, not as an error status, since
// the writer handles and logs them itself.
func AdminRollup(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		day := time.Now()
		if d := string(ctx.QueryArgs().Peek("date")); d != "" {
			parsed, err := time.ParseInLocation(analytics.DayFormat, d, time.Local)
			if err != nil {
				errResponse(ctx, fasthttp.StatusBadRequest, "invalid date, want YYYY-MM-DD")
				return
			}
			day = parsed
		}

		ok := svc.WriteRollup(ctx, day)
		jsonResponse(ctx, map[string]any{"ok": ok, "date": day.Format(analytics.DayFormat)})
	}
}
