package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"floofy/internal/analytics"
	dbpkg "floofy/internal/db"
)

var handlerNow = time.Date(2025, 6, 28, 12, 0, 0, 0, time.Local)

func setupStats(t *testing.T) (*gorm.DB, *analytics.Service) {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, dbpkg.Migrate(gdb))
	svc := dbpkg.NewAnalyticsService(gdb, func() time.Time { return handlerNow })
	return gdb, svc
}

func doRequest(handler fasthttp.RequestHandler, method, uri string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	handler(ctx)
	return ctx
}

func TestStatsSeriesHandler(t *testing.T) {
	gdb, svc := setupStats(t)

	owner := uint(1)
	upload := dbpkg.Upload{CreatedAt: handlerNow.AddDate(0, 0, -1), OwnerID: &owner, FileName: "cat.png"}
	require.NoError(t, gdb.Create(&upload).Error)
	ev := dbpkg.ViewEvent{CreatedAt: handlerNow.Add(-time.Hour), UploadID: upload.ID, RemoteIP: "203.0.113.1"}
	require.NoError(t, gdb.Create(&ev).Error)

	ctx := doRequest(StatsSeries(svc), fasthttp.MethodGet, "/v1/stats/series?days=3")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var body struct {
		Series []analytics.Point `json:"series"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	require.Len(t, body.Series, 3)
	assert.Equal(t, "2025-06-26", body.Series[0].Date)
	assert.Equal(t, "2025-06-28", body.Series[2].Date)
	assert.Equal(t, int64(1), body.Series[2].TotalViews)
}

func TestStatsSeriesHandlerRejectsConflictingScopes(t *testing.T) {
	_, svc := setupStats(t)

	ctx := doRequest(StatsSeries(svc), fasthttp.MethodGet, "/v1/stats/series?upload=1&user=2")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestStatsSeriesHandlerUserScope(t *testing.T) {
	_, svc := setupStats(t)

	// A user with zero uploads still gets a full-length all-zero series.
	ctx := doRequest(StatsSeries(svc), fasthttp.MethodGet, "/v1/stats/series?days=5&user=42")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var body struct {
		Series []analytics.Point `json:"series"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	require.Len(t, body.Series, 5)
	for _, p := range body.Series {
		assert.Equal(t, analytics.Point{Date: p.Date}, p)
	}
}

func TestStatsTodayHandler(t *testing.T) {
	gdb, svc := setupStats(t)

	upload := dbpkg.Upload{CreatedAt: handlerNow.AddDate(0, 0, -3), FileName: "dog.png"}
	require.NoError(t, gdb.Create(&upload).Error)
	for _, ip := range []string{"203.0.113.1", "203.0.113.1", "203.0.113.2"} {
		ev := dbpkg.ViewEvent{CreatedAt: handlerNow.Add(-time.Minute), UploadID: upload.ID, RemoteIP: ip}
		require.NoError(t, gdb.Create(&ev).Error)
	}

	ctx := doRequest(StatsToday(svc), fasthttp.MethodGet, "/v1/stats/today")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var body struct {
		Today analytics.Point `json:"today"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.Equal(t, "2025-06-28", body.Today.Date)
	assert.Equal(t, int64(3), body.Today.TotalViews)
	assert.Equal(t, int64(2), body.Today.UniqueViews)
}

func TestAdminRollupHandler(t *testing.T) {
	gdb, svc := setupStats(t)

	upload := dbpkg.Upload{CreatedAt: time.Date(2025, 6, 26, 10, 0, 0, 0, time.Local), FileName: "cat.png"}
	require.NoError(t, gdb.Create(&upload).Error)
	ev := dbpkg.ViewEvent{CreatedAt: time.Date(2025, 6, 26, 11, 0, 0, 0, time.Local), UploadID: upload.ID, RemoteIP: "203.0.113.1"}
	require.NoError(t, gdb.Create(&ev).Error)

	ctx := doRequest(AdminRollup(svc), fasthttp.MethodPost, "/admin/rollup?date=2025-06-26")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())

	var body struct {
		OK   bool   `json:"ok"`
		Date string `json:"date"`
	}
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "2025-06-26", body.Date)

	var row dbpkg.DailyRollup
	require.NoError(t, gdb.Where("day = ?", "2025-06-26").First(&row).Error)
	assert.Equal(t, int64(1), row.TotalViews)
	assert.Equal(t, int64(1), row.UploadsCount)
}

func TestAdminRollupHandlerRejectsBadDate(t *testing.T) {
	_, svc := setupStats(t)

	ctx := doRequest(AdminRollup(svc), fasthttp.MethodPost, "/admin/rollup?date=June-26")
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}
