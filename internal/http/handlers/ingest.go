package handlers

import (
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"floofy/internal/config"
	dbpkg "floofy/internal/db"
)

var (
	uploadsCreatedTotal *prometheus.CounterVec
	viewsRecordedTotal  *prometheus.CounterVec
	uploadSizeBytes     *prometheus.HistogramVec
	accountsCreated     prometheus.Counter
)

func InitPrometheusMetrics() {
	uploadsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "floofy",
			Name:      "uploads_created_total",
			Help:      "Total number of upload records created.",
		},
		[]string{"uploader"},
	)
	viewsRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "floofy",
			Name:      "views_recorded_total",
			Help:      "Total number of view events recorded.",
		},
		[]string{"uploader"},
	)
	uploadSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "floofy",
			Name:      "upload_size_bytes",
			Help:      "Histogram of uploaded file sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"uploader"},
	)
	accountsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "floofy",
			Name:      "accounts_created_total",
			Help:      "Total number of registered accounts.",
		},
	)
	prometheus.MustRegister(uploadsCreatedTotal, viewsRecordedTotal, uploadSizeBytes, accountsCreated)
}

type createUploadRequest struct {
	FileName    string         `json:"file_name"`
	ContentType string         `json:"content_type,omitempty"`
	SizeBytes   int64          `json:"size_bytes"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreateUpload registers a hosted file for the authenticated key's owner.
// The bytes themselves go through the storage pipeline; this endpoint only
// records the metadata that listing and analytics need.
func CreateUpload(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ak, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		var payload createUploadRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.FileName == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "file_name required")
			return
		}
		if payload.SizeBytes < 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "size_bytes must not be negative")
			return
		}

		meta := datatypes.JSONMap{}
		for k, v := range payload.Metadata {
			meta[k] = v
		}

		ownerID := ak.UserID
		upload := dbpkg.Upload{
			OwnerID:     &ownerID,
			FileName:    payload.FileName,
			ContentType: payload.ContentType,
			SizeBytes:   payload.SizeBytes,
			Metadata:    meta,
		}
		if err := db.Create(&upload).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist upload")
			return
		}

		uploadsCreatedTotal.WithLabelValues(ak.Name).Inc()
		uploadSizeBytes.WithLabelValues(ak.Name).Observe(float64(payload.SizeBytes))

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, map[string]any{"id": upload.ID, "file_name": upload.FileName})
	}
}

type recordViewRequest struct {
	UploadID uint `json:"upload_id"`
	// RemoteIP lets a fronting proxy report the real viewer address.
	// Empty means use the connection's address.
	RemoteIP string `json:"remote_ip,omitempty"`
	// Timestamp lets batching clients report when the view actually
	// happened. Empty means now.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RecordView appends one view event for an upload and bumps its running
// view counter. Events carry an expiry so the retention worker can prune
// them once their day has been rolled up.
func RecordView(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		ak, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		var payload recordViewRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.UploadID == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "upload_id required")
			return
		}

		var upload dbpkg.Upload
		if err := db.First(&upload, payload.UploadID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "upload not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "database error")
			return
		}

		createdAt := time.Now()
		if payload.Timestamp != nil {
			createdAt = *payload.Timestamp
		}
		remoteIP := payload.RemoteIP
		if remoteIP == "" {
			remoteIP = ctx.RemoteIP().String()
		}

		var expiresAt *time.Time
		if cfg.RetentionDays > 0 {
			t := createdAt.Add(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
			expiresAt = &t
		}

		event := dbpkg.ViewEvent{
			CreatedAt: createdAt,
			ExpiresAt: expiresAt,
			UploadID:  upload.ID,
			RemoteIP:  remoteIP,
		}
		if err := db.Create(&event).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to persist view event")
			return
		}
		if err := db.Model(&upload).UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update view count")
			return
		}

		viewsRecordedTotal.WithLabelValues(ak.Name).Inc()

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"accepted"}`)
	}
}
