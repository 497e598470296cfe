package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"floofy/internal/analytics"
	"floofy/internal/config"
	"floofy/internal/db"
	"floofy/internal/http/handlers"
	appmw "floofy/internal/http/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.EnsureBootstrapAccount(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap account: %v", err)
	}

	svc := db.NewAnalyticsService(sqlDB, nil)
	analytics.StartRollupWorker(svc, cfg.RollupBackfillDays)
	db.StartRetentionWorker(sqlDB)

	handlers.InitPrometheusMetrics()

	r := router.New()

	handler := handlers.RequestLogger(r.Handler)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.POST("/v1/users", handlers.RegisterUser(sqlDB))

	r.POST("/v1/uploads", appmw.BearerAuth(sqlDB)(handlers.CreateUpload(sqlDB)))
	r.POST("/v1/views", appmw.BearerAuth(sqlDB)(handlers.RecordView(sqlDB, cfg)))

	r.GET("/v1/stats/series", handlers.StatsSeries(svc))
	r.GET("/v1/stats/today", handlers.StatsToday(svc))

	r.GET("/v1/metrics", handlers.KeyMetricsHandler(sqlDB))

	r.POST("/admin/rollup", appmw.AdminAuth(cfg)(handlers.AdminRollup(svc)))
	r.POST("/admin/apikeys/create", appmw.AdminAuth(cfg)(handlers.CreateAPIKey(sqlDB)))
	r.POST("/admin/apikeys/deactivate", appmw.AdminAuth(cfg)(handlers.DeactivateAPIKey(sqlDB)))

	log.Printf("floofy listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
