package config

import (
	"os"
	"strconv"
)

// Config holds the core runtime configuration for the service.
// Values are primarily sourced from environment variables, with
// sensible defaults where appropriate. See .env.example.
type Config struct {
	DatabaseURL string

	ListenAddr string

	// AdminToken protects the admin endpoints (rollup backfill, API key
	// management). If empty, the admin endpoints are disabled.
	AdminToken string

	// RetentionDays controls how long raw view events are kept before the
	// retention worker prunes them. 0 means events never expire.
	RetentionDays int

	// RollupBackfillDays is how many completed days the rollup worker
	// recomputes at startup, so a restarted instance repairs recent gaps.
	RollupBackfillDays int

	// BootstrapUser/BootstrapKey, when both set, seed an initial account
	// and upload API key on startup so a fresh install can upload.
	BootstrapUser string
	BootstrapKey  string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		DatabaseURL:        os.Getenv("APP_DATABASE_URL"),
		ListenAddr:         getenv("APP_LISTEN_ADDR", ":8080"),
		AdminToken:         getenv("APP_ADMIN_TOKEN", ""),
		RetentionDays:      90,
		RollupBackfillDays: 30,
		BootstrapUser:      getenv("APP_BOOTSTRAP_USER", ""),
		BootstrapKey:       getenv("APP_BOOTSTRAP_KEY", ""),
	}

	if v := os.Getenv("APP_RETENTION_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.RetentionDays = days
		}
	}
	if v := os.Getenv("APP_ROLLUP_BACKFILL_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days >= 0 {
			cfg.RollupBackfillDays = days
		}
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
