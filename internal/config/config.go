package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	AdminToken string

	// Places API
	PlacesBaseURL     string
	PlacesAPIKey      string
	PlacesTimeout     time.Duration
	PlacesAPIInterval time.Duration

	// Bulk Add
	BulkMaxItems     int
	RunRetentionDays int

	// Website Enrichment
	WebsiteFetchTimeout time.Duration
	WebsiteMaxSize      int64

	// Backfill
	BackfillInterval         time.Duration
	BackfillMaxCallsPerCycle int

	// Rate Limit
	RateLimitGeneral int
	RateLimitBulk    int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if cfg.AdminToken == "" {
		missing = append(missing, "ADMIN_TOKEN")
	}

	cfg.PlacesBaseURL = os.Getenv("PLACES_API_BASE_URL")
	if cfg.PlacesBaseURL == "" {
		missing = append(missing, "PLACES_API_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.PlacesAPIKey = getEnvString("PLACES_API_KEY", "")
	cfg.PlacesTimeout = getEnvDuration("PLACES_TIMEOUT", 15*time.Second)
	cfg.PlacesAPIInterval = getEnvDuration("PLACES_API_INTERVAL", 200*time.Millisecond)
	cfg.BulkMaxItems = getEnvInt("BULK_MAX_ITEMS", 100)
	cfg.RunRetentionDays = getEnvInt("RUN_RETENTION_DAYS", 30)
	cfg.WebsiteFetchTimeout = getEnvDuration("WEBSITE_FETCH_TIMEOUT", 5*time.Second)
	cfg.WebsiteMaxSize = getEnvInt64("WEBSITE_MAX_SIZE", 1048576)
	cfg.BackfillInterval = getEnvDuration("BACKFILL_INTERVAL", 1*time.Hour)
	cfg.BackfillMaxCallsPerCycle = getEnvInt("BACKFILL_MAX_CALLS_PER_CYCLE", 50)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitBulk = getEnvInt("RATE_LIMIT_BULK", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
