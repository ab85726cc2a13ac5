package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string // default: 8080

	// Identity
	AccountID string

	// Ledger backend: "memory", "redis" or "postgres"
	LedgerBackend string
	PostgresDSN   string
	RedisAddr     string

	// Charging service
	ChargeAPIURL string
	ChargeAPIKey string

	// Metering
	FreeQuotaThreshold   int64         // free units per period, default: 1000
	SettleDelay          time.Duration // default: 5000ms
	QuotaRefreshInterval time.Duration // default: 10000ms

	// Crawl simulation
	CrawlConcurrency int // default: 4
	CrawlMaxItems    int // default: 500

	// Observability
	OTELExporterType     string // "stdout" or "otlp"
	OTELExporterEndpoint string // default: "localhost:4317"
}

func Load() (*Config, error) {
	// Load .env file if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		AccountID:            os.Getenv("ACCOUNT_ID"),
		LedgerBackend:        getEnv("LEDGER_BACKEND", "memory"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		ChargeAPIURL:         os.Getenv("CHARGE_API_URL"),
		ChargeAPIKey:         os.Getenv("CHARGE_API_KEY"),
		OTELExporterType:     getEnv("OTEL_EXPORTER_TYPE", "stdout"),
		OTELExporterEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
	}

	threshold, err := getEnvInt("FREE_QUOTA_THRESHOLD", 1000)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, fmt.Errorf("FREE_QUOTA_THRESHOLD must not be negative, got %d", threshold)
	}
	cfg.FreeQuotaThreshold = threshold

	settleMs, err := getEnvInt("SETTLE_DELAY_MS", 5000)
	if err != nil {
		return nil, err
	}
	if settleMs <= 0 {
		return nil, fmt.Errorf("SETTLE_DELAY_MS must be positive, got %d", settleMs)
	}
	cfg.SettleDelay = time.Duration(settleMs) * time.Millisecond

	refreshMs, err := getEnvInt("QUOTA_REFRESH_INTERVAL_MS", 10000)
	if err != nil {
		return nil, err
	}
	if refreshMs <= 0 {
		return nil, fmt.Errorf("QUOTA_REFRESH_INTERVAL_MS must be positive, got %d", refreshMs)
	}
	cfg.QuotaRefreshInterval = time.Duration(refreshMs) * time.Millisecond

	concurrency, err := getEnvInt("CRAWL_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("CRAWL_CONCURRENCY must be positive, got %d", concurrency)
	}
	cfg.CrawlConcurrency = int(concurrency)

	maxItems, err := getEnvInt("CRAWL_MAX_ITEMS", 500)
	if err != nil {
		return nil, err
	}
	cfg.CrawlMaxItems = int(maxItems)

	// Validation
	if cfg.AccountID == "" {
		return nil, fmt.Errorf("ACCOUNT_ID is required")
	}
	switch cfg.LedgerBackend {
	case "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required for the redis ledger backend")
		}
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required for the postgres ledger backend")
		}
	default:
		return nil, fmt.Errorf("unknown LEDGER_BACKEND %q", cfg.LedgerBackend)
	}
	if cfg.ChargeAPIURL == "" {
		return nil, fmt.Errorf("CHARGE_API_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
