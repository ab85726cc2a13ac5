package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ACCOUNT_ID", "acct-1")
	t.Setenv("CHARGE_API_URL", "http://billing.local")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LedgerBackend != "memory" {
		t.Errorf("expected memory backend default, got %s", cfg.LedgerBackend)
	}
	if cfg.FreeQuotaThreshold != 1000 {
		t.Errorf("expected default threshold 1000, got %d", cfg.FreeQuotaThreshold)
	}
	if cfg.SettleDelay != 5*time.Second {
		t.Errorf("expected default settle delay 5s, got %s", cfg.SettleDelay)
	}
	if cfg.QuotaRefreshInterval != 10*time.Second {
		t.Errorf("expected default refresh interval 10s, got %s", cfg.QuotaRefreshInterval)
	}
}

func TestLoad_NegativeThresholdRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_QUOTA_THRESHOLD", "-1")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "FREE_QUOTA_THRESHOLD") {
		t.Fatalf("expected threshold validation error, got %v", err)
	}
}

func TestLoad_ZeroThresholdAllowed(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_QUOTA_THRESHOLD", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FreeQuotaThreshold != 0 {
		t.Errorf("expected threshold 0, got %d", cfg.FreeQuotaThreshold)
	}
}

func TestLoad_NonPositiveDelaysRejected(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SETTLE_DELAY_MS", "0")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "SETTLE_DELAY_MS") {
		t.Fatalf("expected settle delay validation error, got %v", err)
	}

	t.Setenv("SETTLE_DELAY_MS", "5000")
	t.Setenv("QUOTA_REFRESH_INTERVAL_MS", "-10")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "QUOTA_REFRESH_INTERVAL_MS") {
		t.Fatalf("expected refresh interval validation error, got %v", err)
	}
}

func TestLoad_MissingAccountID(t *testing.T) {
	t.Setenv("ACCOUNT_ID", "")
	t.Setenv("CHARGE_API_URL", "http://billing.local")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "ACCOUNT_ID") {
		t.Fatalf("expected missing account error, got %v", err)
	}
}

func TestLoad_BackendRequiresAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LEDGER_BACKEND", "redis")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REDIS_ADDR") {
		t.Fatalf("expected redis address error, got %v", err)
	}

	t.Setenv("LEDGER_BACKEND", "postgres")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "POSTGRES_DSN") {
		t.Fatalf("expected postgres dsn error, got %v", err)
	}

	t.Setenv("LEDGER_BACKEND", "etcd")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "LEDGER_BACKEND") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}
