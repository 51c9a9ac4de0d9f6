package config_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goauction/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.StorageDriver != config.StoragePostgres {
		t.Fatalf("expected postgres storage by default, got %s", cfg.StorageDriver)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if !cfg.CollateralRatio.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("expected collateral ratio 0.5, got %s", cfg.CollateralRatio)
	}

	if cfg.SettlementInterval != 5*time.Second || cfg.SettlementBatchSize != 50 {
		t.Fatalf("unexpected settlement defaults: %s/%d", cfg.SettlementInterval, cfg.SettlementBatchSize)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("JWT_SECRET", "top-secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("COLLATERAL_RATIO", "0.25")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("SETTLEMENT_INTERVAL", "1m")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.StorageDriver != config.StorageMemory {
		t.Fatalf("expected memory storage, got %s", cfg.StorageDriver)
	}

	if cfg.DatabaseURL != "postgres://example" || cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom URLs, got %s and %s", cfg.DatabaseURL, cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" || cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("unexpected overrides: port=%s timeout=%s", cfg.HTTPPort, cfg.DatabaseTimeout)
	}

	if cfg.JWTSecret != "top-secret" || !cfg.AuthEnabled {
		t.Fatalf("expected auth settings to be set, got secret=%s enabled=%v", cfg.JWTSecret, cfg.AuthEnabled)
	}

	if !cfg.CollateralRatio.Equal(decimal.RequireFromString("0.25")) || cfg.RateLimitRPS != 2.5 {
		t.Fatalf("unexpected ratio=%s rps=%v", cfg.CollateralRatio, cfg.RateLimitRPS)
	}

	if cfg.SettlementInterval != time.Minute {
		t.Fatalf("expected settlement interval override, got %s", cfg.SettlementInterval)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid duration", map[string]string{"HTTP_READ_TIMEOUT": "not-a-duration"}},
		{"unknown storage driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"zero collateral", map[string]string{"COLLATERAL_RATIO": "0"}},
		{"collateral above one", map[string]string{"COLLATERAL_RATIO": "1.5"}},
		{"malformed collateral", map[string]string{"COLLATERAL_RATIO": "half"}},
		{"auth without secret", map[string]string{"AUTH_ENABLED": "true", "JWT_SECRET": ""}},
		{"required verification without url", map[string]string{"REQUIRE_VERIFICATION": "true"}},
		{"zero batch", map[string]string{"SETTLEMENT_BATCH_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
