package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("REMINDER_LEAD_TIMES", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.RateLimitMax != 30 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected 30 req/min default, got %d/%s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.ContextMaxTurns != 20 || cfg.ContextTTL != 24*time.Hour {
		t.Fatalf("unexpected context defaults %d/%s", cfg.ContextMaxTurns, cfg.ContextTTL)
	}
	if cfg.VerificationFailClosed {
		t.Fatalf("expected verification to fail open by default")
	}
	if len(cfg.ReminderLeadTimes) != 2 || cfg.ReminderLeadTimes[0] != 24*time.Hour {
		t.Fatalf("unexpected reminder lead times %v", cfg.ReminderLeadTimes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("RATE_LIMIT_MAX", "10")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("VERIFICATION_FAIL_CLOSED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REMINDER_LEAD_TIMES", "48h,2h,30m")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.RateLimitMax != 10 || cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("expected rate limit override, got %d/%s", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if !cfg.VerificationFailClosed {
		t.Fatalf("expected fail-closed override")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
	if len(cfg.ReminderLeadTimes) != 3 || cfg.ReminderLeadTimes[2] != 30*time.Minute {
		t.Fatalf("unexpected lead times %v", cfg.ReminderLeadTimes)
	}
}

func TestLeadTimesFallBackOnGarbage(t *testing.T) {
	t.Setenv("REMINDER_LEAD_TIMES", "24h,soon")
	cfg := Load()
	if len(cfg.ReminderLeadTimes) != 2 || cfg.ReminderLeadTimes[1] != time.Hour {
		t.Fatalf("expected default lead times, got %v", cfg.ReminderLeadTimes)
	}
}

func TestR2Endpoint(t *testing.T) {
	cfg := &Config{R2AccountID: "abc123"}
	if got := cfg.R2Endpoint(); got != "https://abc123.r2.cloudflarestorage.com" {
		t.Fatalf("unexpected endpoint %s", got)
	}
	cfg.R2EndpointURL = "http://localhost:9000"
	if got := cfg.R2Endpoint(); got != "http://localhost:9000" {
		t.Fatalf("expected explicit endpoint, got %s", got)
	}
	if got := (&Config{}).R2Endpoint(); got != "" {
		t.Fatalf("expected empty endpoint, got %s", got)
	}
}
