package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_PUBLIC_URL", "https://api.example.com/")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "callbridge")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode default disable, got %q", cfg.DB.SSLMode)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access ttl: %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Billing.FUPMinutes != 2000 {
		t.Fatalf("expected FUP default 2000, got %d", cfg.Billing.FUPMinutes)
	}
	if cfg.Billing.RenewalInterval != time.Hour {
		t.Fatalf("expected hourly renewal default, got %v", cfg.Billing.RenewalInterval)
	}
	if cfg.App.PublicURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.App.PublicURL)
	}
}

func TestLoad_MissingPublicURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_PUBLIC_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "APP_PUBLIC_URL") {
		t.Fatalf("expected APP_PUBLIC_URL error, got %v", err)
	}
}

func TestValidate_ProductionRequiresWebhookSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("JWT_ISSUER", "callbridge")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "TWILIO_WEBHOOK_SECRET") {
		t.Fatalf("expected webhook secret error, got %v", err)
	}

	t.Setenv("TWILIO_WEBHOOK_SECRET", "tok")
	if _, err := Load(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
