package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/skale?sslmode=disable")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
}

func TestFromEnvAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default http addr, got %q", cfg.HTTPAddr)
	}
	if cfg.LeadFormCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.LeadFormCacheTTL)
	}
	if cfg.GetPhoneDefaultRegion() != "US" {
		t.Fatalf("expected US phone region, got %q", cfg.GetPhoneDefaultRegion())
	}
	if cfg.IsSMTPEnabled() || cfg.IsMinIOEnabled() || cfg.IsRedisEnabled() {
		t.Fatal("expected optional integrations to be disabled by default")
	}
}

func TestFromEnvRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := fromEnv(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestFromEnvRejectsSMTPWithoutFromAddress(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("EMAIL_FROM_ADDRESS", "")

	if _, err := fromEnv(); err == nil {
		t.Fatal("expected error when SMTP is enabled without a from address")
	}
}

func TestFromEnvWildcardOriginEnablesAllowAll(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ORIGINS", "https://skale.club, *")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.CORSAllowAll {
		t.Fatal("expected wildcard origin to enable CORSAllowAll")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
}
