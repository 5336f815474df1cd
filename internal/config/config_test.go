package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT", "SESSION_SECRET",
		"SESSION_MAX_AGE_SECONDS", "CORS_ALLOWED_ORIGINS", "BACKEND_URL",
		"BACKEND_MAX_CONNS", "BACKEND_TIMEOUT_SECONDS", "AUDIT_REDIS_URL",
		"AUDIT_RETENTION_HOURS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.BackendMaxConns != 16 {
		t.Errorf("BackendMaxConns = %d, want 16", cfg.BackendMaxConns)
	}
	if cfg.BackendTimeout() != 10*time.Second {
		t.Errorf("BackendTimeout = %v, want 10s", cfg.BackendTimeout())
	}
	if !cfg.SessionSecretEphemeral || len(cfg.SessionSecret) < minSessionSecretLength {
		t.Errorf("expected generated session secret, got %q", cfg.SessionSecret)
	}
	if cfg.AuditRedisURL != "" {
		t.Errorf("audit should be disabled by default, got %q", cfg.AuditRedisURL)
	}
}

func TestLoadReleaseRequiresSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GIN_MODE", "release")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SESSION_SECRET is missing in release mode")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("expected SESSION_SECRET error, got %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 40))
	t.Setenv("BACKEND_URL", "http://deepwell:2747")
	t.Setenv("BACKEND_MAX_CONNS", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SessionSecretEphemeral {
		t.Error("explicit secret must not be marked ephemeral")
	}
	if cfg.BackendURL != "http://deepwell:2747" || cfg.BackendMaxConns != 4 {
		t.Errorf("unexpected backend settings: %q %d", cfg.BackendURL, cfg.BackendMaxConns)
	}
	origins := cfg.AllowedOrigins()
	if len(origins) != 2 || origins[0] != "https://a.example" || origins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %#v", origins)
	}
}

func TestValidateRejectsNonPositivePool(t *testing.T) {
	cfg := &Config{
		SessionSecret:         strings.Repeat("x", 32),
		BackendURL:            "http://backend",
		BackendMaxConns:       0,
		BackendTimeoutSeconds: 1,
		SessionMaxAgeSeconds:  60,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for BACKEND_MAX_CONNS=0")
	}
}
