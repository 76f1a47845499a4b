package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BACKEND_BASE_URL", "")
	t.Setenv("SNAPSHOT_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BackendBaseURL != "http://localhost:3333" {
		t.Fatalf("expected default backend url, got %s", cfg.BackendBaseURL)
	}
	if cfg.SnapshotTTL != 24*time.Hour {
		t.Fatalf("expected default snapshot ttl, got %s", cfg.SnapshotTTL)
	}
	if cfg.DashboardSessionID != "default" {
		t.Fatalf("expected default session id, got %s", cfg.DashboardSessionID)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no default origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RedisTLS {
		t.Fatalf("expected redis tls disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BACKEND_BASE_URL", "https://api.duofisio.app")
	t.Setenv("BACKEND_TOKEN", "tok-1")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SNAPSHOT_TTL", "45m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://duofisio.app, https://staging.duofisio.app,")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.BackendBaseURL != "https://api.duofisio.app" {
		t.Fatalf("expected backend url override, got %s", cfg.BackendBaseURL)
	}
	if cfg.BackendToken != "tok-1" {
		t.Fatalf("expected token override, got %s", cfg.BackendToken)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.SnapshotTTL != 45*time.Minute {
		t.Fatalf("expected snapshot ttl override, got %s", cfg.SnapshotTTL)
	}
	want := []string{"https://duofisio.app", "https://staging.duofisio.app"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("expected trimmed origin list, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REDIS_TLS", "maybe")
	t.Setenv("SNAPSHOT_TTL", "soon")
	cfg := Load()
	if cfg.RedisTLS {
		t.Fatalf("expected unparseable bool to fall back")
	}
	if cfg.SnapshotTTL != 24*time.Hour {
		t.Fatalf("expected unparseable duration to fall back, got %s", cfg.SnapshotTTL)
	}
}
