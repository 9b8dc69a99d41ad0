package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 4000 || cfg.Env != "development" {
		t.Fatalf("unexpected defaults: port=%d env=%s", cfg.Port, cfg.Env)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN != "tracker.db" {
		t.Fatalf("unexpected db defaults: %+v", cfg.DB)
	}
	if cfg.JWT.TTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day token ttl; got %v", cfg.JWT.TTL)
	}
	if !cfg.Limiter.Enabled || cfg.Limiter.Burst != 8 {
		t.Fatalf("unexpected limiter defaults: %+v", cfg.Limiter)
	}
	if cfg.ReconcileOnStart {
		t.Fatalf("reconcile on start must default to false")
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development mode")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	yaml := `
port: 5000
env: staging
db:
  driver: postgres
  dsn: postgres://tracker@localhost/tracker?sslmode=disable
jwt:
  ttl: 2h
limiter:
  enabled: false
reconcile_on_start: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("TRACKER_PORT", "6000")
	t.Setenv("TRACKER_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 6000 {
		t.Fatalf("env must override file; got port %d", cfg.Port)
	}
	if cfg.Env != "staging" || cfg.IsDevelopment() {
		t.Fatalf("expected staging; got %s", cfg.Env)
	}
	if cfg.DB.Driver != "postgres" || cfg.DB.DSN != "postgres://tracker@localhost/tracker?sslmode=disable" {
		t.Fatalf("unexpected db config: %+v", cfg.DB)
	}
	if cfg.JWT.TTL != 2*time.Hour || cfg.JWT.Secret != "from-env" {
		t.Fatalf("unexpected jwt config: %+v", cfg.JWT)
	}
	if cfg.Limiter.Enabled {
		t.Fatalf("expected limiter disabled")
	}
	if !cfg.ReconcileOnStart {
		t.Fatalf("expected reconcile on start")
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"env", "TRACKER_ENV", "qa"},
		{"driver", "TRACKER_DB_DRIVER", "mysql"},
		{"port", "TRACKER_PORT", "70000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestValidate_RequiresDSN(t *testing.T) {
	cfg := Config{Port: 4000, Env: "production", DB: DBConfig{Driver: "sqlite"}}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
	cfg.DB.DSN = "tracker.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
