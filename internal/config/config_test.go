package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.DBPath = "/tmp/tasks.db"
	cfg.WebPort = 9090

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestApplyEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("REDIS_ADDR=localhost:6379\nSYNC_TIMEOUT_SECONDS=5\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("PORT", "9191")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SYNC_TIMEOUT_SECONDS", "")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("SYNC_TIMEOUT_SECONDS")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}

	cfg, err := ApplyEnv(Default())
	if err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.WebPort != 9191 {
		t.Fatalf("expected port 9191, got %d", cfg.WebPort)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr from .env, got %q", cfg.RedisAddr)
	}
	if cfg.SyncTimeout() != 5*time.Second {
		t.Fatalf("expected 5s sync timeout, got %s", cfg.SyncTimeout())
	}
}

func TestApplyEnvRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")
	if _, err := ApplyEnv(Default()); err == nil {
		t.Fatalf("expected bad PORT to fail")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing db_path to fail")
	}
	cfg.DBPath = "tasks.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.CORSOrigin = "localhost:3000"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected cors_origin without scheme to fail")
	}
	cfg.CORSOrigin = "https://app.example"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.DBDriver = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing database_url to fail")
	}
	cfg.DBDriver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "DEBUG"
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Fatalf("expected debug level")
	}
}
