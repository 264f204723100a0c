package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver           string `json:"db_driver"`
	DBPath             string `json:"db_path"`
	DatabaseURL        string `json:"database_url,omitempty"`
	WebPort            int    `json:"web_port"`
	RedisAddr          string `json:"redis_addr,omitempty"`
	SyncURL            string `json:"sync_url"`
	SyncTimeoutSeconds int    `json:"sync_timeout_seconds"`
	CORSOrigin         string `json:"cors_origin"`
	LogLevel           string `json:"log_level"`
}

func Default() Config {
	return Config{
		DBDriver:           "sqlite",
		WebPort:            8080,
		SyncURL:            "https://jsonplaceholder.typicode.com/todos",
		SyncTimeoutSeconds: 30,
		CORSOrigin:         "http://localhost:8080",
		LogLevel:           "info",
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "taskmanager", "config.json"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return config, nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadDotEnv reads KEY=VALUE pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with DB_DRIVER, DB_PATH, DB_URL, PORT, REDIS_ADDR,
// SYNC_URL, SYNC_TIMEOUT_SECONDS, CORS_ORIGIN and LOG_LEVEL when set.
func ApplyEnv(cfg Config) (Config, error) {
	if value := os.Getenv("DB_DRIVER"); value != "" {
		cfg.DBDriver = value
	}
	if value := os.Getenv("DB_PATH"); value != "" {
		cfg.DBPath = value
	}
	if value := os.Getenv("DB_URL"); value != "" {
		cfg.DatabaseURL = value
	}
	if value := os.Getenv("PORT"); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
		cfg.WebPort = port
	}
	if value := os.Getenv("REDIS_ADDR"); value != "" {
		cfg.RedisAddr = value
	}
	if value := os.Getenv("SYNC_URL"); value != "" {
		cfg.SyncURL = value
	}
	if value := os.Getenv("SYNC_TIMEOUT_SECONDS"); value != "" {
		seconds, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse SYNC_TIMEOUT_SECONDS: %w", err)
		}
		cfg.SyncTimeoutSeconds = seconds
	}
	if value := os.Getenv("CORS_ORIGIN"); value != "" {
		cfg.CORSOrigin = value
	}
	if value := os.Getenv("LOG_LEVEL"); value != "" {
		cfg.LogLevel = value
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("db_path is required for sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	if c.CORSOrigin != "" && c.CORSOrigin != "*" &&
		!strings.HasPrefix(c.CORSOrigin, "http://") && !strings.HasPrefix(c.CORSOrigin, "https://") {
		return fmt.Errorf("cors_origin %q must start with http:// or https://", c.CORSOrigin)
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web_port %d", c.WebPort)
	}
	return nil
}

func (c Config) SyncTimeout() time.Duration {
	if c.SyncTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SyncTimeoutSeconds) * time.Second
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
