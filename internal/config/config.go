package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"expense-tracker/internal/storage"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Log      LogConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver          string // sqlite, sqlite3 (cgo builds) or postgres
	Path            string // SQLite file path or postgres connection URL
	MaxOpenConns    int
	MaxIdleConns    int
	BusyTimeout     time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string // trace, debug, info, warn or error
	File       string // rotating log file; empty logs to the console only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the given .env files (".env" when none are named), then builds
// the configuration from the environment. Variables already set in the
// environment win over .env values; missing .env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", storage.DriverSQLite),
			Path:            getEnv("DB_PATH", storage.DefaultPath),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			BusyTimeout:     getDurationEnv("DB_BUSY_TIMEOUT", 5*time.Second),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			QueryTimeout:    getDurationEnv("DB_QUERY_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getIntEnv("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getIntEnv("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getIntEnv("LOG_MAX_AGE_DAYS", 30),
			Compress:   getBoolEnv("LOG_COMPRESS", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the storage layer cannot use.
func (c *Config) Validate() error {
	if !slices.Contains(storage.Drivers(), c.Database.Driver) {
		return fmt.Errorf("DB_DRIVER %q is not supported (available: %s)",
			c.Database.Driver, strings.Join(storage.Drivers(), ", "))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("DB_PATH is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return errors.New("DB_MAX_OPEN_CONNS must be positive")
	}
	if c.Database.MaxIdleConns <= 0 {
		return errors.New("DB_MAX_IDLE_CONNS must be positive")
	}
	if c.Database.BusyTimeout <= 0 {
		return errors.New("DB_BUSY_TIMEOUT must be positive")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME must be positive")
	}
	if c.Database.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Log.Level)
	}
	return nil
}

// StorageOptions converts the database settings into engine options.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:          c.Database.Driver,
		Path:            c.Database.Path,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		BusyTimeout:     c.Database.BusyTimeout,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		QueryTimeout:    c.Database.QueryTimeout,
	}
}

// String returns a string representation of the config (credentials in a
// connection URL are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s %s, Log: %s}", c.Database.Driver, redact(c.Database.Path), c.Log.Level)
}

func redact(location string) string {
	u, err := url.Parse(location)
	if err != nil || u.User == nil {
		return location
	}
	return u.Redacted()
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}
