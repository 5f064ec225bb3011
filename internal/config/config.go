// Package config provides centralized configuration management for the notes API.
// It loads configuration from environment variables (optionally seeded from a
// .env file), validates the result, and provides sensible defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kuitang/notes-api/internal/ratelimit"
)

const (
	defaultPort     = 3000
	defaultDBHost   = "localhost"
	defaultDBPort   = 5432
	defaultDBUser   = "notes"
	defaultDBPass   = "notes"
	defaultDBName   = "notes"
	defaultSSLMode  = "disable"
	defaultLogLevel = "info"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port            int
	ShutdownTimeout time.Duration
	LogLevel        string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Rate limiting (RPS of 0 disables the limiter)
	RateLimitConfig ratelimit.Config
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// LoadDotEnv seeds the process environment from path (or ./.env when empty).
// Variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig loads configuration from environment variables.
// A positive port overrides the PORT env var.
func LoadConfig(port int) (*Config, error) {
	cfg := &Config{}

	cfg.Port = parseIntOrDefault("PORT", defaultPort)
	if port > 0 {
		cfg.Port = port
	}
	cfg.ShutdownTimeout = parseDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("LOG_LEVEL", defaultLogLevel))

	cfg.DBHost = getEnvOrDefault("DB_HOST", defaultDBHost)
	cfg.DBPort = parseIntOrDefault("DB_PORT", defaultDBPort)
	cfg.DBUser = getEnvOrDefault("DB_USER", defaultDBUser)
	cfg.DBPassword = getEnvOrDefault("DB_PASSWORD", defaultDBPass)
	cfg.DBName = getEnvOrDefault("DB_NAME", defaultDBName)
	cfg.DBSSLMode = getEnvOrDefault("DB_SSLMODE", defaultSSLMode)

	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", 0),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", ratelimit.DefaultConfig.CleanupInterval),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be between 1 and 65535 (got %d)", c.Port))
	}
	if c.DBPort < 1 || c.DBPort > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be between 1 and 65535 (got %d)", c.DBPort))
	}
	if c.DBHost == "" {
		errs = append(errs, "DB_HOST is required")
	}
	if c.DBUser == "" {
		errs = append(errs, "DB_USER is required")
	}
	if c.DBName == "" {
		errs = append(errs, "DB_NAME is required")
	}
	if _, ok := parseLogLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", c.LogLevel))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT must be positive")
	}

	if c.RateLimitConfig.RPS < 0 {
		errs = append(errs, "RATE_LIMIT_RPS must not be negative")
	}
	if c.RateLimitConfig.Enabled() {
		if c.RateLimitConfig.Burst <= 0 {
			errs = append(errs, "RATE_LIMIT_BURST must be positive when rate limiting is enabled")
		}
		if c.RateLimitConfig.CleanupInterval <= 0 {
			errs = append(errs, "RATE_LIMIT_CLEANUP_INTERVAL must be positive when rate limiting is enabled")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// DSN returns the PostgreSQL connection string in URL form.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// SlogLevel returns the configured log level. Unknown values map to info.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLogLevel(c.LogLevel)
	return level
}

// LogStartupSummary writes a one-line summary of the configuration. The
// database password is never logged.
func (c *Config) LogStartupSummary(logger *slog.Logger) {
	logger.Info("config_loaded",
		"listen", c.ListenAddr(),
		"db_host", c.DBHost,
		"db_port", c.DBPort,
		"db_user", c.DBUser,
		"db_password", "[REDACTED]",
		"db_name", c.DBName,
		"db_sslmode", c.DBSSLMode,
		"log_level", c.LogLevel,
		"rate_limit_rps", c.RateLimitConfig.RPS,
		"rate_limit_burst", c.RateLimitConfig.Burst,
	)
}

func parseLogLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
