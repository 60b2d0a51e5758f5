package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

type Config struct {
	// HTTP Server
	Port string
	// Per client, on mutating routes; 0 disables the limiter.
	RateLimitPerMinute int

	// Storage
	StorageBackend string
	DBPath         string
	SeedDir        string
	FlushInterval  time.Duration

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel  string
	LogFormat string

	// Ledger
	DefaultCurrency     string
	ProjectionCacheSize int
	ProjectionCacheTTL  time.Duration
	Timezone            string

	// Audit worker
	AuditSummaryInterval time.Duration

	ShutdownTimeout time.Duration
}

var (
	validBackends   = []string{"sqlite", "memory"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"text", "json"}
)

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		StorageBackend: getEnv("STORAGE_BACKEND", "sqlite"),
		DBPath:         getEnv("LEDGER_DB_PATH", "./data/fintrack.db"),
		SeedDir:        getEnv("SEED_DIR", ""),
		FlushInterval:  getEnvDuration("FLUSH_INTERVAL", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		DefaultCurrency:     strings.ToUpper(getEnv("DEFAULT_CURRENCY", core.DefaultCurrency)),
		ProjectionCacheSize: getEnvInt("PROJECTION_CACHE_SIZE", 64),
		ProjectionCacheTTL:  getEnvDuration("PROJECTION_CACHE_TTL", 5*time.Minute),
		Timezone:            getEnv("TIMEZONE", ""),

		AuditSummaryInterval: getEnvDuration("AUDIT_SUMMARY_INTERVAL", time.Hour),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate returns every problem found, not just the first.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must not be negative", c.RateLimitPerMinute))
	}

	if !slices.Contains(validBackends, c.StorageBackend) {
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.StorageBackend, validBackends))
	}
	if c.StorageBackend == "sqlite" {
		if c.DBPath == "" {
			problems = append(problems, "database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.DBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
			}
		}
	}
	if c.SeedDir != "" {
		if info, err := os.Stat(c.SeedDir); err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("seed directory '%s' does not exist", c.SeedDir))
		}
	}
	if c.FlushInterval < 0 {
		problems = append(problems, fmt.Sprintf("invalid flush interval %v: must not be negative", c.FlushInterval))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !slices.Contains(validLogLevels, c.LogLevel) {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if _, err := core.ParseCurrency(c.DefaultCurrency); err != nil {
		problems = append(problems, fmt.Sprintf("invalid default currency '%s'", c.DefaultCurrency))
	}
	if c.ProjectionCacheSize < 1 || c.ProjectionCacheSize > 10000 {
		problems = append(problems, fmt.Sprintf("invalid projection cache size %d: must be between 1 and 10000", c.ProjectionCacheSize))
	}
	if c.ProjectionCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid projection cache ttl %v: must not be negative", c.ProjectionCacheTTL))
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.ShutdownTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// Location resolves Timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
