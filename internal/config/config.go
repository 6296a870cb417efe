// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Dedupe backends.
const (
	DedupeMemory = "memory"
	DedupeRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory event queue across all partitions.
	QueueSize int `koanf:"queue_size"`

	// PartitionCount sets the number of queue partitions and therefore of
	// workers. Each aggregate is owned by exactly one partition.
	PartitionCount int `koanf:"partition_count"`

	// Dedupe settings.
	DedupeBackend string        `koanf:"dedupe_backend"`
	DedupeSize    int           `koanf:"dedupe_size"`
	DedupeTTL     time.Duration `koanf:"dedupe_ttl"`

	// Redis settings, used by the redis dedupe backend.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// StoreDriver selects the aggregate store: memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`
	// DatabaseDSN is the sqlite path or postgres connection string.
	DatabaseDSN string `koanf:"database_dsn"`

	// MaxRecommendations is the default limit of POST /v1/recommendations.
	MaxRecommendations int `koanf:"max_recommendations"`

	// IntakeRatePerSec throttles POST /v1/events; 0 disables throttling.
	IntakeRatePerSec float64 `koanf:"intake_rate_per_sec"`
	IntakeBurst      int     `koanf:"intake_burst"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// TraceStdout exports spans to stdout.
	TraceStdout bool `koanf:"trace_stdout"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP server and workers.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "json",
		Addr:               ":9080",
		QueueSize:          100_000,
		PartitionCount:     8,
		DedupeBackend:      DedupeMemory,
		DedupeSize:         500_000,
		DedupeTTL:          24 * time.Hour,
		RedisAddr:          "localhost:6379",
		StoreDriver:        DriverMemory,
		MaxRecommendations: 5,
		IntakeBurst:        100,
		CORSAllowedOrigins: []string{"*"},
		ShutdownTimeout:    10 * time.Second,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.PartitionCount <= 0:
		return fmt.Errorf("%w: partition_count must be positive, got %d", ErrInvalidConfig, c.PartitionCount)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxRecommendations < 0:
		return fmt.Errorf("%w: max_recommendations must not be negative", ErrInvalidConfig)
	case c.IntakeRatePerSec < 0:
		return fmt.Errorf("%w: intake_rate_per_sec must not be negative", ErrInvalidConfig)
	}

	switch strings.ToLower(c.StoreDriver) {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: database_dsn is required for store_driver %q", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	switch strings.ToLower(c.DedupeBackend) {
	case DedupeMemory:
	case DedupeRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr is required for dedupe_backend redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown dedupe_backend %q", ErrInvalidConfig, c.DedupeBackend)
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
