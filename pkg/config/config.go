package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	AccountID string

	// Database
	DatabaseURL string
	SQLitePath  string

	// Redis
	RedisURL string

	// RabbitMQ
	RabbitMQURL string

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool

	// Selection editing
	EditDays     int
	EditTimezone string
	PriceTiers   string

	// Catalog
	CatalogPath     string
	CatalogCacheTTL time.Duration

	// Dependencies
	DependencyTimeout       time.Duration
	BreakerFailureThreshold int
	BreakerOpenTimeout      time.Duration

	// Plan change
	WorkflowTTL            time.Duration
	DeclinedPaymentMethods []string

	// Worker
	WorkerHealthAddr string
	MetricsAddr      string

	// HTTP API
	APIAddr string

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// Load loads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		AccountID: getEnv("AROMABOX_ACCOUNT_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("AROMABOX_SQLITE_PATH", defaultSQLitePath()),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		EditDays:     getIntEnv("EDIT_DAYS", 7),
		EditTimezone: getEnv("EDIT_TIMEZONE", "UTC"),
		PriceTiers:   getEnv("PRICE_TIERS", "100:1000,250:1500,*:2200"),

		CatalogPath:     getEnv("CATALOG_PATH", ""),
		CatalogCacheTTL: getDurationEnv("CATALOG_CACHE_TTL", 10*time.Minute),

		DependencyTimeout:       getDurationEnv("DEPENDENCY_TIMEOUT", 2*time.Second),
		BreakerFailureThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerOpenTimeout:      getDurationEnv("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		WorkflowTTL:            getDurationEnv("WORKFLOW_TTL", 24*time.Hour),
		DeclinedPaymentMethods: getListEnv("DECLINED_PAYMENT_METHODS"),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		MetricsAddr:      getEnv("METRICS_ADDR", "0.0.0.0:9090"),

		APIAddr: getEnv("API_ADDR", "0.0.0.0:8080"),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.EditDays < 0 {
		return fmt.Errorf("EDIT_DAYS must not be negative, got %d", c.EditDays)
	}
	if _, err := time.LoadLocation(c.EditTimezone); err != nil {
		return fmt.Errorf("EDIT_TIMEZONE: %w", err)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive, got %d", c.OutboxBatchSize)
	}
	return nil
}

// LocalMode reports whether the embedded SQLite database is used.
func (c *Config) LocalMode() bool {
	return c.DatabaseURL == ""
}

// Location returns the zone month boundaries are computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.EditTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aromabox", "aromabox.db")
	}
	return filepath.Join(home, ".aromabox", "aromabox.db")
}
