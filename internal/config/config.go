// Package config provides configuration management functionality.
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

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Order execution
	DefaultRoundUpSymbol string        // Instrument bought by round-ups without a target
	LookupTimeout        time.Duration // Upper bound for a single price or ESG lookup
	UnitOfWorkAttempts   int           // Attempts before a version conflict is surfaced

	// Market data
	PriceSource    string // "static" or "http"
	QuoteAPIURL    string
	QuoteRateLimit int // requests per second against QuoteAPIURL
	PriceCacheTTL  time.Duration

	Schedules *ScheduleConfig
	Backup    *BackupConfig
}

// ScheduleConfig holds cron expressions for background jobs.
// An empty expression disables the job.
type ScheduleConfig struct {
	Snapshot    string
	Maintenance string
	Backup      string
}

// BackupConfig holds S3-compatible backup settings
type BackupConfig struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // Optional custom endpoint (R2, MinIO)
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int // 0 keeps every backup
}

// Enabled reports whether enough settings are present to upload backups.
func (b *BackupConfig) Enabled() bool {
	return b != nil && b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		Port:                 getEnvAsInt("PORT", 8080),
		DevMode:              getEnvAsBool("DEV_MODE", false),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DefaultRoundUpSymbol: strings.ToUpper(getEnv("DEFAULT_ROUND_UP_SYMBOL", "VTI")),
		LookupTimeout:        getEnvAsDuration("LOOKUP_TIMEOUT", 5*time.Second),
		UnitOfWorkAttempts:   getEnvAsInt("UOW_MAX_ATTEMPTS", 3),
		PriceSource:          strings.ToLower(getEnv("PRICE_SOURCE", "static")),
		QuoteAPIURL:          getEnv("QUOTE_API_URL", ""),
		QuoteRateLimit:       getEnvAsInt("QUOTE_RATE_LIMIT", 5),
		PriceCacheTTL:        getEnvAsDuration("PRICE_CACHE_TTL", 30*time.Second),
		Schedules: &ScheduleConfig{
			Snapshot:    getEnv("SNAPSHOT_SCHEDULE", "0 0 22 * * *"),
			Maintenance: getEnv("MAINTENANCE_SCHEDULE", "0 30 2 * * *"),
			Backup:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
		},
		Backup: &BackupConfig{
			Bucket:          getEnv("BACKUP_BUCKET", ""),
			Prefix:          getEnv("BACKUP_PREFIX", "portfolio-engine"),
			Region:          getEnv("BACKUP_REGION", "auto"),
			Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
			AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DefaultRoundUpSymbol == "" {
		return fmt.Errorf("DEFAULT_ROUND_UP_SYMBOL must not be empty")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("LOOKUP_TIMEOUT must be positive, got %s", c.LookupTimeout)
	}
	if c.UnitOfWorkAttempts < 1 {
		return fmt.Errorf("UOW_MAX_ATTEMPTS must be at least 1, got %d", c.UnitOfWorkAttempts)
	}

	switch c.PriceSource {
	case "static":
	case "http":
		if c.QuoteAPIURL == "" {
			return fmt.Errorf("QUOTE_API_URL is required when PRICE_SOURCE=http")
		}
		if c.QuoteRateLimit <= 0 {
			return fmt.Errorf("QUOTE_RATE_LIMIT must be positive, got %d", c.QuoteRateLimit)
		}
	default:
		return fmt.Errorf("unsupported PRICE_SOURCE %q (use \"static\" or \"http\")", c.PriceSource)
	}

	if c.Backup.Enabled() && (c.Backup.AccessKeyID == "") != (c.Backup.SecretAccessKey == "") {
		return fmt.Errorf("BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY must be set together")
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("BACKUP_RETENTION_DAYS must not be negative, got %d", c.Backup.RetentionDays)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
