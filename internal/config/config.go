package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	// Environment
	Environment string // "development" or "production"
	LogLevel    string
	HTTPAddr    string

	// Storage
	StorageType string
	DataDir     string
	DatabaseURL string

	// Timers
	TickInterval       time.Duration
	FactInterval       time.Duration
	PartySweepInterval time.Duration

	// Quiz policy
	QuizAllowRetry  bool
	QuizMaxAttempts int

	// Oracle
	OracleURL     string
	OracleAPIKey  string
	OracleModel   string
	OracleTimeout time.Duration

	StoreCatalogPath string

	// Elasticsearch audit index, disabled when URL is empty
	ElasticsearchURL         string
	ElasticsearchUsername    string
	ElasticsearchPassword    string
	ElasticsearchIndexPrefix string

	// S3 wallet snapshots, disabled when bucket is empty
	BackupBucket          string
	BackupPrefix          string
	BackupInterval        time.Duration
	BackupEndpoint        string
	BackupRegion          string
	BackupAccessKeyID     string
	BackupSecretAccessKey string

	// Discord configuration, disabled when token is empty
	DiscordToken   string
	DiscordAppID   string
	DiscordGuildID string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.StorageType == StorageFile || cfg.StorageType == StorageSQLite {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// FromEnv builds a Config from the current process environment without touching .env
func FromEnv() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg := &Config{
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "INFO"),
		HTTPAddr:    getEnvWithDefault("HTTP_ADDR", ":8080"),

		StorageType: getEnvWithDefault("STORAGE_TYPE", StorageMemory),
		DataDir:     getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data")),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		OracleURL:    os.Getenv("ORACLE_URL"),
		OracleAPIKey: os.Getenv("ORACLE_API_KEY"),
		OracleModel:  getEnvWithDefault("ORACLE_MODEL", "gpt-4o-mini"),

		StoreCatalogPath: os.Getenv("STORE_CATALOG_PATH"),

		ElasticsearchURL:         os.Getenv("ELASTICSEARCH_URL"),
		ElasticsearchUsername:    os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticsearchPassword:    os.Getenv("ELASTICSEARCH_PASSWORD"),
		ElasticsearchIndexPrefix: getEnvWithDefault("ELASTICSEARCH_INDEX_PREFIX", "quantumtheater"),

		BackupBucket:          os.Getenv("BACKUP_BUCKET"),
		BackupPrefix:          getEnvWithDefault("BACKUP_PREFIX", "wallet-snapshots"),
		BackupEndpoint:        os.Getenv("BACKUP_ENDPOINT"),
		BackupRegion:          getEnvWithDefault("BACKUP_REGION", "auto"),
		BackupAccessKeyID:     os.Getenv("BACKUP_ACCESS_KEY_ID"),
		BackupSecretAccessKey: os.Getenv("BACKUP_SECRET_ACCESS_KEY"),

		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordAppID:   os.Getenv("DISCORD_APP_ID"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"TICK_INTERVAL", 10 * time.Second, &cfg.TickInterval},
		{"FACT_INTERVAL", 15 * time.Second, &cfg.FactInterval},
		{"PARTY_SWEEP_INTERVAL", 60 * time.Second, &cfg.PartySweepInterval},
		{"ORACLE_TIMEOUT", 30 * time.Second, &cfg.OracleTimeout},
		{"BACKUP_INTERVAL", time.Hour, &cfg.BackupInterval},
	}
	for _, d := range durations {
		v, err := getDurationWithDefault(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if cfg.QuizAllowRetry, err = getBoolWithDefault("QUIZ_ALLOW_RETRY", true); err != nil {
		return nil, err
	}
	if cfg.QuizMaxAttempts, err = getIntWithDefault("QUIZ_MAX_ATTEMPTS", 0); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	switch c.StorageType {
	case StorageMemory, StorageFile, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_TYPE is postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_TYPE %q", c.StorageType)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.FactInterval <= 0 {
		return fmt.Errorf("FACT_INTERVAL must be positive")
	}
	if c.PartySweepInterval <= 0 {
		return fmt.Errorf("PARTY_SWEEP_INTERVAL must be positive")
	}
	if c.QuizMaxAttempts < 0 {
		return fmt.Errorf("QUIZ_MAX_ATTEMPTS cannot be negative")
	}
	if c.DiscordToken != "" && c.DiscordAppID == "" {
		return fmt.Errorf("DISCORD_APP_ID is required when DISCORD_TOKEN is set")
	}
	if c.BackupBucket != "" && c.BackupInterval <= 0 {
		return fmt.Errorf("BACKUP_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}
