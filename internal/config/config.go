// Package config defines the top-level configuration for the fraud detection
// pipeline and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SENTINEL_* environment
// variables.
type Config struct {
	Dataset   DatasetConfig   `toml:"dataset"`
	Training  TrainingConfig  `toml:"training"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Server    ServerConfig    `toml:"server"`
	Retention RetentionConfig `toml:"retention"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatasetConfig names the input CSV files used by train mode.
type DatasetConfig struct {
	TransactionsCSV string `toml:"transactions_csv"`
	FeaturesCSV     string `toml:"features_csv"`
}

// TrainingConfig holds pipeline hyperparameters shared by every run.
type TrainingConfig struct {
	DefaultModel   string  `toml:"default_model"`
	NoSearch       bool    `toml:"no_search"`
	Seed           int64   `toml:"seed"`
	TestFraction   float64 `toml:"test_fraction"`
	IQRFactor      float64 `toml:"iqr_factor"`
	CVFolds        int     `toml:"cv_folds"`
	SMOTENeighbors int     `toml:"smote_neighbors"`
	TargetRatio    float64 `toml:"target_ratio"`
}

// PostgresConfig holds PostgreSQL connection parameters. When Enabled is
// false the server falls back to in-memory stores.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// server falls back to in-memory caches and locks.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for run archival.
// When Enabled is false archival is skipped entirely.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"` // requests/minute per client, 0 disables
}

// RetentionConfig bounds the stored run history and activity feed.
type RetentionConfig struct {
	HistoryRuns    int `toml:"history_runs"`
	ActivityEvents int `toml:"activity_events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Dataset: DatasetConfig{
			TransactionsCSV: "data/transactions.csv",
			FeaturesCSV:     "data/features.csv",
		},
		Training: TrainingConfig{
			DefaultModel:   string(domain.DefaultModelFamily),
			NoSearch:       false,
			Seed:           42,
			TestFraction:   0.2,
			IQRFactor:      1.5,
			CVFolds:        5,
			SMOTENeighbors: 5,
			TargetRatio:    1.0,
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "ethsentinel",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "ethsentinel-runs",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   0,
		},
		Retention: RetentionConfig{
			HistoryRuns:    24,
			ActivityEvents: 50,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"train":  true,
	"server": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: train, server, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Dataset — required for modes that run the pipeline at startup.
	needsDataset := c.Mode == "train" || c.Mode == "full"
	if needsDataset {
		if c.Dataset.TransactionsCSV == "" {
			errs = append(errs, "dataset: transactions_csv must not be empty for mode "+c.Mode)
		}
		if c.Dataset.FeaturesCSV == "" {
			errs = append(errs, "dataset: features_csv must not be empty for mode "+c.Mode)
		}
	}

	// Training
	if _, err := domain.ParseModelFamily(c.Training.DefaultModel); err != nil {
		errs = append(errs, fmt.Sprintf("training: %v", err))
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		errs = append(errs, fmt.Sprintf("training: test_fraction must be in (0, 1), got %g", c.Training.TestFraction))
	}
	if c.Training.IQRFactor <= 0 {
		errs = append(errs, "training: iqr_factor must be > 0")
	}
	if c.Training.CVFolds < 2 {
		errs = append(errs, "training: cv_folds must be >= 2")
	}
	if c.Training.SMOTENeighbors < 1 {
		errs = append(errs, "training: smote_neighbors must be >= 1")
	}
	if c.Training.TargetRatio <= 0 || c.Training.TargetRatio > 1 {
		errs = append(errs, fmt.Sprintf("training: target_ratio must be in (0, 1], got %g", c.Training.TargetRatio))
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Server — always validated; server is part of both server and full modes.
	if c.Mode == "server" || c.Mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Retention
	if c.Retention.HistoryRuns < 1 {
		errs = append(errs, "retention: history_runs must be >= 1")
	}
	if c.Retention.ActivityEvents < 1 {
		errs = append(errs, "retention: activity_events must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
