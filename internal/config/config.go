// Package config loads and validates the engine's configuration. Every knob
// is range-checked at startup; out-of-range values are load errors, never
// silently clamped.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DBConfig holds PostgreSQL connection settings for the cycle store.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort    string
	LogLevel      slog.Level
	LogFormat     string
	MaxWorkers    int
	ReviewersFile string
	CycleStore    string // "memory" or "postgres"
	Database      *DBConfig

	// Consolidation knobs.
	SimilarityThreshold  float64
	LineProximityWindow  int
	ConfidenceFloor      float64
	MaxCycleIterations   int
	ImprovementRateFloor float64
	PerReviewerTimeout   time.Duration
	MaxThemes            int
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates every field. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("MAX_WORKERS", 5)
	viper.SetDefault("REVIEWERS_FILE", "reviewers.yaml")
	viper.SetDefault("CYCLE_STORE", "memory")

	viper.SetDefault("SIMILARITY_THRESHOLD", 0.80)
	viper.SetDefault("LINE_PROXIMITY_WINDOW", 10)
	viper.SetDefault("CONFIDENCE_FLOOR", 0.60)
	viper.SetDefault("MAX_CYCLE_ITERATIONS", 2)
	viper.SetDefault("IMPROVEMENT_RATE_FLOOR", 0.50)
	viper.SetDefault("PER_REVIEWER_TIMEOUT", "5m")
	viper.SetDefault("MAX_THEMES", 10)

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_USER", "quorum")
	viper.SetDefault("DB_NAME", "quorum")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "15m")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := &Config{
		ServerPort:    viper.GetString("SERVER_PORT"),
		LogLevel:      parseLogLevel(viper.GetString("LOG_LEVEL")),
		LogFormat:     viper.GetString("LOG_FORMAT"),
		MaxWorkers:    viper.GetInt("MAX_WORKERS"),
		ReviewersFile: viper.GetString("REVIEWERS_FILE"),
		CycleStore:    strings.ToLower(viper.GetString("CYCLE_STORE")),
		Database: &DBConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			Username:        viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			ConnMaxLifetime: viper.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: viper.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		SimilarityThreshold:  viper.GetFloat64("SIMILARITY_THRESHOLD"),
		LineProximityWindow:  viper.GetInt("LINE_PROXIMITY_WINDOW"),
		ConfidenceFloor:      viper.GetFloat64("CONFIDENCE_FLOOR"),
		MaxCycleIterations:   viper.GetInt("MAX_CYCLE_ITERATIONS"),
		ImprovementRateFloor: viper.GetFloat64("IMPROVEMENT_RATE_FLOOR"),
		PerReviewerTimeout:   viper.GetDuration("PER_REVIEWER_TIMEOUT"),
		MaxThemes:            viper.GetInt("MAX_THEMES"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every tunable against its allowed range.
func (c *Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,1], got %v", c.SimilarityThreshold)
	}
	if c.LineProximityWindow < 1 {
		return fmt.Errorf("LINE_PROXIMITY_WINDOW must be at least 1, got %d", c.LineProximityWindow)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceFloor > 1 {
		return fmt.Errorf("CONFIDENCE_FLOOR must be within [0,1], got %v", c.ConfidenceFloor)
	}
	if c.MaxCycleIterations < 1 {
		return fmt.Errorf("MAX_CYCLE_ITERATIONS must be at least 1, got %d", c.MaxCycleIterations)
	}
	if c.ImprovementRateFloor < 0 || c.ImprovementRateFloor > 1 {
		return fmt.Errorf("IMPROVEMENT_RATE_FLOOR must be within [0,1], got %v", c.ImprovementRateFloor)
	}
	if c.PerReviewerTimeout <= 0 {
		return fmt.Errorf("PER_REVIEWER_TIMEOUT must be positive, got %v", c.PerReviewerTimeout)
	}
	if c.MaxThemes < 1 {
		return fmt.Errorf("MAX_THEMES must be at least 1, got %d", c.MaxThemes)
	}
	if c.MaxWorkers < 1 {
		return fmt.Errorf("MAX_WORKERS must be at least 1, got %d", c.MaxWorkers)
	}
	if c.CycleStore != "memory" && c.CycleStore != "postgres" {
		return fmt.Errorf("CYCLE_STORE must be \"memory\" or \"postgres\", got %q", c.CycleStore)
	}
	return nil
}

// parseLogLevel maps the configured string onto a slog level.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", s)
		return slog.LevelInfo
	}
}
