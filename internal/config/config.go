// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/renewals/internal/modules/analytics"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/internal/modules/opportunities"
	"github.com/aristath/renewals/internal/modules/trends"
	"github.com/joho/godotenv"
)

// Source kinds
const (
	SourceSQLite = "sqlite"
	SourceXLSX   = "xlsx"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for the staging database and snapshot (always absolute)
	LogLevel       string
	Port           int
	DevMode        bool
	SourceKind     string // sqlite or xlsx
	SourcePath     string
	SnapshotPath   string
	ReloadSchedule string // cron spec; empty disables scheduled reloads

	ForecastWindow int
	ForecastBand   float64
	SeasonKey      string
	TargetRate     float64

	RiskWeightRate       float64
	RiskWeightGrowth     float64
	RiskWeightVolatility float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("RENEWALS_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	sourceKind := strings.ToLower(getEnv("SOURCE_KIND", SourceSQLite))
	defaultSource := filepath.Join(absDataDir, "staging.db")
	if sourceKind == SourceXLSX {
		defaultSource = filepath.Join(absDataDir, "batch.xlsx")
	}

	risk := metrics.DefaultRiskPolicy()

	cfg := &Config{
		DataDir:        absDataDir,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Port:           getEnvAsInt("GO_PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		SourceKind:     sourceKind,
		SourcePath:     getEnv("SOURCE_PATH", defaultSource),
		SnapshotPath:   getEnv("SNAPSHOT_PATH", filepath.Join(absDataDir, "catalog.snapshot")),
		ReloadSchedule: getEnvAllowEmpty("RELOAD_SCHEDULE", "@every 15m"),

		ForecastWindow: getEnvAsInt("FORECAST_WINDOW", 0),
		ForecastBand:   getEnvAsFloat("FORECAST_BAND", trends.DefaultBand),
		SeasonKey:      strings.ToLower(getEnv("SEASON_KEY", string(trends.SeasonQuarter))),
		TargetRate:     getEnvAsFloat("TARGET_COLLECTION_RATE", opportunities.DefaultTargetRate),

		RiskWeightRate:       getEnvAsFloat("RISK_WEIGHT_RATE", risk.RateWeight),
		RiskWeightGrowth:     getEnvAsFloat("RISK_WEIGHT_GROWTH", risk.GrowthWeight),
		RiskWeightVolatility: getEnvAsFloat("RISK_WEIGHT_VOLATILITY", risk.VolatilityWeight),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values the services cannot use
func (c *Config) Validate() error {
	switch c.SourceKind {
	case SourceSQLite, SourceXLSX:
	default:
		return fmt.Errorf("invalid SOURCE_KIND %q (must be sqlite or xlsx)", c.SourceKind)
	}
	if c.SourcePath == "" {
		return fmt.Errorf("SOURCE_PATH must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.ForecastWindow < 0 {
		return fmt.Errorf("FORECAST_WINDOW must not be negative, got %d", c.ForecastWindow)
	}
	if c.ForecastBand < 0 {
		return fmt.Errorf("FORECAST_BAND must not be negative, got %g", c.ForecastBand)
	}
	if _, err := trends.ParseSeasonKey(c.SeasonKey); err != nil {
		return fmt.Errorf("invalid SEASON_KEY: %w", err)
	}
	for name, w := range map[string]float64{
		"RISK_WEIGHT_RATE":       c.RiskWeightRate,
		"RISK_WEIGHT_GROWTH":     c.RiskWeightGrowth,
		"RISK_WEIGHT_VOLATILITY": c.RiskWeightVolatility,
	} {
		if w < 0 {
			return fmt.Errorf("%s must not be negative, got %g", name, w)
		}
	}
	return nil
}

// AnalyticsOptions converts the configuration into query options
func (c *Config) AnalyticsOptions() analytics.Options {
	opts := analytics.DefaultOptions()

	opts.Risk.RateWeight = c.RiskWeightRate
	opts.Risk.GrowthWeight = c.RiskWeightGrowth
	opts.Risk.VolatilityWeight = c.RiskWeightVolatility

	opts.Forecast.Window = c.ForecastWindow
	opts.Forecast.Band = c.ForecastBand
	if key, err := trends.ParseSeasonKey(c.SeasonKey); err == nil {
		opts.Forecast.SeasonKey = key
	}

	opts.TargetRate = c.TargetRate
	return opts
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one set to ""
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
