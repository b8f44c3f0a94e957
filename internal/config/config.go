package config

import (
	"os"
	"strconv"

	"pvsignal/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings. The database is
// optional: binaries that neither persist nor list runs work without it.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
}

// PathConfig holds file system paths
type PathConfig struct {
	RecordsFile  string // harmonized record table (.csv or .xlsx)
	CategoryFile string // adverse-event category mapping (.yaml)
	OutputDir    string
}

// AnalysisConfig holds analysis tuning that is not part of the core
// statistical contract (thresholds are fixed constants of the detector).
type AnalysisConfig struct {
	MinCount       int // minimum drug-event co-occurrences per pair
	MinDrugReports int // minimum total reports per drug
	Workers        int // 0 means one worker per CPU
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Paths: PathConfig{
			RecordsFile:  getEnvOrDefault("RECORDS_FILE", ""),
			CategoryFile: getEnvOrDefault("CATEGORY_FILE", ""),
			OutputDir:    getEnvOrDefault("OUTPUT_DIR", "./output"),
		},
		Analysis: AnalysisConfig{
			MinCount:       getEnvIntOrDefault("MIN_COUNT", 5),
			MinDrugReports: getEnvIntOrDefault("MIN_DRUG_REPORTS", 10),
			Workers:        getEnvIntOrDefault("ANALYSIS_WORKERS", 0),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config.Analysis.MinCount < 0 {
		return errors.ConfigInvalid("MIN_COUNT cannot be negative")
	}
	if config.Analysis.MinDrugReports < 0 {
		return errors.ConfigInvalid("MIN_DRUG_REPORTS cannot be negative")
	}
	if config.Analysis.Workers < 0 {
		return errors.ConfigInvalid("ANALYSIS_WORKERS cannot be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
