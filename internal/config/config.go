package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default values used when the environment does not override them.
const (
	DefaultPort           = "8080"
	DefaultModelURI       = "models/fraud_detection_model.json"
	DefaultDataset        = "fraud"
	DefaultMaxUploadBytes = 32 << 20
)

// Config holds all application configuration.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	// ModelURI is a local path or gs:// URI of the classifier artifact.
	ModelURI         string
	ModelLoadTimeout time.Duration

	MaxUploadBytes int64

	// GCPProjectID enables the BigQuery run ledger when set.
	GCPProjectID    string
	BigQueryDataset string

	// ArchiveBucket enables archiving of scored batches to GCS when set.
	ArchiveBucket string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnvWithDefault("PORT", DefaultPort),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvWithDefault("LOG_FORMAT", "console"),
		ModelURI:         getEnvWithDefault("MODEL_URI", DefaultModelURI),
		ModelLoadTimeout: getEnvDurationWithDefault("MODEL_LOAD_TIMEOUT", 30*time.Second),
		MaxUploadBytes:   int64(getEnvIntWithDefault("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)),
		GCPProjectID:     os.Getenv("GCP_PROJECT_ID"),
		BigQueryDataset:  getEnvWithDefault("BIGQUERY_DATASET", DefaultDataset),
		ArchiveBucket:    os.Getenv("ARCHIVE_BUCKET"),
		RateLimitRPS:     getEnvFloatWithDefault("RATE_LIMIT_RPS", 10),
		RateLimitBurst:   getEnvIntWithDefault("RATE_LIMIT_BURST", 20),
	}, nil
}

// LedgerEnabled reports whether scoring runs are recorded in BigQuery.
func (c *Config) LedgerEnabled() bool {
	return c.GCPProjectID != ""
}

// ArchiveEnabled reports whether scored batches are copied to GCS.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// Address returns the HTTP listen address.
func (c *Config) Address() string {
	return ":" + c.Port
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
