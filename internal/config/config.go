// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the HTTP server, the upstream client, caches, and concurrency limiters.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultBaseURL is the production Glasir site.
const DefaultBaseURL = "https://www.glasir.fo"

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Upstream Configuration
	BaseURL         string        // Glasir site root, no trailing slash
	UpstreamTimeout time.Duration // per-request timeout
	MaxRetries      int           // attempt budget per request
	BackoffFactor   float64       // base backoff in seconds, doubled per attempt

	// Teacher Cache
	TeacherCacheTTL time.Duration

	// Concurrency limiter starting points
	WeekFetchInitial     int
	HomeworkFetchInitial int

	// Sentry Configuration
	SentryEnabled          bool
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64

	// Metrics Authentication
	MetricsAuthEnabled bool
	MetricsUsername    string // Username for /metrics endpoint Basic Auth (default: "prometheus")
	MetricsPassword    string // Password for /metrics endpoint Basic Auth (empty = no auth)
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		// Server Configuration
		Port:            getEnv(EnvPort, "8000"),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),

		// Upstream Configuration
		BaseURL:         getEnv(EnvBaseURL, DefaultBaseURL),
		UpstreamTimeout: getDurationEnv(EnvUpstreamTimeout, UpstreamRequest),
		MaxRetries:      getIntEnv(EnvMaxRetries, UpstreamMaxRetries),
		BackoffFactor:   getFloatEnv(EnvBackoffFactor, UpstreamRetryBackoff.Seconds()),

		// Teacher Cache
		TeacherCacheTTL: getDurationEnv(EnvTeacherCacheTTL, TeacherCacheTTL),

		// Concurrency limiters
		WeekFetchInitial:     getIntEnv(EnvWeekFetchInitial, WeekFetchInitial),
		HomeworkFetchInitial: getIntEnv(EnvHomeworkFetchInitial, HomeworkFetchInitial),

		// Sentry Configuration
		SentryEnabled:          getBoolEnv(EnvSentryEnabled, false),
		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),

		// Metrics Authentication
		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New(EnvPort+" is required"))
	}
	if c.BaseURL == "" {
		errs = append(errs, errors.New(EnvBaseURL+" is required"))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", EnvBaseURL, c.BaseURL))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvUpstreamTimeout, c.UpstreamTimeout))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", EnvMaxRetries, c.MaxRetries))
	}
	if c.BackoffFactor < 0 {
		errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvBackoffFactor, c.BackoffFactor))
	}
	if c.TeacherCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvTeacherCacheTTL, c.TeacherCacheTTL))
	}
	if c.WeekFetchInitial < WeekFetchMin || c.WeekFetchInitial > WeekFetchMax {
		errs = append(errs, fmt.Errorf("%s must be in [%d, %d], got %d",
			EnvWeekFetchInitial, WeekFetchMin, WeekFetchMax, c.WeekFetchInitial))
	}
	if c.HomeworkFetchInitial < HomeworkFetchMin || c.HomeworkFetchInitial > HomeworkFetchMax {
		errs = append(errs, fmt.Errorf("%s must be in [%d, %d], got %d",
			EnvHomeworkFetchInitial, HomeworkFetchMin, HomeworkFetchMax, c.HomeworkFetchInitial))
	}
	if c.SentryEnabled && c.SentryDSN == "" {
		errs = append(errs, errors.New(EnvSentryDSN+" is required when sentry is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
