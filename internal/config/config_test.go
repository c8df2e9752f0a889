package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8000" {
		t.Errorf("Expected default port '8000', got '%s'", cfg.Port)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("Expected default base URL '%s', got '%s'", DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.MaxRetries)
	}
	if cfg.BackoffFactor != 0.5 {
		t.Errorf("Expected default backoff factor 0.5, got %v", cfg.BackoffFactor)
	}
	if cfg.TeacherCacheTTL != 24*time.Hour {
		t.Errorf("Expected default teacher cache TTL 24h, got %v", cfg.TeacherCacheTTL)
	}
	if cfg.WeekFetchInitial != 5 {
		t.Errorf("Expected default week fetch initial 5, got %d", cfg.WeekFetchInitial)
	}
	if cfg.HomeworkFetchInitial != 20 {
		t.Errorf("Expected default homework fetch initial 20, got %d", cfg.HomeworkFetchInitial)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvBaseURL, "http://127.0.0.1:7777")
	t.Setenv(EnvMaxRetries, "5")
	t.Setenv(EnvTeacherCacheTTL, "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.BaseURL != "http://127.0.0.1:7777" {
		t.Errorf("Expected overridden base URL, got '%s'", cfg.BaseURL)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("Expected max retries 5, got %d", cfg.MaxRetries)
	}
	if cfg.TeacherCacheTTL != time.Hour {
		t.Errorf("Expected teacher cache TTL 1h, got %v", cfg.TeacherCacheTTL)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:                 "8000",
			BaseURL:              DefaultBaseURL,
			UpstreamTimeout:      30 * time.Second,
			MaxRetries:           3,
			BackoffFactor:        0.5,
			TeacherCacheTTL:      24 * time.Hour,
			WeekFetchInitial:     5,
			HomeworkFetchInitial: 20,
		}
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "missing port",
			mutate:      func(c *Config) { c.Port = "" },
			wantErr:     true,
			errContains: EnvPort,
		},
		{
			name:        "relative base URL",
			mutate:      func(c *Config) { c.BaseURL = "www.glasir.fo" },
			wantErr:     true,
			errContains: EnvBaseURL,
		},
		{
			name:        "zero retries",
			mutate:      func(c *Config) { c.MaxRetries = 0 },
			wantErr:     true,
			errContains: EnvMaxRetries,
		},
		{
			name:        "negative backoff",
			mutate:      func(c *Config) { c.BackoffFactor = -1 },
			wantErr:     true,
			errContains: EnvBackoffFactor,
		},
		{
			name:        "week initial above max",
			mutate:      func(c *Config) { c.WeekFetchInitial = 51 },
			wantErr:     true,
			errContains: EnvWeekFetchInitial,
		},
		{
			name:        "homework initial below min",
			mutate:      func(c *Config) { c.HomeworkFetchInitial = 0 },
			wantErr:     true,
			errContains: EnvHomeworkFetchInitial,
		},
		{
			name:        "sentry enabled without DSN",
			mutate:      func(c *Config) { c.SentryEnabled = true },
			wantErr:     true,
			errContains: EnvSentryDSN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("Validate() error = %v, want error containing %q", err, tt.errContains)
			}
		})
	}
}

func TestGetDurationEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{
			name:         "valid duration",
			key:          "TEST_DURATION",
			value:        "5s",
			defaultValue: 1 * time.Second,
			want:         5 * time.Second,
		},
		{
			name:         "invalid duration",
			key:          "TEST_DURATION",
			value:        "invalid",
			defaultValue: 1 * time.Second,
			want:         1 * time.Second,
		},
		{
			name:         "empty value",
			key:          "TEST_DURATION",
			value:        "",
			defaultValue: 1 * time.Second,
			want:         1 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				_ = os.Setenv(tt.key, tt.value)
				defer func() { _ = os.Unsetenv(tt.key) }()
			}

			got := getDurationEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getDurationEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}
