// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "GLASIR_PORT"
	EnvLogLevel        = "GLASIR_LOG_LEVEL"
	EnvShutdownTimeout = "GLASIR_SHUTDOWN_TIMEOUT"

	// Upstream
	EnvBaseURL         = "GLASIR_BASE_URL"
	EnvUpstreamTimeout = "GLASIR_UPSTREAM_TIMEOUT"
	EnvMaxRetries      = "GLASIR_MAX_RETRIES"
	EnvBackoffFactor   = "GLASIR_BACKOFF_FACTOR"

	// Teacher cache
	EnvTeacherCacheTTL = "GLASIR_TEACHER_CACHE_TTL"

	// Concurrency limiters
	EnvWeekFetchInitial     = "GLASIR_WEEK_FETCH_INITIAL"
	EnvHomeworkFetchInitial = "GLASIR_HOMEWORK_FETCH_INITIAL"

	// Sentry Feature
	EnvSentryEnabled          = "GLASIR_SENTRY_ENABLED"
	EnvSentryDSN              = "GLASIR_SENTRY_DSN"
	EnvSentryEnvironment      = "GLASIR_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "GLASIR_SENTRY_RELEASE"
	EnvSentrySampleRate       = "GLASIR_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "GLASIR_SENTRY_TRACES_SAMPLE_RATE"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "GLASIR_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "GLASIR_METRICS_USERNAME"
	EnvMetricsPassword    = "GLASIR_METRICS_PASSWORD"
)
