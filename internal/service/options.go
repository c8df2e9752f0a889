package service

import (
	"time"

	"github.com/glasirfo/glasir-api-go/internal/config"
	"github.com/glasirfo/glasir-api-go/internal/errors"
)

// Options are the per-request extraction knobs. Zero values mean "use the
// configured default"; set values are validated against the limiter bounds.
type Options struct {
	// ForceMaxConcurrency pins both limiters at fixed ceilings and
	// disables adaptive adjustment for the request.
	ForceMaxConcurrency bool

	// WeekFetchInitial and HomeworkFetchInitial override the limiters'
	// starting concurrency.
	WeekFetchInitial     int
	HomeworkFetchInitial int

	// TeacherCacheTTLSec tightens (or widens) the teacher map freshness
	// window for this request.
	TeacherCacheTTLSec int

	// RequestTimeoutSec, MaxRetries, and BackoffFactor override the
	// upstream transport policy. BackoffFactor is the base delay in
	// seconds; zero means default, so a literal zero backoff cannot be
	// requested.
	RequestTimeoutSec float64
	MaxRetries        int
	BackoffFactor     float64
}

// Validate rejects out-of-range option values as bad input.
func (o Options) Validate() error {
	if o.WeekFetchInitial != 0 &&
		(o.WeekFetchInitial < config.WeekFetchMin || o.WeekFetchInitial > config.WeekFetchMax) {
		return &errors.ValidationError{
			Field:   "week_fetch_initial",
			Message: "must be between 1 and 50",
		}
	}
	if o.HomeworkFetchInitial != 0 &&
		(o.HomeworkFetchInitial < config.HomeworkFetchMin || o.HomeworkFetchInitial > config.HomeworkFetchMax) {
		return &errors.ValidationError{
			Field:   "homework_fetch_initial",
			Message: "must be between 1 and 100",
		}
	}
	if o.TeacherCacheTTLSec < 0 {
		return &errors.ValidationError{Field: "teacher_cache_ttl_sec", Message: "cannot be negative"}
	}
	if o.RequestTimeoutSec < 0 {
		return &errors.ValidationError{Field: "request_timeout_sec", Message: "cannot be negative"}
	}
	if o.MaxRetries < 0 {
		return &errors.ValidationError{Field: "max_retries", Message: "cannot be negative"}
	}
	if o.BackoffFactor < 0 {
		return &errors.ValidationError{Field: "backoff_factor", Message: "cannot be negative"}
	}
	return nil
}

// requestTimeout returns the per-request deadline, zero when unset.
func (o Options) requestTimeout() time.Duration {
	if o.RequestTimeoutSec <= 0 {
		return 0
	}
	return time.Duration(o.RequestTimeoutSec * float64(time.Second))
}

// teacherTTL returns the teacher cache override, zero when unset.
func (o Options) teacherTTL() time.Duration {
	if o.TeacherCacheTTLSec <= 0 {
		return 0
	}
	return time.Duration(o.TeacherCacheTTLSec) * time.Second
}
