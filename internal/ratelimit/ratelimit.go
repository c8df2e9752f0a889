// Package ratelimit provides an adaptive AIMD concurrency limiter.
// It is used to pace the fan-out of upstream fetches: the limit grows
// additively after a streak of successes and halves on failure.
package ratelimit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Defaults for the adaptive behavior.
const (
	DefaultIncreaseStep     = 1.0
	DefaultDecreaseFactor   = 0.5
	DefaultSuccessThreshold = 10
	DefaultFailureCooldown  = 5 * time.Second
)

// AdaptiveLimiter implements additive-increase/multiplicative-decrease
// concurrency control. It is safe for concurrent use.
//
// The algorithm:
//   - every success increments a streak; when the streak reaches the
//     threshold the limit grows by increaseStep (capped at max)
//   - any failure halves the limit (floored at min) and starts a cooldown
//   - successes inside the cooldown window reset the streak but never
//     grow the limit, so a flapping upstream cannot oscillate quickly
//   - a disabled limiter reports a fixed limit and ignores feedback
type AdaptiveLimiter struct {
	mu               sync.Mutex
	currentLimit     float64
	min              float64
	max              float64
	increaseStep     float64
	decreaseFactor   float64
	successThreshold int
	failureCooldown  time.Duration
	successStreak    int
	lastFailureTime  time.Time
	disabled         bool

	// now is swappable for tests.
	now func() time.Time
}

// Option configures an AdaptiveLimiter.
type Option func(*AdaptiveLimiter)

// WithIncreaseStep overrides the additive growth step.
func WithIncreaseStep(step float64) Option {
	return func(l *AdaptiveLimiter) { l.increaseStep = step }
}

// WithDecreaseFactor overrides the multiplicative backoff factor.
func WithDecreaseFactor(factor float64) Option {
	return func(l *AdaptiveLimiter) { l.decreaseFactor = factor }
}

// WithSuccessThreshold overrides the streak length required for growth.
func WithSuccessThreshold(n int) Option {
	return func(l *AdaptiveLimiter) { l.successThreshold = n }
}

// WithFailureCooldown overrides the post-failure freeze window.
func WithFailureCooldown(d time.Duration) Option {
	return func(l *AdaptiveLimiter) { l.failureCooldown = d }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) Option {
	return func(l *AdaptiveLimiter) { l.now = now }
}

// Disabled fixes the limiter at its initial value and makes feedback a no-op.
func Disabled() Option {
	return func(l *AdaptiveLimiter) { l.disabled = true }
}

// New creates an adaptive limiter. It returns an error unless
// 0 < min <= initial <= max.
func New(initial, min, max float64, opts ...Option) (*AdaptiveLimiter, error) {
	if min <= 0 || min > initial || initial > max {
		return nil, fmt.Errorf("limiter bounds must satisfy 0 < min <= initial <= max, got min=%v initial=%v max=%v",
			min, initial, max)
	}

	l := &AdaptiveLimiter{
		currentLimit:     initial,
		min:              min,
		max:              max,
		increaseStep:     DefaultIncreaseStep,
		decreaseFactor:   DefaultDecreaseFactor,
		successThreshold: DefaultSuccessThreshold,
		failureCooldown:  DefaultFailureCooldown,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.decreaseFactor <= 0 || l.decreaseFactor >= 1 {
		return nil, fmt.Errorf("decrease factor must be in (0, 1), got %v", l.decreaseFactor)
	}
	return l, nil
}

// Limit returns the concurrency ceiling in effect right now.
func (l *AdaptiveLimiter) Limit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(math.Floor(l.currentLimit))
}

// ReportSuccess records a successful upstream call. After a full streak of
// successes outside the cooldown window the limit grows by one step.
func (l *AdaptiveLimiter) ReportSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disabled {
		return
	}

	l.successStreak++

	// Inside the cooldown window successes are counted as recovery, not
	// as license to grow.
	if !l.lastFailureTime.IsZero() && l.now().Sub(l.lastFailureTime) < l.failureCooldown {
		l.successStreak = 0
		return
	}

	if l.successStreak >= l.successThreshold {
		l.currentLimit = math.Min(l.currentLimit+l.increaseStep, l.max)
		l.successStreak = 0
	}
}

// ReportFailure records a failed upstream call: the limit halves and a
// cooldown window opens.
func (l *AdaptiveLimiter) ReportFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disabled {
		return
	}

	l.successStreak = 0
	l.currentLimit = math.Max(l.currentLimit*l.decreaseFactor, l.min)
	l.lastFailureTime = l.now()
}

// Snapshot reports the limiter state for logging and metrics.
type Snapshot struct {
	Limit    int
	Raw      float64
	Streak   int
	Disabled bool
}

// Snapshot returns a consistent view of the limiter state.
func (l *AdaptiveLimiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Limit:    int(math.Floor(l.currentLimit)),
		Raw:      l.currentLimit,
		Streak:   l.successStreak,
		Disabled: l.disabled,
	}
}
