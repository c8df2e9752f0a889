// Package config provides centralized timeout and concurrency constants.
//
// These values are tuned against the Glasir upstream:
//   - the site is a classic ASP application that can take several seconds
//     to render a week table under load
//   - requests for different week offsets are independent, so the adapter
//     fans out aggressively and lets the adaptive limiters find the ceiling
//   - a whole extraction request (bootstrap + N weeks + homework) must fit
//     comfortably inside the HTTP server write timeout
package config

import "time"

// Upstream timeouts
const (
	// UpstreamRequest is the timeout for a single HTTP request to the
	// Glasir site. The site regularly takes 5-15s for a week render, so
	// this leaves headroom without letting a stuck request pin a worker.
	UpstreamRequest = 30 * time.Second

	// UpstreamRetryBackoff is the base delay before retrying a failed
	// request. Exponential: 0.5s -> 1s -> 2s.
	UpstreamRetryBackoff = 500 * time.Millisecond

	// UpstreamMaxRetries is the default attempt budget per request.
	UpstreamMaxRetries = 3
)

// HTTP server timeouts
const (
	// ServerHTTPRead is the HTTP server read timeout. Inbound requests
	// carry no body beyond a small options JSON.
	ServerHTTPRead = 10 * time.Second

	// ServerHTTPWrite is the HTTP server write timeout. A full-schedule
	// extraction (dozens of weeks, two phases) needs minutes under a
	// throttled limiter.
	ServerHTTPWrite = 5 * time.Minute

	// ServerHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	ServerHTTPIdle = 120 * time.Second
)

// Teacher cache
const (
	// TeacherCacheTTL is how long a fetched teacher map stays valid.
	// The roster changes a few times per year; a day is plenty.
	TeacherCacheTTL = 24 * time.Hour
)

// Concurrency limiter defaults
const (
	// WeekFetchInitial is the starting concurrency for week page fetches.
	WeekFetchInitial = 5
	// WeekFetchMin is the floor the week limiter never drops below.
	WeekFetchMin = 1
	// WeekFetchMax is the ceiling the week limiter never exceeds.
	WeekFetchMax = 50

	// HomeworkFetchInitial is the starting concurrency for homework fetches.
	HomeworkFetchInitial = 20
	// HomeworkFetchMin is the floor the homework limiter never drops below.
	HomeworkFetchMin = 1
	// HomeworkFetchMax is the ceiling the homework limiter never exceeds.
	HomeworkFetchMax = 100

	// WeekFetchForced and HomeworkFetchForced are the fixed ceilings used
	// when a request forces maximum concurrency. Forced mode disables
	// adaptive adjustment entirely.
	WeekFetchForced     = 10
	HomeworkFetchForced = 30
)

// Graceful shutdown
const (
	// GracefulShutdown is the timeout for graceful server shutdown.
	// Allows in-flight requests to complete before forceful termination.
	GracefulShutdown = 30 * time.Second
)
