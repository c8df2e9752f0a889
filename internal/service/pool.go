package service

import (
	"context"
	"time"
)

// limiter is the read side of an adaptive limiter. The ceiling may change
// between admissions.
type limiter interface {
	Limit() int
}

// runBounded executes n indexed tasks with at most lim.Limit() in flight.
// The limit is re-read before every admission, so when the limiter shrinks
// mid-batch new work is throttled while running tasks drain. It returns the
// total time spent blocked waiting for a slot.
//
// Cancellation stops further admissions; tasks already launched observe
// their own context and are always waited for.
func runBounded(ctx context.Context, lim limiter, n int, task func(i int)) time.Duration {
	if n <= 0 {
		return 0
	}

	done := make(chan struct{}, n)
	var waited time.Duration
	inFlight, next := 0, 0

	for next < n && ctx.Err() == nil {
		limit := lim.Limit()
		if limit < 1 {
			limit = 1
		}
		if inFlight >= limit {
			start := time.Now()
			<-done
			inFlight--
			waited += time.Since(start)
			continue
		}

		i := next
		next++
		inFlight++
		go func() {
			defer func() { done <- struct{}{} }()
			task(i)
		}()
	}

	for inFlight > 0 {
		<-done
		inFlight--
	}
	return waited
}
