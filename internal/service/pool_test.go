package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fixedLimiter struct{ n atomic.Int32 }

func (l *fixedLimiter) Limit() int { return int(l.n.Load()) }

func TestRunBounded_NeverExceedsLimit(t *testing.T) {
	lim := &fixedLimiter{}
	lim.n.Store(3)

	var inFlight, peak atomic.Int32
	runBounded(context.Background(), lim, 50, func(_ int) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
	})

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency %d exceeded limit 3", got)
	}
}

func TestRunBounded_RunsEveryTaskExactlyOnce(t *testing.T) {
	lim := &fixedLimiter{}
	lim.n.Store(4)

	const n = 25
	var runs [n]atomic.Int32
	runBounded(context.Background(), lim, n, func(i int) {
		runs[i].Add(1)
	})

	for i := range runs {
		if got := runs[i].Load(); got != 1 {
			t.Errorf("task %d ran %d times", i, got)
		}
	}
}

func TestRunBounded_ZeroLimitStillMakesProgress(t *testing.T) {
	lim := &fixedLimiter{} // Limit() == 0, clamped to 1 inside

	var count atomic.Int32
	done := make(chan struct{})
	go func() {
		runBounded(context.Background(), lim, 5, func(_ int) { count.Add(1) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runBounded deadlocked at zero limit")
	}
	if count.Load() != 5 {
		t.Errorf("ran %d tasks, want 5", count.Load())
	}
}

func TestRunBounded_CancelStopsAdmissions(t *testing.T) {
	lim := &fixedLimiter{}
	lim.n.Store(1)

	ctx, cancel := context.WithCancel(context.Background())
	var count atomic.Int32
	runBounded(ctx, lim, 10, func(i int) {
		count.Add(1)
		if i == 0 {
			cancel()
		}
	})

	// The first task cancels the context; with limit 1 at most one more
	// task can already be admitted.
	if got := count.Load(); got > 2 {
		t.Errorf("ran %d tasks after cancellation, want at most 2", got)
	}
}
