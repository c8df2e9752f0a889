package ratelimit

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestNew_BoundsValidation(t *testing.T) {
	tests := []struct {
		name              string
		initial, min, max float64
		wantErr           bool
	}{
		{"valid", 5, 1, 50, false},
		{"min equals initial equals max", 3, 3, 3, false},
		{"zero min", 5, 0, 50, true},
		{"negative min", 5, -1, 50, true},
		{"initial below min", 1, 2, 50, true},
		{"initial above max", 51, 1, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.initial, tt.min, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%v, %v, %v) error = %v, wantErr %v",
					tt.initial, tt.min, tt.max, err, tt.wantErr)
			}
		})
	}
}

func TestLimit_FloorsCurrentValue(t *testing.T) {
	l, err := New(5, 1, 50)
	if err != nil {
		t.Fatal(err)
	}

	// One failure: 5 * 0.5 = 2.5, floor = 2.
	l.ReportFailure()
	if got := l.Limit(); got != 2 {
		t.Errorf("Limit() after one failure = %d, want 2", got)
	}
}

func TestReportSuccess_GrowsAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	l, err := New(5, 1, 50, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < DefaultSuccessThreshold-1; i++ {
		l.ReportSuccess()
	}
	if got := l.Limit(); got != 5 {
		t.Errorf("Limit() below threshold = %d, want 5", got)
	}

	l.ReportSuccess()
	if got := l.Limit(); got != 6 {
		t.Errorf("Limit() at threshold = %d, want 6", got)
	}
}

func TestReportSuccess_CappedAtMax(t *testing.T) {
	clock := newFakeClock()
	l, err := New(50, 1, 50, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < DefaultSuccessThreshold*3; i++ {
		l.ReportSuccess()
	}
	if got := l.Limit(); got != 50 {
		t.Errorf("Limit() = %d, want max 50", got)
	}
}

func TestReportFailure_FlooredAtMin(t *testing.T) {
	l, err := New(4, 1, 50)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		l.ReportFailure()
	}
	if got := l.Limit(); got != 1 {
		t.Errorf("Limit() = %d, want min 1", got)
	}
}

func TestCooldown_BlocksGrowthAndResetsStreak(t *testing.T) {
	clock := newFakeClock()
	l, err := New(8, 1, 50, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}

	l.ReportFailure() // limit 4, cooldown opens

	// Successes inside the cooldown window reset the streak each time.
	for i := 0; i < DefaultSuccessThreshold*2; i++ {
		l.ReportSuccess()
	}
	if got := l.Limit(); got != 4 {
		t.Errorf("Limit() inside cooldown = %d, want 4", got)
	}
	if s := l.Snapshot(); s.Streak != 0 {
		t.Errorf("Streak inside cooldown = %d, want 0", s.Streak)
	}

	// After the window closes, a fresh full streak grows the limit.
	clock.Advance(DefaultFailureCooldown)
	for i := 0; i < DefaultSuccessThreshold; i++ {
		l.ReportSuccess()
	}
	if got := l.Limit(); got != 5 {
		t.Errorf("Limit() after cooldown = %d, want 5", got)
	}
}

func TestDisabled_IgnoresFeedback(t *testing.T) {
	l, err := New(10, 1, 50, Disabled())
	if err != nil {
		t.Fatal(err)
	}

	l.ReportFailure()
	for i := 0; i < DefaultSuccessThreshold*2; i++ {
		l.ReportSuccess()
	}

	if got := l.Limit(); got != 10 {
		t.Errorf("Limit() on disabled limiter = %d, want 10", got)
	}
	if s := l.Snapshot(); !s.Disabled {
		t.Error("Snapshot().Disabled = false, want true")
	}
}

func TestAdaptiveLimiter_ConcurrentUse(t *testing.T) {
	l, err := New(5, 1, 50)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (n+j)%7 == 0 {
					l.ReportFailure()
				} else {
					l.ReportSuccess()
				}
				_ = l.Limit()
			}
		}(i)
	}
	wg.Wait()

	if got := l.Limit(); got < 1 || got > 50 {
		t.Errorf("Limit() escaped bounds: %d", got)
	}
}
