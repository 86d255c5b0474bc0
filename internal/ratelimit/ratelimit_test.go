package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSecondWindowDelaysInsteadOfRejecting(t *testing.T) {
	l := New("test", Limits{PerSecond: 2})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("call %d returned error: %v", i+1, err)
		}
	}
	elapsed := time.Since(start)

	// The third call must have waited for the 1s window to free a slot,
	// not been rejected.
	if elapsed < 900*time.Millisecond {
		t.Errorf("expected third call to be delayed ~1s, elapsed %v", elapsed)
	}
}

func TestDailyQuotaFailsFast(t *testing.T) {
	l := New("test", Limits{PerDay: 3})

	for i := 0; i < 3; i++ {
		if err := l.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("call %d returned error: %v", i+1, err)
		}
	}

	start := time.Now()
	err := l.WaitIfNeeded(context.Background())
	if time.Since(start) > 100*time.Millisecond {
		t.Error("daily quota exhaustion must fail immediately, not sleep")
	}

	var qe *QuotaError
	if !errors.As(err, &qe) {
		t.Fatalf("expected *QuotaError, got %v", err)
	}
	if qe.RetryAfter <= 0 || qe.RetryAfter > 24*time.Hour {
		t.Errorf("implausible RetryAfter %v", qe.RetryAfter)
	}
}

func TestUsageCountsWindows(t *testing.T) {
	l := New("ticketmaster", Limits{PerSecond: 10, PerMinute: 100, PerDay: 1000})

	for i := 0; i < 4; i++ {
		if err := l.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	u := l.Usage()
	if u.Provider != "ticketmaster" {
		t.Errorf("provider = %q", u.Provider)
	}
	if u.LastSecond != 4 || u.LastMinute != 4 || u.LastDay != 4 {
		t.Errorf("usage = %+v, want 4 in every window", u)
	}
}

func TestPruneDropsStaleTimestamps(t *testing.T) {
	l := New("test", Limits{PerDay: 5})

	base := time.Now()
	l.now = func() time.Time { return base.Add(-25 * time.Hour) }
	for i := 0; i < 5; i++ {
		if _, err := l.admit(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// A day later the old calls have aged out of every window.
	l.now = func() time.Time { return base }
	if _, err := l.admit(); err != nil {
		t.Fatalf("expected stale calls to be pruned, got %v", err)
	}
	if u := l.Usage(); u.LastDay != 1 {
		t.Errorf("LastDay = %d after prune, want 1", u.LastDay)
	}
}

func TestWaitCancelledByContext(t *testing.T) {
	l := New("test", Limits{PerSecond: 1})
	if err := l.WaitIfNeeded(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := l.WaitIfNeeded(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestMinSpacingSmoothsBursts(t *testing.T) {
	l := New("test", Limits{PerSecond: 100, MinSpacing: 100 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.WaitIfNeeded(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("expected inter-call spacing to stretch 3 calls past 150ms, elapsed %v", elapsed)
	}
}
