// Package ratelimit paces outbound provider calls against per-second,
// per-minute and per-day quotas using a sliding window of call timestamps.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limits describes one provider's documented quota tiers. A zero value
// disables that tier.
type Limits struct {
	PerSecond  int
	PerMinute  int
	PerDay     int
	MinSpacing time.Duration
}

// Usage is a point-in-time snapshot of the sliding windows, exposed for
// observability.
type Usage struct {
	Provider   string `json:"provider"`
	LastSecond int    `json:"lastSecond"`
	LastMinute int    `json:"lastMinute"`
	LastDay    int    `json:"lastDay"`
	PerSecond  int    `json:"perSecond,omitempty"`
	PerMinute  int    `json:"perMinute,omitempty"`
	PerDay     int    `json:"perDay,omitempty"`
}

// QuotaError signals daily-quota exhaustion. It is fatal for the call: the
// limiter never sleeps toward the day reset.
type QuotaError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s daily quota exceeded, retry after %s", e.Provider, e.RetryAfter.Round(time.Second))
}

// Limiter tracks call timestamps for a single provider. It is safe for use
// by concurrent search requests.
type Limiter struct {
	provider string
	limits   Limits
	spacing  *rate.Limiter

	mu    sync.Mutex
	calls []time.Time

	// now is swapped out by tests.
	now func() time.Time
}

func New(provider string, limits Limits) *Limiter {
	l := &Limiter{
		provider: provider,
		limits:   limits,
		now:      time.Now,
	}
	if limits.MinSpacing > 0 {
		l.spacing = rate.NewLimiter(rate.Every(limits.MinSpacing), 1)
	}
	return l
}

// WaitIfNeeded blocks until the next call is permitted and records it.
// Second/minute saturation delays the caller; only day-quota exhaustion
// returns an error (*QuotaError). The wait is cancellable via ctx.
func (l *Limiter) WaitIfNeeded(ctx context.Context) error {
	for {
		wait, err := l.admit()
		if err != nil {
			return err
		}
		if wait == 0 {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if l.spacing != nil {
		return l.spacing.Wait(ctx)
	}
	return nil
}

// admit either records a call (wait 0), reports how long to sleep before
// retrying, or fails with a QuotaError.
func (l *Limiter) admit() (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if l.limits.PerDay > 0 {
		day, oldest := l.windowCount(now, 24*time.Hour)
		if day >= l.limits.PerDay {
			return 0, &QuotaError{Provider: l.provider, RetryAfter: oldest.Add(24 * time.Hour).Sub(now)}
		}
	}

	var wait time.Duration
	if l.limits.PerMinute > 0 {
		if n, oldest := l.windowCount(now, time.Minute); n >= l.limits.PerMinute {
			wait = oldest.Add(time.Minute).Sub(now)
		}
	}
	if l.limits.PerSecond > 0 {
		if n, oldest := l.windowCount(now, time.Second); n >= l.limits.PerSecond {
			if w := oldest.Add(time.Second).Sub(now); w > wait {
				wait = w
			}
		}
	}
	if wait > 0 {
		return wait, nil
	}

	l.calls = append(l.calls, now)
	return 0, nil
}

// windowCount returns how many recorded calls fall inside the trailing
// window and the oldest of them.
func (l *Limiter) windowCount(now time.Time, window time.Duration) (int, time.Time) {
	cutoff := now.Add(-window)
	count := 0
	var oldest time.Time
	for _, t := range l.calls {
		if t.After(cutoff) {
			if count == 0 {
				oldest = t
			}
			count++
		}
	}
	return count, oldest
}

// prune drops timestamps older than the largest window. calls stays sorted
// because appends always use the current time under the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-24 * time.Hour)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// Usage reports current window counts.
func (l *Limiter) Usage() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	sec, _ := l.windowCount(now, time.Second)
	min, _ := l.windowCount(now, time.Minute)
	day, _ := l.windowCount(now, 24*time.Hour)
	return Usage{
		Provider:   l.provider,
		LastSecond: sec,
		LastMinute: min,
		LastDay:    day,
		PerSecond:  l.limits.PerSecond,
		PerMinute:  l.limits.PerMinute,
		PerDay:     l.limits.PerDay,
	}
}
