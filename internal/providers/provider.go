// Package providers contains one adapter per upstream event API. Every
// adapter translates the canonical search parameters into its provider's
// query contract and maps the response back into CanonicalEvent values.
// Adapters are pure request/response: no caching, no persistence.
package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bestfriendai/newevents-api/internal/models"
	"github.com/bestfriendai/newevents-api/internal/ratelimit"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Adapter is the single capability the aggregator depends on. Adding a
// provider means adding one implementation, not touching aggregation logic.
type Adapter interface {
	Name() string
	Search(ctx context.Context, params models.SearchParams) (*Result, error)
}

type Result struct {
	Events     []models.CanonicalEvent
	TotalCount int
}

// ErrorKind classifies upstream failures per the shared taxonomy.
type ErrorKind string

const (
	KindBadRequest  ErrorKind = "bad_request"
	KindAuth        ErrorKind = "invalid_key"
	KindForbidden   ErrorKind = "forbidden"
	KindRateLimited ErrorKind = "rate_limited"
	KindServer      ErrorKind = "server_error"
	KindNetwork     ErrorKind = "network_error"
)

// UpstreamError is a classified provider failure. It never escapes the
// aggregator: callers see it folded into the response's soft error string.
type UpstreamError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Msg      string
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Provider, e.Kind, e.Status, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Msg)
}

// Retryable reports whether the failure is transient. Only network errors
// and 5xx responses are worth another attempt; 4xx means the request itself
// is wrong and will keep failing.
func (e *UpstreamError) Retryable() bool {
	return e.Kind == KindServer || e.Kind == KindNetwork
}

func classifyStatus(provider string, status int, body []byte) *UpstreamError {
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	var kind ErrorKind
	switch {
	case status == http.StatusUnauthorized:
		kind = KindAuth
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status >= 500:
		kind = KindServer
	default:
		kind = KindBadRequest
	}
	return &UpstreamError{Provider: provider, Kind: kind, Status: status, Msg: msg}
}

const (
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// httpClient is the outbound plumbing shared by the three adapters: rate
// limiter gate, circuit breaker, bounded retry with exponential backoff.
type httpClient struct {
	provider string
	client   *http.Client
	limiter  *ratelimit.Limiter
	breaker  *gobreaker.CircuitBreaker[[]byte]
	logger   *slog.Logger
}

func newHTTPClient(provider string, timeout time.Duration, limiter *ratelimit.Limiter, logger *slog.Logger) *httpClient {
	c := &httpClient{
		provider: provider,
		client:   &http.Client{Timeout: timeout},
		limiter:  limiter,
		logger:   logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// A 4xx means our request was wrong, not that the upstream is
		// unhealthy; only transient failures count toward tripping.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if ue, ok := err.(*UpstreamError); ok {
				return !ue.Retryable()
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// get issues a rate-limited, breaker-guarded GET and returns the response
// body. Transient failures are retried up to maxAttempts with exponential
// backoff; classified 4xx errors are returned immediately.
func (c *httpClient) get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.WaitIfNeeded(ctx); err != nil {
		return nil, err
	}

	return c.breaker.Execute(func() ([]byte, error) {
		var lastErr error
		backoff := initialBackoff
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			if attempt > 1 {
				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, &UpstreamError{Provider: c.provider, Kind: KindNetwork, Msg: ctx.Err().Error()}
				case <-timer.C:
				}
				backoff *= 2
			}

			body, err := c.doOnce(ctx, url, headers)
			if err == nil {
				return body, nil
			}
			lastErr = err
			if ue, ok := err.(*UpstreamError); ok && !ue.Retryable() {
				return nil, err
			}
			c.logger.Debug("provider request failed, retrying",
				"provider", c.provider, "attempt", attempt, "error", err)
		}
		return nil, lastErr
	})
}

func (c *httpClient) doOnce(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{Provider: c.provider, Kind: KindBadRequest, Msg: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Provider: c.provider, Kind: KindNetwork, Msg: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &UpstreamError{Provider: c.provider, Kind: KindNetwork, Msg: err.Error()}
	}
	if resp.StatusCode/100 != 2 {
		return nil, classifyStatus(c.provider, resp.StatusCode, body)
	}
	return body, nil
}

// clampLimit bounds the requested page size to the provider's maximum.
func clampLimit(requested, max int) int {
	if requested <= 0 || requested > max {
		return max
	}
	return requested
}

// syntheticAttendees backfills a plausible, presentation-only attendee
// count derived from the event id so repeated fetches stay stable.
func syntheticAttendees(externalID string) int {
	return 50 + models.NumericID(externalID)%950
}
