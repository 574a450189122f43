package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// TransportConfig tunes the HTTP transport shared by the Gmail and Sheets clients.
type TransportConfig struct {
	// MaxRetries bounds retries of idempotent requests on 429 and 5xx.
	// Requests with side effects are never retried.
	MaxRetries int

	// RequestsPerSecond limits outgoing API calls. Zero disables limiting.
	RequestsPerSecond float64

	// CircuitBreaker stops calling the API after repeated server failures.
	CircuitBreaker bool
}

// DefaultTransportConfig is used by the CLI commands.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{MaxRetries: 3}
}

// NewHTTPClient returns an HTTP client authorizing requests with ts. Like
// oauth2.NewClient, it sends through the transport of the *http.Client
// stored in ctx under oauth2.HTTPClient, if any.
func NewHTTPClient(ctx context.Context, ts oauth2.TokenSource, cfg TransportConfig) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   NewTransport(baseTransport(ctx), cfg),
		},
	}
}

func baseTransport(ctx context.Context) http.RoundTripper {
	if hc, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && hc != nil && hc.Transport != nil {
		return hc.Transport
	}
	return http.DefaultTransport
}

// ClientOptions returns the API client options for an authorized HTTP client.
func ClientOptions(client *http.Client) []option.ClientOption {
	return []option.ClientOption{option.WithHTTPClient(client)}
}

// NewTransport wraps base with rate limiting, retries and an optional
// circuit breaker.
func NewTransport(base http.RoundTripper, cfg TransportConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	t := &apiTransport{base: base, maxRetries: cfg.MaxRetries}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	if cfg.CircuitBreaker {
		t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					slog.String("name", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}
	return t
}

type apiTransport struct {
	base       http.RoundTripper
	maxRetries int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// statusError marks a response that should count as a breaker failure
// while still being handed back to the caller.
type statusError struct {
	resp *http.Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %s", e.resp.Status)
}

func (t *apiTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.breaker == nil {
		return t.roundTripWithRetry(req)
	}

	out, err := t.breaker.Execute(func() (interface{}, error) {
		resp, err := t.roundTripWithRetry(req)
		if err != nil {
			return nil, err
		}
		if retryableStatus(resp.StatusCode) {
			return nil, &statusError{resp: resp}
		}
		return resp, nil
	})

	var se *statusError
	switch {
	case errors.As(err, &se):
		return se.resp, nil
	case err != nil:
		return nil, fmt.Errorf("google api: %w", err)
	}
	return out.(*http.Response), nil
}

func (t *apiTransport) roundTripWithRetry(req *http.Request) (*http.Response, error) {
	if !idempotent(req) || t.maxRetries <= 0 {
		if err := t.wait(req.Context()); err != nil {
			return nil, err
		}
		return t.base.RoundTrip(req)
	}

	attempt := 0
	op := func() (*http.Response, error) {
		attempt++
		if err := t.wait(req.Context()); err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if retryableStatus(resp.StatusCode) && attempt <= t.maxRetries {
			slog.Debug("retrying google api request",
				slog.String("method", req.Method),
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt))
			drainAndClose(resp.Body)
			return nil, &statusError{resp: resp}
		}
		return resp, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second

	return backoff.Retry(req.Context(), op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(t.maxRetries+1)),
	)
}

func (t *apiTransport) wait(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func idempotent(req *http.Request) bool {
	return req.Method == http.MethodGet || req.Method == http.MethodHead
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<16))
	_ = body.Close()
}

// IsRetryable reports whether err is a Google API error worth retrying.
func IsRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}
	return false
}
