package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/storelens/storelens/internal/core"
	"github.com/storelens/storelens/internal/metrics"
)

const (
	// DefaultTimeout bounds a single attempt when no timeout is configured.
	DefaultTimeout = 30 * time.Second

	maxJitter    = 100 * time.Millisecond
	maxBodyBytes = 32 << 20
)

// RetryPolicy controls how a request is retried.
type RetryPolicy struct {
	MaxRetries      int
	BaseDelay       time.Duration
	RetryOnStatuses []int
}

// DefaultRetryPolicy retries throttling and unavailability twice.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:      2,
	BaseDelay:       200 * time.Millisecond,
	RetryOnStatuses: []int{http.StatusTooManyRequests, http.StatusServiceUnavailable},
}

func (p RetryPolicy) retriable(status int) bool {
	return slices.Contains(p.RetryOnStatuses, status)
}

// Backoff returns the delay before retry number attempt+1, without jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	return p.BaseDelay * time.Duration(1<<attempt)
}

// RequestOptions tunes a single Do call.
type RequestOptions struct {
	// Class selects a per-class rate limit bucket.
	Class string
	// Context describes the operation in returned errors.
	Context string
	// Retry overrides the fetcher policy.
	Retry *RetryPolicy
	// Timeout overrides the per-attempt timeout.
	Timeout time.Duration
}

// Fetcher performs rate-limited HTTP requests with retry and backoff.
// Response bodies are read fully within each attempt, so the returned body
// stays readable after the attempt deadline.
type Fetcher struct {
	Client    *http.Client
	Limits    *Registry
	Policy    *RetryPolicy
	Timeout   time.Duration
	UserAgent string
	Logger    *logging.Logger

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// Get issues a GET request for rawURL.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string, opts RequestOptions) (*http.Response, error) {
	return f.simple(ctx, http.MethodGet, rawURL, accept, opts)
}

// Head issues a HEAD request for rawURL.
func (f *Fetcher) Head(ctx context.Context, rawURL string, opts RequestOptions) (*http.Response, error) {
	return f.simple(ctx, http.MethodHead, rawURL, "", opts)
}

func (f *Fetcher) simple(ctx context.Context, method, rawURL, accept string, opts RequestOptions) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &core.RequestError{URL: rawURL, Context: opts.Context, Err: err}
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return f.Do(ctx, req, opts)
}

// Do sends req, retrying network errors and retriable statuses with
// exponential backoff plus jitter. A non-retriable response is returned as
// is. When retries run out on a retriable status the last response is
// returned; when they run out on network errors a *core.RequestError is.
func (f *Fetcher) Do(ctx context.Context, req *http.Request, opts RequestOptions) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("request is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	policy := f.policy(opts)
	timeout := f.timeout(opts)
	host := req.URL.Hostname()
	target := req.URL.String()

	for attempt := 0; ; attempt++ {
		resp, err := f.attempt(ctx, req, opts.Class, host, timeout)

		var reason string
		if err == nil {
			if !policy.retriable(resp.StatusCode) || attempt >= policy.MaxRetries {
				return resp, nil
			}
			reason = strconv.Itoa(resp.StatusCode)
			_ = resp.Body.Close()
		} else {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &core.RequestError{URL: target, Context: opts.Context, Err: ctxErr}
			}
			if errors.Is(err, ErrBucketStopped) || attempt >= policy.MaxRetries {
				return nil, &core.RequestError{URL: target, Context: opts.Context, Err: err}
			}
			reason = "network"
		}

		delay := policy.Backoff(attempt) + f.nextJitter()
		metrics.RecordFetchRetry(host, reason)
		if f.Logger != nil {
			fields := []zap.Field{
				zap.String("url", target),
				zap.Int("attempt", attempt+1),
				zap.String("reason", reason),
				zap.Duration("delay", delay),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			f.Logger.Debug("Retrying storefront request", fields...)
		}

		if err := f.wait(ctx, delay); err != nil {
			return nil, &core.RequestError{URL: target, Context: opts.Context, Err: err}
		}
	}
}

func (f *Fetcher) attempt(ctx context.Context, req *http.Request, class, host string, timeout time.Duration) (*http.Response, error) {
	return Do(ctx, f.Limits, class, host, func(ctx context.Context) (*http.Response, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		out, err := cloneRequest(attemptCtx, req)
		if err != nil {
			return nil, err
		}
		if f.UserAgent != "" && out.Header.Get("User-Agent") == "" {
			out.Header.Set("User-Agent", f.UserAgent)
		}

		start := time.Now()
		resp, err := f.client().Do(out)
		if err != nil {
			metrics.RecordFetchAttempt(host, 0, time.Since(start))
			return nil, err
		}
		defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		metrics.RecordFetchAttempt(host, resp.StatusCode, time.Since(start))
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
		return resp, nil
	})
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	out := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, errors.New("request body cannot be replayed")
		}
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
	}
	return out, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Fetcher) policy(opts RequestOptions) RetryPolicy {
	if opts.Retry != nil {
		return *opts.Retry
	}
	if f.Policy != nil {
		return *f.Policy
	}
	return DefaultRetryPolicy
}

func (f *Fetcher) timeout(opts RequestOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultTimeout
}

func (f *Fetcher) nextJitter() time.Duration {
	if f.jitter != nil {
		return f.jitter()
	}
	return rand.N(maxJitter)
}

func (f *Fetcher) wait(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
