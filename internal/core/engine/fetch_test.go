package engine

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core"
)

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func testFetcher(client *http.Client) (*Fetcher, *recordedSleeps) {
	sleeps := &recordedSleeps{}
	return &Fetcher{
		Client: client,
		sleep:  sleeps.sleep,
		jitter: func() time.Duration { return 0 },
	}, sleeps
}

func statusSequence(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		status := statuses[len(statuses)-1]
		if n < len(statuses) {
			status = statuses[n]
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte("attempt"))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestFetcherRetriesServiceUnavailable(t *testing.T) {
	server, calls := statusSequence(t, http.StatusServiceUnavailable, http.StatusOK)
	fetcher, sleeps := testFetcher(server.Client())

	resp, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), calls.Load())
	require.Equal(t, []time.Duration{200 * time.Millisecond}, sleeps.delays)
}

func TestFetcherReturnsLastRetriableResponse(t *testing.T) {
	server, calls := statusSequence(t, http.StatusTooManyRequests)
	fetcher, sleeps := testFetcher(server.Client())

	resp, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, int32(3), calls.Load())
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeps.delays)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "attempt", string(body))
}

func TestFetcherDoesNotRetryNotFound(t *testing.T) {
	server, calls := statusSequence(t, http.StatusNotFound)
	fetcher, sleeps := testFetcher(server.Client())

	resp, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, int32(1), calls.Load())
	require.Empty(t, sleeps.delays)
}

func TestFetcherCustomStatuses(t *testing.T) {
	server, calls := statusSequence(t, http.StatusBadGateway, http.StatusOK)
	fetcher, _ := testFetcher(server.Client())

	policy := RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, RetryOnStatuses: []int{http.StatusBadGateway}}
	resp, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{Retry: &policy})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), calls.Load())
}

func TestFetcherNetworkErrorExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL
	client := server.Client()
	server.Close()

	fetcher, sleeps := testFetcher(client)

	resp, err := fetcher.Get(context.Background(), target+"/products.json", "", RequestOptions{Context: "list products"})
	require.Nil(t, resp)
	require.Error(t, err)

	var reqErr *core.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.Equal(t, target+"/products.json", reqErr.URL)
	require.Equal(t, "list products", reqErr.Context)
	require.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, sleeps.delays)
}

func TestFetcherAttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	fetcher, _ := testFetcher(server.Client())
	noRetry := RetryPolicy{}

	_, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{Retry: &noRetry, Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcherReplaysRequestBody(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		mu.Unlock()
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	fetcher, _ := testFetcher(server.Client())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, server.URL, bytes.NewReader([]byte(`{"q":1}`)))
	require.NoError(t, err)

	resp, err := fetcher.Do(context.Background(), req, RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{`{"q":1}`, `{"q":1}`}, bodies)
}

func TestFetcherSetsUserAgent(t *testing.T) {
	var agent atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent.Store(r.Header.Get("User-Agent"))
	}))
	t.Cleanup(server.Close)

	fetcher, _ := testFetcher(server.Client())
	fetcher.UserAgent = "storelens-test"

	_, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{})
	require.NoError(t, err)
	require.Equal(t, "storelens-test", agent.Load())
}

func TestFetcherGoesThroughLimiter(t *testing.T) {
	server, _ := statusSequence(t, http.StatusOK)
	registry := enabledRegistry(t, RateLimitConfig{
		PerClass: map[string]BucketPatch{"products:list": {MaxRequestsPerInterval: intPtr(2), Interval: durationPtr(time.Hour)}},
	})

	fetcher, _ := testFetcher(server.Client())
	fetcher.Limits = registry

	for range 2 {
		_, err := fetcher.Get(context.Background(), server.URL, "", RequestOptions{Class: "products:list"})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := fetcher.Get(ctx, server.URL, "", RequestOptions{Class: "products:list"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryPolicyBackoff(t *testing.T) {
	require.Equal(t, 200*time.Millisecond, DefaultRetryPolicy.Backoff(0))
	require.Equal(t, 400*time.Millisecond, DefaultRetryPolicy.Backoff(1))
	require.Equal(t, 800*time.Millisecond, DefaultRetryPolicy.Backoff(2))
}
