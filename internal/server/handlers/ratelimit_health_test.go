package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storelens/storelens/internal/core/engine"
)

func backedUpRegistry(t *testing.T, queued int) *engine.Registry {
	t.Helper()
	on := true
	registry := engine.NewRegistry()
	registry.Configure(engine.RateLimitConfig{
		Enabled: &on,
		Global:  engine.BucketOptions{MaxRequestsPerInterval: 1, Interval: time.Hour, MaxConcurrency: 1}.Patch(),
	})

	release := make(chan struct{})
	t.Cleanup(func() {
		close(release)
		registry.Stop()
	})

	for range queued + 1 {
		go func() {
			_ = registry.Schedule(context.Background(), "products:list", "shop.example.com", func(ctx context.Context) error {
				<-release
				return nil
			})
		}()
	}
	require.Eventually(t, func() bool {
		for _, stats := range registry.Snapshot() {
			if stats.Queued == queued {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return registry
}

func TestRateLimitCheckerHealthy(t *testing.T) {
	require.NoError(t, RateLimitChecker{}.CheckHealth(context.Background()))
	require.NoError(t, RateLimitChecker{Registry: engine.NewRegistry()}.CheckHealth(context.Background()))

	registry := backedUpRegistry(t, 2)
	require.NoError(t, RateLimitChecker{Registry: registry, MaxQueued: 2}.CheckHealth(context.Background()))
}

func TestRateLimitCheckerDegradesHealth(t *testing.T) {
	registry := backedUpRegistry(t, 3)

	err := RateLimitChecker{Registry: registry, MaxQueued: 2}.CheckHealth(context.Background())
	require.ErrorIs(t, err, ErrDegraded)

	manager := NewHealthManager("1.2.3")
	manager.RegisterChecker("rate_limiter", RateLimitChecker{Registry: registry, MaxQueued: 2})

	rec := httptest.NewRecorder()
	manager.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "degraded", resp.Status)
	require.Equal(t, "degraded", resp.Checks["rate_limiter"])
}
