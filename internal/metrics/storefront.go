package metrics

import (
	"strconv"
	"time"

	"github.com/storelens/storelens/internal/observability"
)

// Storefront client metrics
const (
	FetchAttemptsTotal = "storefront_fetch_attempts_total"
	FetchRetriesTotal  = "storefront_fetch_retries_total"
	FetchDuration      = "storefront_fetch_duration_ms"

	RateLimitQueueDepth = "ratelimit_queue_depth"
	RateLimitWait       = "ratelimit_wait_ms"

	CacheLookupsTotal = "cache_lookups_total"
)

// RecordFetchAttempt records one HTTP attempt. status is 0 for transport errors.
func RecordFetchAttempt(host string, status int, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "error"
	if status > 0 {
		outcome = strconv.Itoa(status)
	}
	labels := map[string]string{
		"host":   host,
		"status": outcome,
	}
	_ = observability.TelemetrySystem.Counter(FetchAttemptsTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(FetchDuration, duration, map[string]string{"host": host})
}

// RecordFetchRetry records a scheduled retry and its reason.
func RecordFetchRetry(host, reason string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(FetchRetriesTotal, 1, map[string]string{
		"host":   host,
		"reason": reason,
	})
}

// SetRateLimitQueueDepth publishes the number of queued tasks for a scope.
func SetRateLimitQueueDepth(scope string, depth int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(RateLimitQueueDepth, float64(depth), map[string]string{"scope": scope})
}

// RecordRateLimitWait records how long a task waited for admission.
func RecordRateLimitWait(scope string, wait time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Histogram(RateLimitWait, wait, map[string]string{"scope": scope})
}

// RecordCacheLookup records a hit or miss on a named cache.
func RecordCacheLookup(cache string, hit bool) {
	if observability.TelemetrySystem == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	_ = observability.TelemetrySystem.Counter(CacheLookupsTotal, 1, map[string]string{
		"cache":  cache,
		"result": result,
	})
}
