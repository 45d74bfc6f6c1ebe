package metrics

import (
	"time"

	"github.com/storelens/storelens/internal/observability"
)

// Application-level metrics
const (
	OperationsTotal   = "app_operations_total"
	OperationDuration = "app_operation_duration_ms"
	ClientPoolSize    = "app_store_clients"
	ServerStartTime   = "app_server_start_time_seconds"
)

// RecordOperation records one storefront operation (store:info,
// products:list, ...) with its outcome and duration.
func RecordOperation(operation string, success bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}
	_ = observability.TelemetrySystem.Counter(OperationsTotal, 1, map[string]string{
		"operation": operation,
		"status":    status,
	})
	_ = observability.TelemetrySystem.Histogram(OperationDuration, duration, map[string]string{
		"operation": operation,
	})
}

// SetClientPoolSize publishes the number of cached per-store clients.
func SetClientPoolSize(count int) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ClientPoolSize, float64(count), nil)
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
}
