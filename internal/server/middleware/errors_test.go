package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecoveryWritesInternalError(t *testing.T) {
	collector := setupTelemetry(t)

	handler := RequestID(Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/stores/shop.example.com/info", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	require.Equal(t, "panic: boom", body.Error.Message)
	require.Equal(t, "req-123", body.Error.RequestID)
	require.Greater(t, collector.CountMetricsByName("panics_total"), 0)
}

func TestGetEndpointPatternFallbacks(t *testing.T) {
	cases := map[string]string{
		"/health/ready":                        "/health/*",
		"/version":                             "/version",
		"/v1/stores/shop.example.com/products": "/v1/stores/*",
		"/v1/stores/shop.example.com/info":     "/v1/stores/*",
		"/something/else":                      "/unknown",
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		require.Equal(t, want, getEndpointPattern(req), path)
	}
}
