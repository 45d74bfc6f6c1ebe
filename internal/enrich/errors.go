package enrich

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError is returned when the model endpoint responds with a non-2xx
// status. Message never includes the API key.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	return fmt.Sprintf("classification request failed: status %d: %s", e.StatusCode, e.Message)
}

// ErrorCode maps a Classify error to a stable code for CLI and API output.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "ENRICH_PROVIDER_TIMEOUT"
	}

	var perr *ProviderError
	if !errors.As(err, &perr) {
		return "ENRICH_PROVIDER_ERROR"
	}
	switch status := perr.StatusCode; {
	case status == 401 || status == 403:
		return "ENRICH_PROVIDER_AUTH"
	case status == 429:
		return "ENRICH_PROVIDER_RATE_LIMIT"
	case status >= 500:
		return "ENRICH_PROVIDER_UNAVAILABLE"
	case status >= 400:
		return "ENRICH_PROVIDER_BAD_REQUEST"
	default:
		return "ENRICH_PROVIDER_ERROR"
	}
}
