package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success reply from a provider's HTTP API
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// StatusCode extracts the HTTP status of a provider failure, or 0 when unknown
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsRetryable reports whether a failed call may succeed if repeated
func IsRetryable(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
