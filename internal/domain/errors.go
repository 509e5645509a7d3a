package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// Shared by the mentor pipelines, the wizard and the outer surfaces.
// -----------------------------------------------------------------------------

// Mentor errors
var (
	// ErrInvalidInput is returned before any remote call when required input is missing
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceUnavailable wraps any failure of the text generation service
	ErrServiceUnavailable = errors.New("text generation service unavailable")
	// ErrMalformedResponse means the service replied but the reply did not conform
	ErrMalformedResponse = errors.New("malformed response")
)

// General errors
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
