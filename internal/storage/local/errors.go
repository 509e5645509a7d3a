package local

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for IDs that would escape the collection
	ErrInvalidID = errors.New("invalid record id")
)
