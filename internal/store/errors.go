package store

import "errors"

// Sentinel errors mapped to API responses by the service layer.
var (
	// ErrNotFound is returned when a target does not exist.
	ErrNotFound = errors.New("target not found")

	// ErrDuplicateURL is returned when inserting a target whose URL is
	// already registered.
	ErrDuplicateURL = errors.New("target url already registered")
)
