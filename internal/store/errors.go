package store

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a write violates a uniqueness
	// constraint (user email, pending application per user/pet pair).
	ErrDuplicate = errors.New("duplicate record")

	// ErrStale is returned by conditional writes when the record no longer
	// matches the expected current state.
	ErrStale = errors.New("record changed concurrently")
)
