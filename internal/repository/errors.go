package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a concurrent write already claimed the same slot
	ErrConflict = errors.New("conflict: entity was modified concurrently")

	// ErrStorageFailure tags failures of a persistence collaborator
	ErrStorageFailure = errors.New("storage failure")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
