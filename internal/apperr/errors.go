// Package apperr defines the sentinel errors shared across the journal.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")

	// ErrNotAuthenticated is returned when a mutation is attempted without a current user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnavailable wraps request failures of the persistence backend.
	ErrUnavailable = errors.New("remote unavailable")
	// ErrNoFallbackFolder is returned when an operation needs the fallback folder and none resolves.
	ErrNoFallbackFolder = errors.New("no fallback folder")
)
