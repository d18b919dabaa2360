// Package sentinel holds the infrastructure-level errors returned by stores.
// Services translate them into domain errors; handlers never see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound is returned when a row or in-memory record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost a race or a
	// uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed is returned when a one-shot state change was already applied.
	ErrAlreadyUsed = errors.New("already used")
	// ErrUnavailable is returned when a backing service cannot be reached.
	ErrUnavailable = errors.New("unavailable")
)
