package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique key (id, email, token) is already taken.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConflict is returned when a write would replace a payment intent reference with a different one.
	ErrConflict = errors.New("persistence: conflicting update")
	// ErrConstraintViolation is returned when a record is missing required fields.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
)
