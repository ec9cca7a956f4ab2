package application

import (
	"errors"
	"strings"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniquely keyed resource is created twice.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when a write would overwrite state it must not change.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidCredentials is returned when the email or password does not match.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when the session token is past its expiry.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when the session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")
)

// Kind classifies failures so transports can map them without inspecting
// collaborator specific error types.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindAuthentication      Kind = "authentication"
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindConfiguration       Kind = "configuration"
	KindCollaboratorFailure Kind = "collaborator_failure"
	KindPersistenceFailure  Kind = "persistence_failure"
)

// Error is a tagged failure raised by services and collaborators.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

// NewError constructs a tagged error.
func NewError(kind Kind, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Detail != "" {
		b.WriteString(e.Detail)
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message returns the caller facing description of the failure.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	if e.Detail != "" {
		return e.Detail
	}
	return string(e.Kind)
}

// KindOf reports the kind of err, or the empty kind for untagged errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var tagged *Error
	if errors.As(err, &tagged) && tagged.Kind != "" {
		return tagged.Kind
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return KindValidation
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrSessionRevoked),
		errors.Is(err, ErrUnauthorized):
		return KindAuthentication
	}
	return ""
}

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// persistenceError tags err as a persistence failure unless a store adapter
// already classified it.
func persistenceError(op, detail string, err error) error {
	if err == nil || KindOf(err) != "" {
		return err
	}
	return NewError(KindPersistenceFailure, op, detail, err)
}
