// Package common defines the error taxonomy shared by the repository, service
// and transport layers. Callers match kinds with errors.Is and read the
// user-facing message with errors.As.
package common

import "errors"

var (
	// ErrValidation marks a missing or invalid required field.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a referenced id or code that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate unique field.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable marks an unreachable store or transport.
	ErrUnavailable = errors.New("unavailable")
)

// Error carries a short user-visible message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Validation(msg string) error { return &Error{Kind: ErrValidation, Message: msg} }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Message: msg} }

func Conflict(msg string) error { return &Error{Kind: ErrConflict, Message: msg} }

func Unavailable(msg string) error { return &Error{Kind: ErrUnavailable, Message: msg} }

// Message returns the user-visible message of err, or fallback when err does
// not carry one.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
