// Package apperr defines the error taxonomy shared by services and the
// HTTP layer. Services return an *Error with a Kind; the server package
// maps kinds to HTTP status codes in exactly one place.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// KindInternal is the fallback for unexpected failures.
	KindInternal Kind = iota
	// KindUnauthorized means no valid session or bad credentials.
	KindUnauthorized
	// KindInvalidInput means a missing or malformed request field.
	KindInvalidInput
	// KindNotFound means the referenced record does not exist or is not
	// visible to the caller.
	KindNotFound
	// KindConflict means the operation clashes with existing state.
	KindConflict
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Unauthorized creates a KindUnauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// InvalidInput creates a KindInvalidInput error.
func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// NotFound creates a KindNotFound error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Conflict creates a KindConflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf extracts the kind from an error chain. Unknown errors are
// classified as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf extracts the user-facing message from an error chain.
// Unknown errors fall back to the given message so internal details
// never leak to clients.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
