// Package apperr defines the typed business errors shared by the booking,
// payment and ticketing services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it without string matching.
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindInvalidState     Kind = "INVALID_STATE"
	KindInvalidSignature Kind = "INVALID_SIGNATURE"
	KindProviderError    Kind = "PROVIDER_ERROR"
	KindValidation       Kind = "VALIDATION"
	KindForbidden        Kind = "FORBIDDEN"
)

// Error is a business failure with a kind, a client-facing message and
// optional details (seat codes, timestamps) the client can render directly.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind. A target with
// a message only matches the same message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// With attaches a detail and returns the same error for chaining.
func (e *Error) With(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Sentinels for errors.Is checks by kind.
var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrInvalidState     = &Error{Kind: KindInvalidState}
	ErrInvalidSignature = &Error{Kind: KindInvalidSignature}
	ErrProviderError    = &Error{Kind: KindProviderError}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrForbidden        = &Error{Kind: KindForbidden}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, fmt.Sprintf(format, args...))
}

func InvalidSignature(format string, args ...interface{}) *Error {
	return New(KindInvalidSignature, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, fmt.Sprintf(format, args...))
}

func ProviderError(message string, err error) *Error {
	return Wrap(KindProviderError, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}
