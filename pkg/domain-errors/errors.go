// Package domainerrors provides code-tagged errors for the service layer.
// Services translate store sentinels into these; the transport layer maps
// codes onto HTTP statuses without inspecting error strings.
package domainerrors

import (
	"errors"
)

// Code classifies a domain error for callers and the transport layer.
type Code string

const (
	// CodeBadRequest marks malformed or invalid input (unknown tranche,
	// non-positive quantity, unknown denomination).
	CodeBadRequest Code = "bad_request"
	// CodeNotFound marks a missing entity (household, merchant, pending code).
	CodeNotFound Code = "not_found"
	// CodeConflict marks a state conflict (tranche already claimed,
	// insufficient active vouchers, duplicate registration).
	CodeConflict Code = "conflict"
	// CodeTimeout marks a cancelled or deadline-exceeded operation.
	CodeTimeout Code = "timeout"
	// CodeInternal marks storage and other infrastructure failures.
	CodeInternal Code = "internal"
)

// Error carries a classification code alongside a human-readable message and
// an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New constructs a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap constructs a domain error that records err as its cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HasCode reports whether err (or anything it wraps) is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is a readability alias for HasCode, used at handler call sites.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf returns the code of err, or CodeInternal when err is not a domain
// error. Nil errors have no code and panic; callers must check err first.
func CodeOf(err error) Code {
	if err == nil {
		panic("domainerrors.CodeOf: nil error")
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
