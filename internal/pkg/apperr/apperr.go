// Package apperr defines the error taxonomy surfaced to callers of the services.
// Each error carries a stable Code and a machine-readable Reason; driver and
// storage details stay in the wrapped cause and never reach users.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable error category.
type Code string

const (
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeNotFound             Code = "not_found"
	CodeConflict             Code = "conflict"
	CodeExpired              Code = "expired"
	CodeInvalidInput         Code = "invalid_input"
	CodeInsufficientResource Code = "insufficient_resource"
	CodeInternal             Code = "internal"
)

// Error is a categorized application error.
type Error struct {
	Code   Code
	Reason string
	Err    error
}

// New creates a sentinel error with the given code and reason.
func New(code Code, reason string) *Error {
	return &Error{Code: code, Reason: reason}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same code and reason, so a sentinel
// matches copies produced by Wrap.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Reason == t.Reason
}

// Wrap attaches a cause to a copy of the sentinel.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Reason: e.Reason, Err: cause}
}

// Internal wraps an unexpected failure.
func Internal(reason string, cause error) *Error {
	return &Error{Code: CodeInternal, Reason: reason, Err: cause}
}

// CodeOf returns the category of err. Uncategorized errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ReasonOf returns the reason of the outermost *Error in err's chain.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err == nil {
		return ""
	}
	return "internal"
}
