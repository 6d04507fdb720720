// Package errors defines the error taxonomy shared by every bounded context.
// Each failure carries a Kind that tells the caller how to react and a stable
// Code that identifies the specific condition.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failure by the action a caller should take.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindTransient    Kind = "transient"
	KindInternal     Kind = "internal"
)

// Error is an application error with a kind, a stable code and an optional cause.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	cause   error
}

// New creates an error. Package-level sentinels are built with New and
// specialised per call site with WithDetails or Wrap.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(code, message string) *Error     { return New(KindNotFound, code, message) }
func InvalidState(code, message string) *Error { return New(KindInvalidState, code, message) }
func Conflict(code, message string) *Error     { return New(KindConflict, code, message) }
func Validation(code, message string) *Error   { return New(KindValidation, code, message) }
func Transient(code, message string) *Error    { return New(KindTransient, code, message) }

func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same kind and code, so copies produced by
// WithDetails and Wrap still satisfy errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// WithDetails returns a copy carrying call-site context.
func (e *Error) WithDetails(format string, args ...any) *Error {
	cp := *e
	cp.Details = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Context deadline and cancellation errors
// count as transient; anything unclassified is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry. Conflicts need a reload
// first; transient failures need backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindTransient:
		return true
	default:
		return false
	}
}

// ErrDependencyTimeout is returned when a bounded call to a collaborator
// did not finish in time.
var ErrDependencyTimeout = Transient("dependency_timeout", "dependency did not respond in time")

// ErrDependencyUnavailable is returned when a circuit breaker is open.
var ErrDependencyUnavailable = Transient("dependency_unavailable", "dependency temporarily unavailable")
