// Package archerr implements the core error taxonomy: a small set of
// machine-readable kinds every component operation fails with, per the
// propagation policy that the core never swallows an error silently.
package archerr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error category.
type Kind string

const (
	Validation   Kind = "VALIDATION"
	PolicyDenied Kind = "POLICY_DENIED"
	NotAuthorized Kind = "NOT_AUTHORIZED"
	NotFound     Kind = "NOT_FOUND"
	Conflict     Kind = "CONFLICT"
	Cryptographic Kind = "CRYPTOGRAPHIC"
	Transport    Kind = "TRANSPORT"
	Backend      Kind = "BACKEND"
	Internal     Kind = "INTERNAL"
	RateLimited  Kind = "RATE_LIMITED"
)

// Retryable reports whether the propagation policy treats this kind as
// transient and eligible for bounded in-component retry.
func (k Kind) Retryable() bool {
	return k == Transport || k == Conflict
}

// Fatal reports whether the kind can terminate the owning process
// rather than just failing the individual call.
func (k Kind) Fatal() bool {
	return k == Internal
}

// Error is the error type returned by every component operation.
type Error struct {
	Kind   Kind
	Code   string // component-scoped machine code, e.g. "ChainDivergence"
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Code, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no underlying cause.
func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// Wrap constructs an Error around an underlying cause.
func Wrap(kind Kind, code, detail string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail, Cause: cause}
}

// Is reports whether err carries the given Kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to Internal if err does
// not carry a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
