// Package apperr defines the service's error taxonomy and the mapping from
// error kinds to transport-specific statuses (HTTP for the management plane,
// gRPC for the authorization engine).
package apperr

import "errors"

// Kind classifies an error into one of the service's error categories.
type Kind int

const (
	// KindUnknown is the zero value; treated as an internal error.
	KindUnknown Kind = iota
	// KindNotFound means the requested row does not exist or is not owned
	// by the caller. Never distinguished from "not owned" — see the
	// ownership-isolation invariant.
	KindNotFound
	// KindUnauthorized means bearer-token validation failed, was missing,
	// or lacked a subject claim.
	KindUnauthorized
	// KindPermissionDenied is surfaced only via gRPC: the data-plane
	// credential was missing or invalid.
	KindPermissionDenied
	// KindBadInput means the request body was malformed or a required
	// field was missing.
	KindBadInput
	// KindConflict means a unique-constraint violation, e.g. a duplicate
	// key_hash.
	KindConflict
	// KindDbError covers pool exhaustion, connection loss, and
	// transaction failure.
	KindDbError
	// KindConfigError means the configuration document was malformed or
	// incomplete at startup.
	KindConfigError
	// KindInfraError covers JWKS fetch failure and upstream TLS errors.
	KindInfraError
)

// Error is the service's concrete error type. Cause is preserved for logging
// but is never included in a message surfaced to a caller.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind of err, defaulting to KindUnknown for any error
// that isn't an *Error (or doesn't wrap one).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// NotFound reports whether err (or a wrapped cause) is a KindNotFound error.
func NotFound(err error) bool { return KindOf(err) == KindNotFound }

// Unauthorized reports whether err (or a wrapped cause) is a KindUnauthorized error.
func Unauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// Conflict reports whether err (or a wrapped cause) is a KindConflict error.
func Conflict(err error) bool { return KindOf(err) == KindConflict }

// BadInput reports whether err (or a wrapped cause) is a KindBadInput error.
func BadInput(err error) bool { return KindOf(err) == KindBadInput }
