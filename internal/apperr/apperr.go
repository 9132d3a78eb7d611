// Package apperr defines the typed error kinds distinguished by the core
// per the error handling design: BadRequest, NotFound, Duplicate,
// UpstreamUnavailable, Partial, and Internal. ServiceSurface adapters map
// these onto HTTP status codes and JSON-RPC error codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for transport-layer translation.
type Kind string

const (
	BadRequest          Kind = "bad_request"
	NotFound            Kind = "not_found"
	Duplicate           Kind = "duplicate"
	UpstreamUnavailable Kind = "upstream_unavailable"
	Partial             Kind = "partial"
	Internal            Kind = "internal"
)

// Error is the typed error propagated by core components. ServiceSurface
// converts it into a response envelope rather than letting it reach the wire
// unstructured.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to Internal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
