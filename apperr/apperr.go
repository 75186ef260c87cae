// Package apperr carries a stable, machine-checkable error kind from the
// services to the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind error category exposed to clients
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidInput Kind = "invalid_input"
	KindConflict     Kind = "conflict"
	KindUpstream     Kind = "upstream_failure"
	KindInternal     Kind = "internal"
	KindUnauthorized Kind = "unauthorized"
)

// Error user-visible failure. Message is safe to show; Err is logged only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotFound(msg string) *Error     { return newError(KindNotFound, msg, nil) }
func Forbidden(msg string) *Error    { return newError(KindForbidden, msg, nil) }
func InvalidInput(msg string) *Error { return newError(KindInvalidInput, msg, nil) }
func Conflict(msg string) *Error     { return newError(KindConflict, msg, nil) }
func Unauthorized(msg string) *Error { return newError(KindUnauthorized, msg, nil) }

// Upstream external content source failed or timed out
func Upstream(msg string, err error) *Error { return newError(KindUpstream, msg, err) }

// Internal unexpected store or logic failure
func Internal(msg string, err error) *Error { return newError(KindInternal, msg, err) }

// Wrap attaches a cause to a kind
func Wrap(kind Kind, msg string, err error) *Error { return newError(kind, msg, err) }

// KindOf kind of err; anything that is not an *Error is internal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf client-facing message; internal causes are never exposed
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus status code for a kind
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
