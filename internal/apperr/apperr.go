// Package apperr defines the error taxonomy surfaced at the API boundary.
// Services return these; the HTTP layer is the only place that translates
// them into status codes.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindForbidden
	KindNotFound
	KindConflict
	KindQuotaExceeded
	KindColdStorage
	KindLocked
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindColdStorage:
		return "cold_storage"
	case KindLocked:
		return "locked"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error carries a kind, a client-safe message, and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
	// Meta carries kind-specific payload: the offending key for Conflict,
	// the counter for QuotaExceeded, the unlock time for Locked.
	Meta map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// From classifies a sentinel error, reusing its text as the client-safe
// message.
func From(kind Kind, err error) *Error {
	return &Error{Kind: kind, Msg: err.Error(), Err: err}
}

func (e *Error) With(key string, val any) *Error {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = val
	return e
}

// KindOf extracts the taxonomy kind from any error chain.
// Unclassified errors are reported as Transient per the propagation policy.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindTransient
}

func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}
