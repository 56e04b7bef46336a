package objstore

import (
	"errors"
	"fmt"
)

// ErrKind classifies gateway failures so callers can decide on retries
// without inspecting backend-specific errors.
type ErrKind int

const (
	KindOther ErrKind = iota
	KindNotFound
	KindAccessDenied
	KindTransient
)

func (k ErrKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindTransient:
		return "transient"
	default:
		return "other"
	}
}

type Error struct {
	Kind ErrKind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("objstore %s %q: %s: %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrKind, op, key string, err error) *Error {
	return &Error{Kind: kind, Op: op, Key: key, Err: err}
}

// IsNotFound reports whether err is a missing-object error.
func IsNotFound(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindNotFound
}

// IsTransient reports whether the operation is safe to retry as-is.
func IsTransient(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Kind == KindTransient
}
