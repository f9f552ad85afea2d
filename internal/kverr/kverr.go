// Package kverr defines the typed error kinds shared by the store, session,
// value and web packages. Every error that crosses the HTTP boundary carries
// exactly one Kind so the handler layer can map it to a status code without
// inspecting messages.
package kverr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	// KindInternal is the zero value and covers anything not classified below.
	KindInternal Kind = iota
	// KindInvalidEndpoint means the connection parameters could not form a
	// usable store URL. Not retried.
	KindInvalidEndpoint
	// KindStore means the store call failed or answered with an error.
	KindStore
	// KindType means a canonical value could not be written as the requested
	// native type (including None and Unknown targets).
	KindType
	// KindNotFound means the requested key does not exist.
	KindNotFound
	// KindInvalid means a malformed request parameter (page, key, body).
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindInvalidEndpoint:
		return "invalid_endpoint"
	case KindStore:
		return "store_error"
	case KindType:
		return "type_error"
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid_request"
	default:
		return "internal"
	}
}

// Error is a classified error. Op names the operation that failed, e.g.
// "value: write" or "store: connect".
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Store wraps a failed store call.
func Store(op string, err error) error {
	return E(KindStore, op, err)
}

// Invalid builds a KindInvalid error from a formatted message.
func Invalid(op string, format string, args ...any) error {
	return E(KindInvalid, op, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or KindInternal if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
