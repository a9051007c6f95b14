package records

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed records API call.
type ErrorKind int

const (
	// KindUnknown covers transport failures, an open breaker and unexpected statuses.
	KindUnknown ErrorKind = iota
	KindNotFound
	KindValidation
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrValidation = &Error{Kind: KindValidation}
	ErrServer     = &Error{Kind: KindServer}
	ErrUnknown    = &Error{Kind: KindUnknown}
)

// Error is returned by every Client method on failure.
type Error struct {
	Kind   ErrorKind
	Op     string
	Status int
	// Detail holds the start of the response body, if any.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("records %s: %s", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Status == 0 && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of err. Errors that did not come from the gateway are KindUnknown.
func KindOf(err error) ErrorKind {
	var recErr *Error
	if errors.As(err, &recErr) {
		return recErr.Kind
	}
	return KindUnknown
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case 400:
		return KindValidation
	case 404:
		return KindNotFound
	case 500:
		return KindServer
	default:
		return KindUnknown
	}
}
