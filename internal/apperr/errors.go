// Package apperr defines the error kinds returned by the service layer.
// Handlers translate a Kind into an HTTP status; everything else only
// needs errors.As / KindOf.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindConflict       Kind = "conflict"
	KindNotFound       Kind = "not_found"
	KindExternal       Kind = "external"
	KindInternal       Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
	// CurrentStatus is set on conflicts so the caller can decide what to do next.
	CurrentStatus string
	Err           error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind != KindInternal {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) *Error {
	return &Error{Kind: KindAuthentication, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a violated precondition on the current state.
func Conflict(currentStatus string, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...), CurrentStatus: currentStatus}
}

func External(err error, format string, args ...any) *Error {
	return &Error{Kind: KindExternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected fault. Its message never includes the cause.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Msg: "internal error", Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
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

// CurrentStatus extracts the status attached to a conflict error.
func CurrentStatus(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.CurrentStatus
	}
	return ""
}
