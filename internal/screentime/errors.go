package screentime

import (
	"errors"
	"fmt"
)

// Kind is the machine-readable category of a failed call.
type Kind string

const (
	KindPermissionDenied Kind = "PERMISSION_DENIED"
	KindInvalidArgument  Kind = "INVALID_ARGUMENT"
	KindNativeError      Kind = "NATIVE_ERROR"
	KindNotImplemented   Kind = "NOT_IMPLEMENTED"
)

// Error is returned by Dispatcher.Call for every failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindNativeError for errors that did not
// come from the dispatcher.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNativeError
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
