// Package errs defines the error kinds shared by the ranking engine and the
// helpers used to attach an operation name to them.
//
// Callers classify failures with errors.Is against the sentinel kinds; the
// HTTP layer maps each kind to a status code.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel kinds.
var (
	// ErrInvalidArgument marks input outside the valid domain of an operation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks lookups that matched nothing (wager band, tier code, standing).
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks authored reference data that fails its invariants.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnavailable marks operational failures that are safe to retry.
	ErrUnavailable = errors.New("unavailable")
)

// Error carries the failing operation, its kind and an optional cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Newf returns an error of the given kind with a formatted cause.
func Newf(op string, kind error, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap annotates err with op, keeping whatever kind it already carries.
// It returns nil when err is nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind annotates err with op and classifies it as kind.
func WrapKind(op string, kind, err error) error {
	if err == nil {
		return NewKind(op, kind)
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrInvalidArgument, ErrNotFound, ErrConfiguration, ErrUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRetryable reports whether err is an operational failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
