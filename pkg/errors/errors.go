// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with sentinel errors that may wrap a cause without
// losing their identity.
//
// Wrapping a sentinel never mutates it: Wrap returns a new *Error
// that still matches the sentinel with Is.
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a sentinel error, optionally wrapping some cause.
//
// The main difference with github.com/pkg/errors is that we are wrapping
// errors from errors, not from text.
type Error struct {
	msg  string
	err  error
	kind *Error
}

// Error message, with the wrapped cause when any
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error, yielding a new error of the same kind
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, kind: e.sentinel()}
}

// Wrapf wraps a formatted message as the nested error
func (e *Error) Wrapf(format string, args ...interface{}) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || e.sentinel() == t.sentinel()
}

func (e *Error) sentinel() *Error {
	if e.kind != nil {
		return e.kind
	}
	return e
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}

// Join several errors into one (a shortcut to standard lib errors.Join)
func Join(errs ...error) error {
	return stderr.Join(errs...)
}
