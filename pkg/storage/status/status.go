// Copyright © 2018 One Concern

// Package status declares error constants returned by
// implementations of the Store interface.
//
// NOTE: such constants are located in a separate package to avoid
// creating undue cyclical dependencies between pkg/storage and one
// of its implementations.
package status

import (
	"fmt"

	"github.com/oneconcern/pkgr/pkg/errors"
)

var (
	// Sentinel errors returned by implementations of the interface defined by storage

	// ErrNotFound indicates that the fetched object does not exist on storage
	ErrNotFound = errors.New("not found")

	// ErrExists indicates that the object already exists and cannot be overridden
	ErrExists = errors.New("exists already")

	// ErrForbidden indicates that the backend forbids access to the target resource
	ErrForbidden = errors.New("forbidden")

	// ErrNotSupported indicates that the backend does not support this call
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidKey indicates a key escaping the store or clashing with internal names
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrNetwork indicates a failure to reach a remote store
	ErrNetwork = errors.New("network error")

	// ErrStorageExhausted indicates that no space is left on the device
	ErrStorageExhausted = errors.New("storage exhausted")
)

// NetworkError is a remote fetch failure.
//
// Transient errors (timeouts, resets, 5xx, 429) may be retried.
type NetworkError struct {
	URL       string
	Transient bool
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrNetwork, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, ErrNetwork)
func (e *NetworkError) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && ErrNetwork.Is(t)
}

// IsTransient tells if an error is a network error worth retrying
func IsTransient(err error) bool {
	var nerr *NetworkError
	return errors.As(err, &nerr) && nerr.Transient
}
