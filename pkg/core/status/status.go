// Package status exports errors produced by the core package.
package status

import (
	"fmt"

	"github.com/oneconcern/pkgr/pkg/errors"
	storagestatus "github.com/oneconcern/pkgr/pkg/storage/status"
)

var (
	// ErrNotFound indicates a package, version, source or repository was not found.
	//
	// Objects missing from a source are reported with the same sentinel.
	ErrNotFound = storagestatus.ErrNotFound

	// ErrAlreadyExists indicates an attempt to add a version or source that is already present
	ErrAlreadyExists = errors.New("already exists")

	// ErrEmpty indicates a ledger with no versions
	ErrEmpty = errors.New("empty")

	// ErrChecksumMismatch indicates that a file is missing or does not match its declared hash
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrNetwork indicates a failure to fetch from a remote source
	ErrNetwork = storagestatus.ErrNetwork

	// ErrConfig indicates an invalid configuration or an unusable source
	ErrConfig = errors.New("configuration error")

	// ErrLockContention indicates that another process holds the repository lock
	ErrLockContention = errors.New("repository is locked by another process")

	// ErrLockLost indicates that the repository lock was lost while operating
	ErrLockLost = errors.New("repository lock lost")

	// ErrLedgerInconsistent indicates that ledgers and the package store disagree.
	//
	// Run "pkgr repo update local --repair" to recover.
	ErrLedgerInconsistent = errors.New("ledger inconsistent with package store")

	// ErrStorageExhausted indicates that the device is out of space
	ErrStorageExhausted = storagestatus.ErrStorageExhausted

	// ErrForeignLedger indicates a comparison of positions taken from different ledgers
	ErrForeignLedger = errors.New("positions belong to different ledgers")
)

// ChecksumMismatchError names the offending file of a failed verification
type ChecksumMismatchError struct {
	Path string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%v: %s", ErrChecksumMismatch, e.Path)
}

// Is allows errors.Is(err, ErrChecksumMismatch)
func (e *ChecksumMismatchError) Is(target error) bool {
	t, ok := target.(*errors.Error)
	return ok && ErrChecksumMismatch.Is(t)
}

// NewChecksumMismatch builds a checksum error for a path
func NewChecksumMismatch(pth string) error {
	return &ChecksumMismatchError{Path: pth}
}

// NetworkError is a remote fetch failure
type NetworkError = storagestatus.NetworkError

// IsFatal tells if an error must abort a batch of operations
func IsFatal(err error) bool {
	return errors.Is(err, ErrLockLost) ||
		errors.Is(err, ErrStorageExhausted) ||
		errors.Is(err, ErrLedgerInconsistent)
}
