// Copyright © 2018 One Concern

package localfs

import (
	"github.com/oneconcern/pkgr/pkg/errors"
	"github.com/oneconcern/pkgr/pkg/storage/status"
	"golang.org/x/sys/unix"
)

// Classify maps system errors to storage errors: running out of space yields
// status.ErrStorageExhausted. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsExhausted(err) && !errors.Is(err, status.ErrStorageExhausted) {
		return status.ErrStorageExhausted.Wrap(err)
	}
	return err
}

// IsExhausted tells if an error reports a full device or an exceeded quota
func IsExhausted(err error) bool {
	return errors.Is(err, unix.ENOSPC) || errors.Is(err, unix.EDQUOT)
}

// IsCrossDevice tells if a rename failed because source and target live on different devices
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
