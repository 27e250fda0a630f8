// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"io/fs"
	"syscall"

	"github.com/revfs/revfs/lib/dispatch"
)

// toErrno maps a dispatcher error to the status returned to the
// kernel. Errors that carry no errno are reported as EIO.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	var syncErr *dispatch.SyncError
	if errors.As(err, &syncErr) {
		return syscall.EREMOTEIO
	}
	if errors.Is(err, dispatch.ErrNotSupported) {
		return syscall.ENOTSUP
	}
	if errors.Is(err, dispatch.ErrBadHandle) {
		return syscall.EBADF
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return syscall.EPERM
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL
	}
	return syscall.EIO
}
