// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
	"testing"

	"github.com/revfs/revfs/lib/dispatch"
)

func TestToErrno(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"pull failure", &dispatch.SyncError{Op: "pull", Err: errors.New("network down")}, syscall.EREMOTEIO},
		{"wrapped push failure", fmt.Errorf("write: %w", &dispatch.SyncError{Op: "push", Err: errors.New("rejected")}), syscall.EREMOTEIO},
		{"not supported", fmt.Errorf("link: %w", dispatch.ErrNotSupported), syscall.ENOTSUP},
		{"bad handle", dispatch.ErrBadHandle, syscall.EBADF},
		{"path error", &os.PathError{Op: "lstat", Path: "/x", Err: syscall.ENOENT}, syscall.ENOENT},
		{"bare errno", syscall.ENOTEMPTY, syscall.ENOTEMPTY},
		{"exist sentinel", fmt.Errorf("mkdir: %w", fs.ErrExist), syscall.EEXIST},
		{"permission sentinel", fs.ErrPermission, syscall.EPERM},
		{"generic", errors.New("commit failed"), syscall.EIO},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := toErrno(test.err); got != test.want {
				t.Errorf("toErrno(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
