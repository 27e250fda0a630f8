// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// Access checks p against the access(2) mode mask. A missing path
// reports not-found; any other failure is a permission denial.
func (d *Dispatcher) Access(ctx context.Context, caller Caller, p string, mode uint32) (err error) {
	target := clean(p)
	defer d.enter(VerbAccess, target)(&err)

	if err := unix.Access(d.abs(target), mode); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return &fs.PathError{Op: "access", Path: target, Err: err}
		}
		return &fs.PathError{Op: "access", Path: target, Err: unix.EACCES}
	}
	return nil
}

// Flush makes data written through handle durable. It runs on every
// close(2) of a descriptor sharing the handle.
func (d *Dispatcher) Flush(ctx context.Context, caller Caller, handle Handle) (err error) {
	defer d.enter(VerbFlush, "")(&err)

	open, err := d.lookup(handle)
	if err != nil {
		return err
	}
	return open.file.Sync()
}

// Fsync makes data written through handle durable. With dataOnly,
// metadata not needed to read the data back may be left unsynced.
func (d *Dispatcher) Fsync(ctx context.Context, caller Caller, handle Handle, dataOnly bool) (err error) {
	defer d.enter(VerbFsync, "")(&err)

	open, err := d.lookup(handle)
	if err != nil {
		return err
	}
	if dataOnly {
		return unix.Fdatasync(int(open.file.Fd()))
	}
	return open.file.Sync()
}

// Release closes handle. The handle is invalid afterwards even when
// closing fails.
func (d *Dispatcher) Release(ctx context.Context, caller Caller, handle Handle) (err error) {
	defer d.enter(VerbRelease, "")(&err)

	open, err := d.unregister(handle)
	if err != nil {
		return err
	}
	return open.file.Close()
}

// Statfs reports capacity of the filesystem holding the workspace.
func (d *Dispatcher) Statfs(ctx context.Context, caller Caller, p string) (result StatfsResult, err error) {
	target := clean(p)
	defer d.enter(VerbStatfs, target)(&err)

	var st unix.Statfs_t
	if err := unix.Statfs(d.abs(target), &st); err != nil {
		return StatfsResult{}, &fs.PathError{Op: "statfs", Path: target, Err: err}
	}
	return StatfsResult{
		Blocks:  st.Blocks,
		Bfree:   st.Bfree,
		Bavail:  st.Bavail,
		Files:   st.Files,
		Ffree:   st.Ffree,
		Bsize:   uint32(st.Bsize),
		Frsize:  uint32(st.Frsize),
		NameLen: uint32(st.Namelen),
	}, nil
}

// Utimens sets the access and modification times of p without
// following a final symlink. A nil time is left unchanged. Timestamps
// are local only and produce no revision.
func (d *Dispatcher) Utimens(ctx context.Context, caller Caller, p string, atime, mtime *time.Time) (err error) {
	target := clean(p)
	defer d.enter(VerbUtimens, target)(&err)

	times := []unix.Timespec{timespec(atime), timespec(mtime)}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, d.abs(target), times, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return &fs.PathError{Op: "utimens", Path: target, Err: err}
	}
	return nil
}

func timespec(t *time.Time) unix.Timespec {
	if t == nil {
		return unix.Timespec{Nsec: unix.UTIME_OMIT}
	}
	return unix.NsecToTimespec(t.UnixNano())
}
