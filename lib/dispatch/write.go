// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Chmod sets the permission bits of p and records the change.
func (d *Dispatcher) Chmod(ctx context.Context, caller Caller, p string, mode uint32) (err error) {
	target := clean(p)
	defer d.enter(VerbChmod, target)(&err)

	if err := unix.Chmod(d.abs(target), mode&0o7777); err != nil {
		return &fs.PathError{Op: "chmod", Path: target, Err: err}
	}
	if err := d.saveAttributes(target); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[chmod]: %s %o", target, mode&0o7777), target)
}

// Chown sets the owner and group of p and records the change. A uid
// or gid of -1 leaves that id unchanged.
func (d *Dispatcher) Chown(ctx context.Context, caller Caller, p string, uid, gid int) (err error) {
	target := clean(p)
	defer d.enter(VerbChown, target)(&err)

	if err := unix.Lchown(d.abs(target), uid, gid); err != nil {
		return &fs.PathError{Op: "chown", Path: target, Err: err}
	}
	if err := d.saveAttributes(target); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[chown]: %s %d %d", target, uid, gid), target)
}

// Create creates and opens regular file p with mode, records it, and
// returns a handle. flags are open(2) flags; O_CREAT is implied.
func (d *Dispatcher) Create(ctx context.Context, caller Caller, p string, flags int, mode uint32) (handle Handle, err error) {
	target := clean(p)
	defer d.enter(VerbCreate, target)(&err)

	fd, err := unix.Open(d.abs(target), flags|unix.O_CREAT|unix.O_CLOEXEC, mode&0o7777)
	if err != nil {
		return 0, &fs.PathError{Op: "create", Path: target, Err: err}
	}
	handle = d.register(os.NewFile(uintptr(fd), d.abs(target)), target)

	err = d.saveAttributes(target)
	if err == nil {
		err = d.record(ctx, caller, fmt.Sprintf("revfs[create]: %s %o", target, mode&0o7777), target)
	}
	if err != nil {
		if open, releaseErr := d.unregister(handle); releaseErr == nil {
			open.file.Close()
		}
		return 0, err
	}
	return handle, nil
}

// Mkdir creates directory p with mode and records it. Version control
// does not track empty directories; the attribute record keeps the
// directory alive in the revision.
func (d *Dispatcher) Mkdir(ctx context.Context, caller Caller, p string, mode uint32) (err error) {
	target := clean(p)
	defer d.enter(VerbMkdir, target)(&err)

	if err := unix.Mkdir(d.abs(target), mode&0o7777); err != nil {
		return &fs.PathError{Op: "mkdir", Path: target, Err: err}
	}
	if err := d.saveAttributes(target); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[mkdir]: %s %o", target, mode&0o7777), target)
}

// Rename moves oldPath to newPath together with its attribute record
// and, for a directory, the records of everything beneath it. Records
// of a replaced destination are dropped even when the source has none.
// Content and records land in one revision.
func (d *Dispatcher) Rename(ctx context.Context, caller Caller, oldPath, newPath string) (err error) {
	from, to := clean(oldPath), clean(newPath)
	defer d.enter(VerbRename, from)(&err)

	if err := d.checkRename(from, to); err != nil {
		return err
	}
	if err := d.client.Move(ctx, from, to); err != nil {
		return fmt.Errorf("moving %s to %s: %w", from, to, err)
	}
	if _, err := d.store.Move(from, to); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[rename]: %s -> %s", from, to), from, to)
}

// checkRename applies rename(2) preconditions before version control
// sees the request, so failures carry the errno the kernel expects.
func (d *Dispatcher) checkRename(from, to string) error {
	var source, destination unix.Stat_t
	if err := unix.Lstat(d.abs(from), &source); err != nil {
		return &fs.PathError{Op: "rename", Path: from, Err: err}
	}
	if err := unix.Lstat(d.abs(to), &destination); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil
		}
		return &fs.PathError{Op: "rename", Path: to, Err: err}
	}
	sourceDir := source.Mode&unix.S_IFMT == unix.S_IFDIR
	destinationDir := destination.Mode&unix.S_IFMT == unix.S_IFDIR
	switch {
	case sourceDir && !destinationDir:
		return &fs.PathError{Op: "rename", Path: to, Err: unix.ENOTDIR}
	case !sourceDir && destinationDir:
		return &fs.PathError{Op: "rename", Path: to, Err: unix.EISDIR}
	}
	return nil
}

// Rmdir removes empty directory p, then its attribute record and
// mirrored shadow directory. Record cleanup is best effort: the
// directory is already gone when it runs.
func (d *Dispatcher) Rmdir(ctx context.Context, caller Caller, p string) (err error) {
	target := clean(p)
	defer d.enter(VerbRmdir, target)(&err)

	if err := unix.Rmdir(d.abs(target)); err != nil {
		return &fs.PathError{Op: "rmdir", Path: target, Err: err}
	}
	if err := d.store.RemoveDir(target); err != nil {
		d.logger.Warn("removing shadow directory", "path", target, "error", err)
	}
	if err := d.store.Remove(target); err != nil {
		d.logger.Warn("removing attribute record", "path", target, "error", err)
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[rmdir]: %s", target), target)
}

// Symlink creates a symlink at linkPath pointing to target and records
// it with its attribute record. target is stored verbatim.
func (d *Dispatcher) Symlink(ctx context.Context, caller Caller, target, linkPath string) (err error) {
	link := clean(linkPath)
	defer d.enter(VerbSymlink, link)(&err)

	if err := os.Symlink(target, d.abs(link)); err != nil {
		return err
	}
	if err := d.saveAttributes(link); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[symlink]: %s -> %s", link, target), link)
}

// Truncate sets the size of p to length and records it together with
// the updated attribute record. A non-zero handle truncates through the
// open file, which succeeds even when the file's mode would forbid
// reopening it for writing.
func (d *Dispatcher) Truncate(ctx context.Context, caller Caller, p string, length int64, handle Handle) (err error) {
	target := clean(p)
	defer d.enter(VerbTruncate, target)(&err)

	if handle != 0 {
		open, err := d.lookup(handle)
		if err != nil {
			return err
		}
		if err := open.file.Truncate(length); err != nil {
			return err
		}
	} else if err := unix.Truncate(d.abs(target), length); err != nil {
		return &fs.PathError{Op: "truncate", Path: target, Err: err}
	}
	if err := d.saveAttributes(target); err != nil {
		return err
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[truncate]: %s", target), target)
}

// Unlink removes p and, best effort, its attribute record.
func (d *Dispatcher) Unlink(ctx context.Context, caller Caller, p string) (err error) {
	target := clean(p)
	defer d.enter(VerbUnlink, target)(&err)

	if err := unix.Unlink(d.abs(target)); err != nil {
		return &fs.PathError{Op: "unlink", Path: target, Err: err}
	}
	if err := d.store.Remove(target); err != nil {
		d.logger.Warn("removing attribute record", "path", target, "error", err)
	}
	return d.record(ctx, caller, fmt.Sprintf("revfs[unlink]: %s", target), target)
}

// Write writes data at offset through an open handle and records the
// change together with the updated attribute record. It returns the
// number of bytes written.
func (d *Dispatcher) Write(ctx context.Context, caller Caller, p string, handle Handle, data []byte, offset int64) (written int, err error) {
	target := clean(p)
	defer d.enter(VerbWrite, target)(&err)

	open, err := d.lookup(handle)
	if err != nil {
		return 0, err
	}
	for written < len(data) {
		n, err := unix.Pwrite(int(open.file.Fd()), data[written:], offset+int64(written))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return written, &fs.PathError{Op: "pwrite", Path: target, Err: err}
		}
		written += n
	}
	if err := d.saveAttributes(target); err != nil {
		return written, err
	}
	if err := d.record(ctx, caller, fmt.Sprintf("revfs[write]: %s", target), target); err != nil {
		return written, err
	}
	return written, nil
}
