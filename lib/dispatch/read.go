// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// Getattr pulls when linked and returns the attributes of p without
// following a final symlink. Reserved paths do not exist as far as
// callers are concerned.
func (d *Dispatcher) Getattr(ctx context.Context, caller Caller, p string) (attr Attr, err error) {
	target := clean(p)
	defer d.enter(VerbGetattr, target)(&err)

	if d.reserved(target) {
		return Attr{}, &fs.PathError{Op: "lstat", Path: target, Err: unix.ENOENT}
	}
	if err := d.pull(ctx); err != nil {
		return Attr{}, err
	}
	return d.lstat(target)
}

// Lstat returns the attributes of p without synchronizing. The mount
// adapter uses it to fill replies after a verb that already synced.
func (d *Dispatcher) Lstat(p string) (Attr, error) {
	d.workspace.MustBeReady("lstat")
	return d.lstat(clean(p))
}

func (d *Dispatcher) lstat(target string) (Attr, error) {
	var st unix.Stat_t
	if err := unix.Lstat(d.abs(target), &st); err != nil {
		return Attr{}, &fs.PathError{Op: "lstat", Path: target, Err: err}
	}
	return attrFromStat(&st), nil
}

// Open pulls and re-applies stored attributes when linked, then opens
// p with the given open(2) flags.
func (d *Dispatcher) Open(ctx context.Context, caller Caller, p string, flags int) (handle Handle, err error) {
	target := clean(p)
	defer d.enter(VerbOpen, target)(&err)

	if d.workspace.Linked() {
		if err := d.pull(ctx); err != nil {
			return 0, err
		}
		if err := d.loadAttributes(ctx); err != nil {
			return 0, err
		}
	}

	file, err := os.OpenFile(d.abs(target), flags&^unix.O_CREAT, 0)
	if err != nil {
		return 0, err
	}
	return d.register(file, target), nil
}

// Read pulls when linked and reads up to size bytes at offset from an
// open handle. A short result means end of file.
func (d *Dispatcher) Read(ctx context.Context, caller Caller, p string, handle Handle, size int, offset int64) (data []byte, err error) {
	target := clean(p)
	defer d.enter(VerbRead, target)(&err)

	if err := d.pull(ctx); err != nil {
		return nil, err
	}
	open, err := d.lookup(handle)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, size)
	total := 0
	for total < size {
		n, err := unix.Pread(int(open.file.Fd()), buffer[total:], offset+int64(total))
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return nil, &fs.PathError{Op: "pread", Path: target, Err: err}
		}
		if n == 0 {
			break
		}
		total += n
	}
	return buffer[:total], nil
}

// Readdir pulls when linked and lists directory p: "." and "..", then
// the entries in name order. Reserved entries are hidden at the
// workspace root.
func (d *Dispatcher) Readdir(ctx context.Context, caller Caller, p string) (entries []DirEntry, err error) {
	target := clean(p)
	defer d.enter(VerbReaddir, target)(&err)

	if err := d.pull(ctx); err != nil {
		return nil, err
	}

	listing, err := os.ReadDir(d.abs(target))
	if err != nil {
		return nil, err
	}
	entries = make([]DirEntry, 0, len(listing)+2)
	entries = append(entries,
		DirEntry{Name: ".", Mode: unix.S_IFDIR},
		DirEntry{Name: "..", Mode: unix.S_IFDIR},
	)
	for _, entry := range listing {
		name := entry.Name()
		if target == "" && d.reserved(name) {
			continue
		}
		dirEntry := DirEntry{Name: name, Mode: typeBits(entry.Type())}
		if info, err := entry.Info(); err == nil {
			if st, ok := info.Sys().(*syscall.Stat_t); ok {
				dirEntry.Ino = st.Ino
			}
		}
		entries = append(entries, dirEntry)
	}
	sort.SliceStable(entries[2:], func(i, j int) bool { return entries[2+i].Name < entries[2+j].Name })
	return entries, nil
}

// reserved reports whether p belongs to revfs or the version control
// backend rather than the user: the root-level ".git" and shadow
// directories and everything beneath them.
func (d *Dispatcher) reserved(p string) bool {
	top, _, _ := strings.Cut(p, "/")
	return top == ".git" || d.store.Reserved(p)
}

// Readlink pulls when linked and returns the target of symlink p.
func (d *Dispatcher) Readlink(ctx context.Context, caller Caller, p string) (link string, err error) {
	target := clean(p)
	defer d.enter(VerbReadlink, target)(&err)

	if err := d.pull(ctx); err != nil {
		return "", err
	}
	return os.Readlink(d.abs(target))
}
