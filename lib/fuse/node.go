// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"log/slog"
	"path"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/revfs/revfs/lib/dispatch"
)

// filesystem is shared by every node of one mount.
type filesystem struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

// node is any file, directory, or symlink in the workspace. Its
// workspace path is derived from its position in the inode tree, which
// go-fuse keeps current across renames.
type node struct {
	gofuse.Inode
	fs *filesystem
}

var _ gofuse.InodeEmbedder = (*node)(nil)
var _ gofuse.NodeGetattrer = (*node)(nil)
var _ gofuse.NodeSetattrer = (*node)(nil)
var _ gofuse.NodeLookuper = (*node)(nil)
var _ gofuse.NodeReaddirer = (*node)(nil)
var _ gofuse.NodeOpener = (*node)(nil)
var _ gofuse.NodeCreater = (*node)(nil)
var _ gofuse.NodeReader = (*node)(nil)
var _ gofuse.NodeWriter = (*node)(nil)
var _ gofuse.NodeFlusher = (*node)(nil)
var _ gofuse.NodeFsyncer = (*node)(nil)
var _ gofuse.NodeReleaser = (*node)(nil)
var _ gofuse.NodeMkdirer = (*node)(nil)
var _ gofuse.NodeUnlinker = (*node)(nil)
var _ gofuse.NodeRmdirer = (*node)(nil)
var _ gofuse.NodeRenamer = (*node)(nil)
var _ gofuse.NodeSymlinker = (*node)(nil)
var _ gofuse.NodeReadlinker = (*node)(nil)
var _ gofuse.NodeAccesser = (*node)(nil)
var _ gofuse.NodeStatfser = (*node)(nil)
var _ gofuse.NodeLinker = (*node)(nil)
var _ gofuse.NodeMknoder = (*node)(nil)
var _ gofuse.NodeGetxattrer = (*node)(nil)
var _ gofuse.NodeSetxattrer = (*node)(nil)
var _ gofuse.NodeListxattrer = (*node)(nil)
var _ gofuse.NodeRemovexattrer = (*node)(nil)

// fileHandle carries the dispatcher handle of an open file.
type fileHandle struct {
	id dispatch.Handle
}

func (n *node) path() string {
	return n.Path(nil)
}

func (n *node) child(name string) string {
	return path.Join(n.path(), name)
}

// caller returns the identity of the process behind the request.
func caller(ctx context.Context) dispatch.Caller {
	if c, ok := fuse.FromContext(ctx); ok {
		return dispatch.Caller{UID: c.Uid, GID: c.Gid, PID: c.Pid}
	}
	return dispatch.Caller{}
}

func handleOf(f gofuse.FileHandle) (dispatch.Handle, bool) {
	if h, ok := f.(*fileHandle); ok {
		return h.id, true
	}
	return 0, false
}

func fillAttr(out *fuse.Attr, attr dispatch.Attr) {
	out.Mode = attr.Mode
	out.Nlink = uint32(attr.Nlink)
	out.Owner = fuse.Owner{Uid: attr.UID, Gid: attr.GID}
	out.Rdev = uint32(attr.Rdev)
	out.Size = uint64(attr.Size)
	out.Blocks = uint64(attr.Blocks)
	out.Blksize = uint32(attr.Blksize)
	out.SetTimes(&attr.Atime, &attr.Mtime, &attr.Ctime)
}

// newChild creates the inode for a freshly looked-up or created entry
// and fills the kernel's entry reply.
func (n *node) newChild(ctx context.Context, attr dispatch.Attr, out *fuse.EntryOut) *gofuse.Inode {
	fillAttr(&out.Attr, attr)
	return n.NewInode(ctx, &node{fs: n.fs}, gofuse.StableAttr{
		Mode: attr.Mode & syscall.S_IFMT,
		Ino:  attr.Ino,
	})
}

// created fills the entry reply for childPath after a mutation.
func (n *node) created(ctx context.Context, childPath string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, err := n.fs.dispatcher.Lstat(childPath)
	if err != nil {
		return nil, toErrno(err)
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.fs.dispatcher.Getattr(ctx, caller(ctx), n.path())
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// Setattr splits a kernel SETATTR into the dispatcher's chown, chmod,
// truncate, and utimens verbs.
func (n *node) Setattr(ctx context.Context, f gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	target := n.path()
	handle, _ := handleOf(f)
	if err := applySetattr(ctx, n.fs.dispatcher, caller(ctx), target, handle, in); err != nil {
		return toErrno(err)
	}
	attr, err := n.fs.dispatcher.Lstat(target)
	if err != nil {
		return toErrno(err)
	}
	fillAttr(&out.Attr, attr)
	return 0
}

// attributeSetter is the part of the dispatcher a SETATTR touches.
type attributeSetter interface {
	Chmod(ctx context.Context, caller dispatch.Caller, p string, mode uint32) error
	Chown(ctx context.Context, caller dispatch.Caller, p string, uid, gid int) error
	Truncate(ctx context.Context, caller dispatch.Caller, p string, length int64, handle dispatch.Handle) error
	Utimens(ctx context.Context, caller dispatch.Caller, p string, atime, mtime *time.Time) error
}

// applySetattr issues chown before chmod; chown(2) clears the setuid
// and setgid bits.
func applySetattr(ctx context.Context, s attributeSetter, who dispatch.Caller, target string, handle dispatch.Handle, in *fuse.SetAttrIn) error {
	uid, uidSet := in.GetUID()
	gid, gidSet := in.GetGID()
	if uidSet || gidSet {
		newUID, newGID := -1, -1
		if uidSet {
			newUID = int(uid)
		}
		if gidSet {
			newGID = int(gid)
		}
		if err := s.Chown(ctx, who, target, newUID, newGID); err != nil {
			return err
		}
	}

	if mode, ok := in.GetMode(); ok {
		if err := s.Chmod(ctx, who, target, mode); err != nil {
			return err
		}
	}

	if size, ok := in.GetSize(); ok {
		if err := s.Truncate(ctx, who, target, int64(size), handle); err != nil {
			return err
		}
	}

	atime, atimeSet := in.GetATime()
	mtime, mtimeSet := in.GetMTime()
	if atimeSet || mtimeSet {
		var atimep, mtimep *time.Time
		if atimeSet {
			atimep = &atime
		}
		if mtimeSet {
			mtimep = &mtime
		}
		if err := s.Utimens(ctx, who, target, atimep, mtimep); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves name through the dispatcher's getattr, so a linked
// workspace pulls before deciding that an entry does not exist.
func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	attr, err := n.fs.dispatcher.Getattr(ctx, caller(ctx), n.child(name))
	if err != nil {
		return nil, toErrno(err)
	}
	return n.newChild(ctx, attr, out), 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	listing, err := n.fs.dispatcher.Readdir(ctx, caller(ctx), n.path())
	if err != nil {
		return nil, toErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(listing))
	for _, entry := range listing {
		// go-fuse supplies "." and ".." itself.
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: entry.Name, Mode: entry.Mode, Ino: entry.Ino})
	}
	return &sliceDirStream{entries: entries}, 0
}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	handle, err := n.fs.dispatcher.Open(ctx, caller(ctx), n.path(), int(flags))
	if err != nil {
		return nil, 0, toErrno(err)
	}
	return &fileHandle{id: handle}, 0, 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	childPath := n.child(name)
	handle, err := n.fs.dispatcher.Create(ctx, caller(ctx), childPath, int(flags), mode)
	if err != nil {
		return nil, nil, 0, toErrno(err)
	}
	inode, errno := n.created(ctx, childPath, out)
	if errno != 0 {
		n.fs.dispatcher.Release(ctx, caller(ctx), handle)
		return nil, nil, 0, errno
	}
	return inode, &fileHandle{id: handle}, 0, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	handle, ok := handleOf(f)
	if !ok {
		return nil, syscall.EBADF
	}
	data, err := n.fs.dispatcher.Read(ctx, caller(ctx), n.path(), handle, len(dest), off)
	if err != nil {
		return nil, toErrno(err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	handle, ok := handleOf(f)
	if !ok {
		return 0, syscall.EBADF
	}
	written, err := n.fs.dispatcher.Write(ctx, caller(ctx), n.path(), handle, data, off)
	if err != nil {
		return uint32(written), toErrno(err)
	}
	return uint32(written), 0
}

func (n *node) Flush(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	handle, ok := handleOf(f)
	if !ok {
		return 0
	}
	return toErrno(n.fs.dispatcher.Flush(ctx, caller(ctx), handle))
}

func (n *node) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	handle, ok := handleOf(f)
	if !ok {
		return 0
	}
	const fdatasync = 1
	return toErrno(n.fs.dispatcher.Fsync(ctx, caller(ctx), handle, flags&fdatasync != 0))
}

func (n *node) Release(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	handle, ok := handleOf(f)
	if !ok {
		return 0
	}
	return toErrno(n.fs.dispatcher.Release(ctx, caller(ctx), handle))
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := n.child(name)
	if err := n.fs.dispatcher.Mkdir(ctx, caller(ctx), childPath, mode); err != nil {
		return nil, toErrno(err)
	}
	return n.created(ctx, childPath, out)
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.fs.dispatcher.Unlink(ctx, caller(ctx), n.child(name)))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.fs.dispatcher.Rmdir(ctx, caller(ctx), n.child(name)))
}

// Rename supports plain rename(2) only. RENAME_NOREPLACE and
// RENAME_EXCHANGE get EINVAL, which makes callers fall back.
func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if flags != 0 {
		return syscall.EINVAL
	}
	destination := path.Join(newParent.EmbeddedInode().Path(nil), newName)
	return toErrno(n.fs.dispatcher.Rename(ctx, caller(ctx), n.child(name), destination))
}

func (n *node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childPath := n.child(name)
	if err := n.fs.dispatcher.Symlink(ctx, caller(ctx), target, childPath); err != nil {
		return nil, toErrno(err)
	}
	return n.created(ctx, childPath, out)
}

func (n *node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.fs.dispatcher.Readlink(ctx, caller(ctx), n.path())
	if err != nil {
		return nil, toErrno(err)
	}
	return []byte(target), 0
}

func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return toErrno(n.fs.dispatcher.Access(ctx, caller(ctx), n.path(), mask))
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	result, err := n.fs.dispatcher.Statfs(ctx, caller(ctx), n.path())
	if err != nil {
		return toErrno(err)
	}
	out.Blocks = result.Blocks
	out.Bfree = result.Bfree
	out.Bavail = result.Bavail
	out.Files = result.Files
	out.Ffree = result.Ffree
	out.Bsize = result.Bsize
	out.Frsize = result.Frsize
	out.NameLen = result.NameLen
	return 0
}

func (n *node) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.unsupported(dispatch.VerbLink)
}

func (n *node) Mknod(ctx context.Context, name string, mode uint32, dev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, n.unsupported(dispatch.VerbMknod)
}

func (n *node) Getxattr(ctx context.Context, attr string, dest []byte) (uint32, syscall.Errno) {
	return 0, n.unsupported(dispatch.VerbGetxattr)
}

func (n *node) Setxattr(ctx context.Context, attr string, data []byte, flags uint32) syscall.Errno {
	return n.unsupported(dispatch.VerbSetxattr)
}

func (n *node) Listxattr(ctx context.Context, dest []byte) (uint32, syscall.Errno) {
	return 0, n.unsupported(dispatch.VerbListxattr)
}

func (n *node) Removexattr(ctx context.Context, attr string) syscall.Errno {
	return n.unsupported(dispatch.VerbRemovexattr)
}

// unsupported answers a verb the dispatcher declares unsupported. A
// verb the dispatcher claims but this adapter does not route is a
// wiring bug and is logged as such.
func (n *node) unsupported(verb dispatch.Verb) syscall.Errno {
	if n.fs.dispatcher.Supports(verb) {
		n.fs.logger.Error("verb supported by dispatcher but not routed", "verb", verb)
	}
	return toErrno(dispatch.ErrNotSupported)
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
