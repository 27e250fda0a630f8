// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// Attr is the POSIX attribute set of one path.
type Attr struct {
	Ino     uint64
	Mode    uint32
	Nlink   uint64
	UID     uint32
	GID     uint32
	Rdev    uint64
	Size    int64
	Blocks  int64
	Blksize int64
	Atime   time.Time
	Mtime   time.Time
	Ctime   time.Time
}

// IsDir reports whether the attributes describe a directory.
func (a Attr) IsDir() bool { return a.Mode&unix.S_IFMT == unix.S_IFDIR }

func attrFromStat(st *unix.Stat_t) Attr {
	return Attr{
		Ino:     st.Ino,
		Mode:    st.Mode,
		Nlink:   uint64(st.Nlink),
		UID:     st.Uid,
		GID:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blocks:  st.Blocks,
		Blksize: int64(st.Blksize),
		Atime:   time.Unix(st.Atim.Unix()),
		Mtime:   time.Unix(st.Mtim.Unix()),
		Ctime:   time.Unix(st.Ctim.Unix()),
	}
}

// DirEntry is one readdir result. Mode carries only the file type bits.
type DirEntry struct {
	Name string
	Ino  uint64
	Mode uint32
}

// typeBits converts the type portion of an fs.FileMode to S_IF* bits.
func typeBits(mode fs.FileMode) uint32 {
	switch {
	case mode&fs.ModeDir != 0:
		return unix.S_IFDIR
	case mode&fs.ModeSymlink != 0:
		return unix.S_IFLNK
	case mode&fs.ModeNamedPipe != 0:
		return unix.S_IFIFO
	case mode&fs.ModeSocket != 0:
		return unix.S_IFSOCK
	case mode&fs.ModeCharDevice != 0:
		return unix.S_IFCHR
	case mode&fs.ModeDevice != 0:
		return unix.S_IFBLK
	default:
		return unix.S_IFREG
	}
}

// StatfsResult reports capacity of the filesystem holding the
// workspace.
type StatfsResult struct {
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Bsize   uint32
	Frsize  uint32
	NameLen uint32
}
