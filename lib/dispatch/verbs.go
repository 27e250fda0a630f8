// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import "sort"

// Verb names a filesystem operation.
type Verb string

const (
	VerbAccess   Verb = "access"
	VerbChmod    Verb = "chmod"
	VerbChown    Verb = "chown"
	VerbCreate   Verb = "create"
	VerbDestroy  Verb = "destroy"
	VerbFlush    Verb = "flush"
	VerbFsync    Verb = "fsync"
	VerbGetattr  Verb = "getattr"
	VerbMkdir    Verb = "mkdir"
	VerbOpen     Verb = "open"
	VerbRead     Verb = "read"
	VerbReaddir  Verb = "readdir"
	VerbReadlink Verb = "readlink"
	VerbRelease  Verb = "release"
	VerbRename   Verb = "rename"
	VerbRmdir    Verb = "rmdir"
	VerbStatfs   Verb = "statfs"
	VerbSymlink  Verb = "symlink"
	VerbTruncate Verb = "truncate"
	VerbUnlink   Verb = "unlink"
	VerbUtimens  Verb = "utimens"
	VerbWrite    Verb = "write"

	// Declared unsupported.
	VerbLink        Verb = "link"
	VerbMknod       Verb = "mknod"
	VerbGetxattr    Verb = "getxattr"
	VerbSetxattr    Verb = "setxattr"
	VerbListxattr   Verb = "listxattr"
	VerbRemovexattr Verb = "removexattr"
	VerbFsyncdir    Verb = "fsyncdir"
)

// supported is the declared capability set.
var supported = map[Verb]bool{
	VerbAccess:   true,
	VerbChmod:    true,
	VerbChown:    true,
	VerbCreate:   true,
	VerbDestroy:  true,
	VerbFlush:    true,
	VerbFsync:    true,
	VerbGetattr:  true,
	VerbMkdir:    true,
	VerbOpen:     true,
	VerbRead:     true,
	VerbReaddir:  true,
	VerbReadlink: true,
	VerbRelease:  true,
	VerbRename:   true,
	VerbRmdir:    true,
	VerbStatfs:   true,
	VerbSymlink:  true,
	VerbTruncate: true,
	VerbUnlink:   true,
	VerbUtimens:  true,
	VerbWrite:    true,
}

// Capabilities returns the supported verbs in sorted order.
func (d *Dispatcher) Capabilities() []Verb {
	verbs := make([]Verb, 0, len(supported))
	for verb := range supported {
		verbs = append(verbs, verb)
	}
	sort.Slice(verbs, func(i, j int) bool { return verbs[i] < verbs[j] })
	return verbs
}

// Supports reports whether verb is implemented. The mount adapter
// answers ENOTSUP for verbs outside the set without calling in.
func (d *Dispatcher) Supports(verb Verb) bool {
	return supported[verb]
}
