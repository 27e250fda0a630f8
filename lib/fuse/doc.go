// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse mounts a revfs workspace through the kernel FUSE
// interface.
//
// Every kernel request is forwarded to a [dispatch.Dispatcher], which
// performs the local operation and the version control steps around
// it. The adapter only translates: inode to workspace path, request
// context to calling user, and dispatcher errors to errno values.
//
// # Serialization
//
// The mount is single-threaded. The kernel may issue requests from
// many processes at once, but the server handles them one at a time,
// so the dispatcher never sees concurrent calls.
//
// # Caching
//
// Entry and attribute timeouts are zero: the kernel asks again on
// every lookup and stat, and each of those reaches the dispatcher,
// which pulls first when the workspace is linked. Open does not keep
// the page cache, so content pulled since the last open is visible.
//
// # Errors
//
// Remote failures surface as EREMOTEIO, verbs outside the dispatcher's
// capability set (hard links, device nodes, extended attributes) as
// ENOTSUP, and local I/O failures as their own errno.
package fuse
