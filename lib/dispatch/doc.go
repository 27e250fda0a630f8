// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the filesystem verbs of a revfs mount on
// top of a version-controlled workspace.
//
// Every verb belongs to one of three classes:
//
//   - Read-class (getattr, open, read, readdir, readlink): when the
//     workspace is linked to a remote, pull before touching local
//     state. Open additionally re-applies stored attributes, since
//     pulled content does not carry ownership or mode.
//   - Write-class (chmod, chown, create, mkdir, rename, rmdir, symlink,
//     truncate, unlink, write): perform the local mutation, update the
//     attribute shadow store where attributes changed, commit the
//     touched paths together with the shadow directory as one revision
//     authored by the calling user, then push when linked.
//   - Local (access, flush, fsync, release, statfs, utimens): no version
//     control interaction.
//
// A failed pull or push surfaces as a [*SyncError]. A push failure
// leaves the local revision in place, so the workspace may run ahead of
// its remote until the next successful push.
//
// The Dispatcher relies on its caller for serialization: the mount
// adapter delivers one request at a time, and no verb locks the
// workspace. Verbs called before the workspace is Ready, or after
// Destroy has begun, panic.
package dispatch
