// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package vcs defines the synchronization client that revfs uses to
// turn workspace mutations into repository revisions and to exchange
// those revisions with an upstream remote.
//
// The dispatcher never invokes a version-control tool directly. It
// holds a [Client] bound to one working copy and calls it with
// blocking, synchronous requests:
//
//   - [Client.Pull] refreshes the working copy from the remote.
//   - [Client.Commit] stages the listed paths and records one revision.
//   - [Client.Push] publishes local revisions to the remote.
//   - [Client.Move], [Client.Remove], and [Client.Add] record path
//     structure changes in the index.
//
// A [Backend] produces clients, either by cloning a source into a new
// directory or by adopting an existing working copy. Two backends ship
// with revfs: lib/git drives the git command-line tool and lib/gogit
// uses the pure-Go go-git implementation. Tests use vcstest.Client, a
// recording double.
//
// None of these calls are retried. A failure is returned to the caller
// with the working copy left as it was at the point of failure.
package vcs
