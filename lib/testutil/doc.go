// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for revfs packages.
//
// [RequireGit] and [RequireFUSE] skip the calling test when the host
// lacks the git binary or the /dev/fuse device. [InitRemote] creates a
// bare repository holding one initial revision, the upstream that
// clone-mode tests mount. [GitOutput] runs a git command in a working
// copy and returns its trimmed stdout, for assertions on the resulting
// history. [UniqueID] generates distinguishable file content without
// reading the clock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no revfs-internal dependencies.
package testutil
