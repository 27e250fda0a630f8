// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// revfs mounts a version-controlled repository as a filesystem in which
// every mutation becomes a revision.
//
// Usage:
//
//	revfs [flags] <repository> <mountpoint>
//
// By default the repository is cloned into a temporary workspace that
// is removed at unmount; every write is committed as the calling user
// and pushed back, and every read pulls first. With --clone=false the
// repository is a local working copy mounted in place, which commits
// without talking to any remote unless --sync is given.
//
// Ownership and permission bits are stored in a shadow directory
// (.revfs by default) inside the repository and re-applied at mount
// time, since version control carries file content only.
//
// SIGINT or SIGTERM unmounts. After the mount ends, leftover changes are
// committed as the system author, pushed when linked, and a cloned
// workspace is removed.
package main
