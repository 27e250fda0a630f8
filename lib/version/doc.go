// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the revfs binary.
//
// Three package-level variables may be injected at build time with
// -ldflags -X:
//
//   - [GitCommit] short git SHA of the build
//   - [BuildTime] UTC timestamp of the build
//   - [Version] semantic version string
//
// When GitCommit is not injected, the revision recorded by the Go
// toolchain in the binary's build info is used instead, so "go install"
// builds still report where they came from.
package version
