// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit path of the revfs binary. It covers
// the raw stderr output that happens before the structured logger
// exists or after it has been closed, and maps errors to exit codes:
// usage mistakes exit 2, everything else exits 1.
package process
