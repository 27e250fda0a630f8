// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
)

// ErrNotSupported is returned for verbs outside the capability set.
var ErrNotSupported = errors.New("operation not supported")

// ErrBadHandle is returned when a file handle is unknown or already
// released.
var ErrBadHandle = errors.New("unknown file handle")

// SyncError reports a failed exchange with the remote. The local
// workspace, including any revision committed before the failure, is
// left as it was.
type SyncError struct {
	// Op names the exchange that failed: "pull" before a read-class
	// verb or "push" after a write-class verb. A failed clone never
	// reaches the dispatcher; workspace.Open reports it before any verb
	// can run.
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
