// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// revfs reads the clock in two places: revision signatures written by
// the go-git backend and operation latency observed by the dispatcher.
// Production code injects Real(); tests inject Fake() so that commit
// timestamps and recorded durations are deterministic.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.Advance(5 * time.Second)
package clock
