// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package attrstore persists POSIX attributes that version control does
// not carry: ownership, mode bits, and timestamps.
//
// Each path in the workspace may have one [Record], stored as a side-car
// file under a reserved directory at the workspace root. The side-car
// location mirrors the target path, so the record for "src/main.c" lives
// at ".revfs/src/main.c.attr" and the records for everything inside
// "src" live under ".revfs/src/". Records are committed together with
// the content they describe, so every revision carries a consistent
// (content, attributes) pair.
//
// Record encoding is deterministic in both supported formats (see
// lib/codec), so rewriting an unchanged record never produces a diff.
//
// A Store is not safe for concurrent use. The dispatcher serializes all
// filesystem calls, and the store relies on that.
package attrstore
