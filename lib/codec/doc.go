// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the deterministic encodings revfs uses for
// records it commits into a repository.
//
// Two formats are available, selected by [Format]:
//
//   - JSON (the default): two-space indented, trailing newline, one
//     field per line in struct order. Diffs of attribute records stay
//     readable in any repository browser.
//   - CBOR: Core Deterministic Encoding (RFC 8949 §4.2) with sorted
//     map keys and smallest integer encoding. Compact, binary.
//
// Both encoders are deterministic: the same logical value always
// produces identical bytes, so re-saving an unchanged record never
// shows up as a content change in the repository.
//
// Types use `json` struct tags only; fxamacker/cbor v2 reads `json`
// tags as a fallback when `cbor` tags are absent, so a single tag
// controls field naming in both formats.
package codec
