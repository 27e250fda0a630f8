// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for revfs.
//
// Configuration comes from a single optional file named by the
// REVFS_CONFIG environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no ~/.config discovery and no automatic file
// search. Command-line flags are applied on top by the caller, and the
// result is validated once with [Config.Validate] and then treated as
// immutable: components receive a copy in their constructor options.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${TMPDIR}, and ${VAR:-default} patterns are expanded.
//
// This package depends on no other revfs packages.
package config
