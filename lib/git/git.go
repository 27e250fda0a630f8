// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI and a vcs.Backend
// built on it. All commands target a specific working copy via the -C
// flag, which is automatically injected by all Repository methods.
//
// Every call spawns one git process and blocks until it exits. Stderr
// is captured and folded into the returned error so that a failing
// pull or push reports git's own diagnosis.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git working copy at a specific directory. All
// operations target this directory via "git -C <dir>".
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, r.dir, args...)
}

// run executes git with args. A non-empty dir is passed with -C.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := args
	if dir != "" {
		fullArgs = append([]string{"-C", dir}, args...)
	}
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		where := dir
		if where == "" {
			where = "."
		}
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), where, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
