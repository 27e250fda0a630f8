// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

// gitEnvironment pins identity and disables user configuration so
// tests behave the same on every machine.
var gitEnvironment = []string{
	"GIT_AUTHOR_NAME=Test",
	"GIT_AUTHOR_EMAIL=test@test.local",
	"GIT_COMMITTER_NAME=Test",
	"GIT_COMMITTER_EMAIL=test@test.local",
	"GIT_CONFIG_NOSYSTEM=1",
	"GIT_CONFIG_GLOBAL=/dev/null",
}

// RequireGit skips the test when the git binary is not on PATH.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("skipping: git not available")
	}
}

// RequireFUSE skips the test when /dev/fuse is not accessible.
func RequireFUSE(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/fuse"); err != nil {
		t.Skip("skipping: /dev/fuse not available")
	}
}

// Git runs git with args in dir and fails the test on error.
func Git(t *testing.T, dir string, args ...string) {
	t.Helper()
	GitOutput(t, dir, args...)
}

// GitOutput runs git with args in dir and returns trimmed stdout.
func GitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	command.Env = append(os.Environ(), gitEnvironment...)
	output, err := command.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		t.Fatalf("git %s in %s: %v\n%s", strings.Join(args, " "), dir, err, stderr)
	}
	return strings.TrimSpace(string(output))
}

// InitRemote creates a bare repository with one initial revision on
// branch main containing the given files, and returns its path.
func InitRemote(t *testing.T, files map[string]string) string {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	bareDir := filepath.Join(root, "remote.git")
	seedDir := filepath.Join(root, "seed")

	Git(t, root, "init", "--quiet", "--bare", "--initial-branch=main", bareDir)
	Git(t, root, "init", "--quiet", "--initial-branch=main", seedDir)

	if len(files) == 0 {
		files = map[string]string{"README": "seed\n"}
	}
	for name, content := range files {
		path := filepath.Join(seedDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	Git(t, seedDir, "add", "-A")
	Git(t, seedDir, "commit", "--quiet", "-m", "initial")
	Git(t, seedDir, "push", "--quiet", bareDir, "main")

	return bareDir
}

var uniqueCounter atomic.Uint64

// UniqueID returns "prefix-N" with N increasing across the test binary.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
