// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package gogit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/revfs/revfs/lib/clock"
	"github.com/revfs/revfs/lib/testutil"
	"github.com/revfs/revfs/lib/vcs"
)

var testTimestamp = time.Unix(1735689600, 0) // 2025-01-01T00:00:00Z

var testAuthor = vcs.Author{Name: "bob", Email: "bob@test.local"}

func cloneOf(t *testing.T, remote string) *Client {
	t.Helper()
	backend := &Backend{Clock: clock.Fake(testTimestamp)}
	client, err := backend.Clone(context.Background(), remote, filepath.Join(t.TempDir(), "clone"))
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	return client.(*Client)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestCovered(t *testing.T) {
	tests := []struct {
		file  string
		paths []string
		want  bool
	}{
		{"a.txt", nil, true},
		{"a.txt", []string{"a.txt"}, true},
		{"dir/a.txt", []string{"dir"}, true},
		{"dir2/a.txt", []string{"dir"}, false},
		{".revfs/dir/a.txt.attr", []string{".revfs"}, true},
		{"b.txt", []string{"a.txt", "dir"}, false},
		{"any/file", []string{"."}, true},
	}
	for _, test := range tests {
		if got := covered(test.file, test.paths); got != test.want {
			t.Errorf("covered(%q, %v) = %v, want %v", test.file, test.paths, got, test.want)
		}
	}
}

func TestClient_CommitPushPull(t *testing.T) {
	remote := testutil.InitRemote(t, nil)
	writer := cloneOf(t, remote)
	reader := cloneOf(t, remote)
	ctx := context.Background()

	hasRemote, err := writer.HasRemote(ctx)
	if err != nil || !hasRemote {
		t.Fatalf("HasRemote = %v, %v; want true", hasRemote, err)
	}

	writeFile(t, writer.Dir(), "notes/today.txt", "written by go-git\n")
	err = writer.Commit(ctx, vcs.CommitRequest{
		Paths:        []string{"notes"},
		Author:       testAuthor,
		Message:      "revfs[write]: notes/today.txt",
		IncludeAdded: true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := writer.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	log := testutil.GitOutput(t, remote, "log", "-1", "--format=%an|%at|%s", "main")
	want := "bob|1735689600|revfs[write]: notes/today.txt"
	if log != want {
		t.Errorf("remote head = %q, want %q", log, want)
	}

	if err := reader.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(reader.Dir(), "notes", "today.txt"))
	if err != nil {
		t.Fatalf("ReadFile after pull: %v", err)
	}
	if string(data) != "written by go-git\n" {
		t.Errorf("pulled content = %q", data)
	}

	// A second pull with nothing new is not an error.
	if err := reader.Pull(ctx); err != nil {
		t.Errorf("Pull when up to date: %v", err)
	}
}

func TestClient_CommitEmpty(t *testing.T) {
	client := cloneOf(t, testutil.InitRemote(t, nil))
	ctx := context.Background()

	err := client.Commit(ctx, vcs.CommitRequest{Author: testAuthor, Message: "revfs[cruft]", IncludeAdded: true})
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Fatalf("Commit on clean tree = %v, want ErrNothingToCommit", err)
	}

	err = client.Commit(ctx, vcs.CommitRequest{
		Paths: []string{"README"}, Author: testAuthor, Message: "revfs[chmod]: README 644", AllowEmpty: true,
	})
	if err != nil {
		t.Fatalf("Commit with AllowEmpty: %v", err)
	}
	count := testutil.GitOutput(t, client.Dir(), "rev-list", "--count", "HEAD")
	if count != "2" {
		t.Errorf("revision count = %s, want 2", count)
	}
}

func TestClient_IncludeAddedControlsUntracked(t *testing.T) {
	client := cloneOf(t, testutil.InitRemote(t, nil))
	ctx := context.Background()
	writeFile(t, client.Dir(), "fresh.txt", "new\n")

	err := client.Commit(ctx, vcs.CommitRequest{
		Paths: []string{"fresh.txt"}, Author: testAuthor, Message: "tracked only",
	})
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Fatalf("Commit without IncludeAdded = %v, want ErrNothingToCommit", err)
	}
}

func TestClient_MoveAndRemove(t *testing.T) {
	client := cloneOf(t, testutil.InitRemote(t, map[string]string{"old.txt": "content\n"}))
	ctx := context.Background()

	if err := client.Move(ctx, "old.txt", "new.txt"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	err := client.Commit(ctx, vcs.CommitRequest{
		Paths: []string{"old.txt", "new.txt"}, Author: testAuthor, Message: "revfs[rename]: old.txt -> new.txt",
	})
	if err != nil {
		t.Fatalf("Commit rename: %v", err)
	}
	files := testutil.GitOutput(t, client.Dir(), "ls-files")
	if strings.Contains(files, "old.txt") || !strings.Contains(files, "new.txt") {
		t.Errorf("ls-files after rename = %q", files)
	}

	if err := client.Remove(ctx, "new.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	err = client.Commit(ctx, vcs.CommitRequest{
		Paths: []string{"new.txt"}, Author: testAuthor, Message: "revfs[unlink]: new.txt",
	})
	if err != nil {
		t.Fatalf("Commit removal: %v", err)
	}
	if files := testutil.GitOutput(t, client.Dir(), "ls-files"); strings.Contains(files, "new.txt") {
		t.Errorf("new.txt still tracked: %q", files)
	}
	if err := client.Remove(ctx, "absent.txt"); err != nil {
		t.Errorf("Remove absent: %v", err)
	}
}
