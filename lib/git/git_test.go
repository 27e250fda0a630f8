// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/revfs/revfs/lib/testutil"
	"github.com/revfs/revfs/lib/vcs"
)

var testAuthor = vcs.Author{Name: "alice", Email: "alice@test.local"}

// cloneRemote clones a fresh upstream and returns the remote path and
// a client for the clone.
func cloneRemote(t *testing.T, files map[string]string) (string, *Client) {
	t.Helper()
	remote := testutil.InitRemote(t, files)
	return remote, cloneOf(t, remote)
}

func cloneOf(t *testing.T, remote string) *Client {
	t.Helper()
	backend := &Backend{Identity: vcs.Author{Name: "revfs", Email: "revfs@test.local"}}
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

func revisionCount(t *testing.T, dir string) int {
	t.Helper()
	output := testutil.GitOutput(t, dir, "rev-list", "--count", "HEAD")
	count, err := strconv.Atoi(output)
	if err != nil {
		t.Fatalf("parsing revision count %q: %v", output, err)
	}
	return count
}

func TestRepository_Run_InvalidSubcommand(t *testing.T) {
	testutil.RequireGit(t)
	dir := t.TempDir()
	repo := NewRepository(dir)

	_, err := repo.Run(context.Background(), "not-a-real-command")
	if err == nil {
		t.Fatal("expected error for invalid git subcommand")
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error = %v, want to contain repository dir %q", err, dir)
	}
}

func TestBackend_OpenRejectsNonRepository(t *testing.T) {
	testutil.RequireGit(t)
	backend := &Backend{}
	if _, err := backend.Open(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error opening a plain directory")
	}
}

func TestClient_CloneHasRemote(t *testing.T) {
	_, client := cloneRemote(t, map[string]string{"hello.txt": "hi\n"})

	hasRemote, err := client.HasRemote(context.Background())
	if err != nil {
		t.Fatalf("HasRemote: %v", err)
	}
	if !hasRemote {
		t.Error("clone should have a remote")
	}
	if _, err := os.Stat(filepath.Join(client.Dir(), "hello.txt")); err != nil {
		t.Errorf("cloned file missing: %v", err)
	}
}

func TestClient_CommitAllowEmptyCreatesRevision(t *testing.T) {
	_, client := cloneRemote(t, nil)
	ctx := context.Background()
	before := revisionCount(t, client.Dir())

	for i := 0; i < 2; i++ {
		err := client.Commit(ctx, vcs.CommitRequest{
			Paths:        []string{"README"},
			Author:       testAuthor,
			Message:      "revfs[chmod]: README 644",
			IncludeAdded: true,
			AllowEmpty:   true,
		})
		if err != nil {
			t.Fatalf("Commit %d: %v", i, err)
		}
	}

	if got := revisionCount(t, client.Dir()); got != before+2 {
		t.Errorf("revision count = %d, want %d", got, before+2)
	}
	author := testutil.GitOutput(t, client.Dir(), "log", "-1", "--format=%an <%ae>")
	if author != testAuthor.String() {
		t.Errorf("author = %q, want %q", author, testAuthor.String())
	}
}

func TestClient_CommitNothingToCommit(t *testing.T) {
	_, client := cloneRemote(t, nil)

	err := client.Commit(context.Background(), vcs.CommitRequest{
		Author:       testAuthor,
		Message:      "revfs[cruft]",
		IncludeAdded: true,
	})
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Fatalf("Commit = %v, want ErrNothingToCommit", err)
	}
}

func TestClient_CommitIncludeAdded(t *testing.T) {
	_, client := cloneRemote(t, nil)
	ctx := context.Background()
	writeFile(t, client.Dir(), "new.txt", "content\n")

	// Without IncludeAdded the untracked file is left out.
	err := client.Commit(ctx, vcs.CommitRequest{
		Paths:   []string{"new.txt"},
		Author:  testAuthor,
		Message: "tracked only",
	})
	if !errors.Is(err, vcs.ErrNothingToCommit) {
		t.Fatalf("Commit without IncludeAdded = %v, want ErrNothingToCommit", err)
	}

	err = client.Commit(ctx, vcs.CommitRequest{
		Paths:        []string{"new.txt"},
		Author:       testAuthor,
		Message:      "add new",
		IncludeAdded: true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	files := testutil.GitOutput(t, client.Dir(), "ls-files")
	if !strings.Contains(files, "new.txt") {
		t.Errorf("ls-files = %q, want new.txt tracked", files)
	}
}

func TestClient_CommitSkipsVanishedUntrackedPaths(t *testing.T) {
	_, client := cloneRemote(t, nil)
	writeFile(t, client.Dir(), "kept.txt", "x\n")

	// "gone" was never tracked and no longer exists, like an empty
	// directory removed by rmdir.
	err := client.Commit(context.Background(), vcs.CommitRequest{
		Paths:        []string{"gone", "kept.txt"},
		Author:       testAuthor,
		Message:      "revfs[rmdir]: gone",
		IncludeAdded: true,
		AllowEmpty:   true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestClient_CommitStagesDeletion(t *testing.T) {
	_, client := cloneRemote(t, map[string]string{"doomed.txt": "bye\n"})
	if err := os.Remove(filepath.Join(client.Dir(), "doomed.txt")); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	err := client.Commit(context.Background(), vcs.CommitRequest{
		Paths:        []string{"doomed.txt"},
		Author:       testAuthor,
		Message:      "revfs[unlink]: doomed.txt",
		IncludeAdded: true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if files := testutil.GitOutput(t, client.Dir(), "ls-files"); strings.Contains(files, "doomed.txt") {
		t.Errorf("doomed.txt still tracked: %q", files)
	}
}

func TestClient_MoveTrackedAndUntracked(t *testing.T) {
	_, client := cloneRemote(t, map[string]string{"a.txt": "a\n"})
	ctx := context.Background()

	if err := client.Move(ctx, "a.txt", "b.txt"); err != nil {
		t.Fatalf("Move tracked: %v", err)
	}
	if _, err := os.Stat(filepath.Join(client.Dir(), "b.txt")); err != nil {
		t.Errorf("b.txt missing after move: %v", err)
	}
	status := testutil.GitOutput(t, client.Dir(), "status", "--porcelain")
	if !strings.Contains(status, "R  a.txt -> b.txt") {
		t.Errorf("status = %q, want staged rename", status)
	}

	writeFile(t, client.Dir(), "loose/file.txt", "untracked\n")
	if err := client.Move(ctx, "loose", "moved"); err != nil {
		t.Fatalf("Move untracked: %v", err)
	}
	files := testutil.GitOutput(t, client.Dir(), "ls-files")
	if !strings.Contains(files, "moved/file.txt") {
		t.Errorf("ls-files = %q, want moved/file.txt staged", files)
	}
}

func TestClient_MoveReplacesEmptyDirectory(t *testing.T) {
	_, client := cloneRemote(t, map[string]string{"src/file.txt": "x\n"})
	if err := os.Mkdir(filepath.Join(client.Dir(), "dst"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	if err := client.Move(context.Background(), "src", "dst"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := os.Stat(filepath.Join(client.Dir(), "dst", "file.txt")); err != nil {
		t.Errorf("dst/file.txt missing: %v", err)
	}
}

func TestClient_RemoveToleratesAbsentPath(t *testing.T) {
	_, client := cloneRemote(t, map[string]string{"x.txt": "x\n"})
	ctx := context.Background()

	if err := client.Remove(ctx, "x.txt"); err != nil {
		t.Fatalf("Remove tracked: %v", err)
	}
	if _, err := os.Stat(filepath.Join(client.Dir(), "x.txt")); !os.IsNotExist(err) {
		t.Errorf("x.txt still present: %v", err)
	}
	if err := client.Remove(ctx, "never-existed"); err != nil {
		t.Errorf("Remove absent: %v", err)
	}
}

func TestClient_PushThenPull(t *testing.T) {
	remote, writer := cloneRemote(t, nil)
	reader := cloneOf(t, remote)
	ctx := context.Background()

	writeFile(t, writer.Dir(), "shared.txt", "from writer\n")
	err := writer.Commit(ctx, vcs.CommitRequest{
		Paths:        []string{"shared.txt"},
		Author:       testAuthor,
		Message:      "revfs[write]: shared.txt",
		IncludeAdded: true,
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := writer.Push(ctx); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if err := reader.Pull(ctx); err != nil {
		t.Fatalf("Pull: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(reader.Dir(), "shared.txt"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "from writer\n" {
		t.Errorf("pulled content = %q", data)
	}
}

func TestClient_PullMergesDivergedHistory(t *testing.T) {
	remote, first := cloneRemote(t, nil)
	second := cloneOf(t, remote)
	ctx := context.Background()

	commit := func(client *Client, name string) {
		t.Helper()
		writeFile(t, client.Dir(), name, name+"\n")
		err := client.Commit(ctx, vcs.CommitRequest{
			Paths: []string{name}, Author: testAuthor, Message: "add " + name, IncludeAdded: true,
		})
		if err != nil {
			t.Fatalf("Commit %s: %v", name, err)
		}
	}

	commit(first, "one.txt")
	if err := first.Push(ctx); err != nil {
		t.Fatalf("Push first: %v", err)
	}
	commit(second, "two.txt")

	if err := second.Pull(ctx); err != nil {
		t.Fatalf("Pull diverged: %v", err)
	}
	for _, name := range []string{"one.txt", "two.txt"} {
		if _, err := os.Stat(filepath.Join(second.Dir(), name)); err != nil {
			t.Errorf("%s missing after merge: %v", name, err)
		}
	}
	if err := second.Push(ctx); err != nil {
		t.Errorf("Push after merge: %v", err)
	}
}

func TestClient_PushFailsWithoutRemote(t *testing.T) {
	testutil.RequireGit(t)
	dir := t.TempDir()
	testutil.Git(t, dir, "init", "--quiet")

	client, err := (&Backend{}).Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	hasRemote, err := client.HasRemote(context.Background())
	if err != nil {
		t.Fatalf("HasRemote: %v", err)
	}
	if hasRemote {
		t.Error("fresh repository should have no remote")
	}
	if err := client.Push(context.Background()); err == nil {
		t.Error("expected push without a remote to fail")
	}
}
