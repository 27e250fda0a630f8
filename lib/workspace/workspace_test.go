// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/revfs/revfs/lib/logging"
	"github.com/revfs/revfs/lib/vcs/vcstest"
)

func expectPanic(t *testing.T, contains string, fn func()) {
	t.Helper()
	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatalf("expected panic containing %q", contains)
		}
		if message, ok := recovered.(string); !ok || !strings.Contains(message, contains) {
			t.Fatalf("panic = %v, want message containing %q", recovered, contains)
		}
	}()
	fn()
}

func TestOpen_CloneLifecycle(t *testing.T) {
	parent := t.TempDir()
	backend := &vcstest.Backend{Remote: true}

	w, err := Open(context.Background(), Options{
		Source:  "https://example.com/repo.git",
		Clone:   true,
		TempDir: parent,
		Backend: backend,
		Logger:  logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.State() != Ready {
		t.Fatalf("state = %s, want ready", w.State())
	}
	if !w.Owned() || !w.Linked() {
		t.Errorf("owned=%v linked=%v, want both true", w.Owned(), w.Linked())
	}
	if filepath.Dir(w.Root()) != parent || !strings.HasPrefix(filepath.Base(w.Root()), "revfs-") {
		t.Errorf("root = %s, want revfs-* under %s", w.Root(), parent)
	}
	w.MustBeReady("getattr")

	w.BeginDestroy()
	if w.State() != Destroying {
		t.Fatalf("state = %s, want destroying", w.State())
	}
	expectPanic(t, "read called in state destroying", func() { w.MustBeReady("read") })

	if err := w.Reclaim(); err != nil {
		t.Fatalf("Reclaim: %v", err)
	}
	if w.State() != Destroyed {
		t.Errorf("state = %s, want destroyed", w.State())
	}
	if _, err := os.Stat(w.Root()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("workspace directory still present: %v", err)
	}
	expectPanic(t, "transition", func() { w.BeginDestroy() })
}

func TestOpen_CloneFailureRemovesDirectory(t *testing.T) {
	parent := t.TempDir()
	backend := &vcstest.Backend{CloneErr: errors.New("remote unreachable")}

	_, err := Open(context.Background(), Options{
		Source: "ssh://nowhere/repo", Clone: true, TempDir: parent, Backend: backend, Logger: logging.Discard(),
	})
	if err == nil || !strings.Contains(err.Error(), "remote unreachable") {
		t.Fatalf("Open = %v, want clone error", err)
	}
	entries, _ := os.ReadDir(parent)
	if len(entries) != 0 {
		t.Errorf("temp dir not cleaned up: %v", entries)
	}
}

func TestOpen_InPlace(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(context.Background(), Options{
		Source: dir, Backend: &vcstest.Backend{}, Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if w.Owned() || w.Linked() {
		t.Errorf("owned=%v linked=%v, want both false", w.Owned(), w.Linked())
	}
	w.BeginDestroy()
	if err := w.Reclaim(); err != nil {
		t.Fatalf("Reclaim: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("adopted directory removed: %v", err)
	}
}

func TestOpen_InPlaceSync(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(context.Background(), Options{
		Source: dir, Sync: true, Backend: &vcstest.Backend{Remote: true}, Logger: logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !w.Linked() {
		t.Error("sync requested but workspace not linked")
	}

	_, err = Open(context.Background(), Options{
		Source: dir, Sync: true, Backend: &vcstest.Backend{Remote: false}, Logger: logging.Discard(),
	})
	if err == nil || !strings.Contains(err.Error(), "no remote") {
		t.Errorf("Open with sync and no remote = %v, want error", err)
	}
}

func TestOpen_RequiresSourceAndBackend(t *testing.T) {
	if _, err := Open(context.Background(), Options{Backend: &vcstest.Backend{}}); err == nil {
		t.Error("Open without source succeeded")
	}
	if _, err := Open(context.Background(), Options{Source: "x"}); err == nil {
		t.Error("Open without backend succeeded")
	}
}

func TestStateString(t *testing.T) {
	if Ready.String() != "ready" || State(42).String() != "state(42)" {
		t.Errorf("unexpected names %s %s", Ready, State(42))
	}
}
