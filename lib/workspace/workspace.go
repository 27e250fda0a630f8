// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package workspace owns the local working copy a revfs mount serves.
//
// A Workspace is either cloned from a repository into a fresh temporary
// directory (clone mode, reclaimed at unmount) or adopted in place from
// an existing local working copy. Its lifecycle is a one-way state
// machine:
//
//	Uninitialized -> Cloning -> Ready -> Destroying -> Destroyed
//
// Filesystem verbs are only valid in Ready. Calling one in any other
// state is a programming error and panics via [Workspace.MustBeReady].
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/revfs/revfs/lib/vcs"
)

// State is a workspace lifecycle state.
type State int32

const (
	Uninitialized State = iota
	Cloning
	Ready
	Destroying
	Destroyed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Cloning:
		return "cloning"
	case Ready:
		return "ready"
	case Destroying:
		return "destroying"
	case Destroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures Open.
type Options struct {
	// Source is the repository to clone (clone mode) or the local
	// working copy to adopt.
	Source string

	// Clone selects clone mode.
	Clone bool

	// Sync links an adopted working copy to its upstream. Ignored in
	// clone mode, which is always linked.
	Sync bool

	// TempDir is the parent for the cloned directory. Empty uses the
	// system temporary directory.
	TempDir string

	// Backend performs the clone or open.
	Backend vcs.Backend

	Logger *slog.Logger
}

// Workspace is one working copy and its lifecycle state.
type Workspace struct {
	state  atomic.Int32
	root   string
	client vcs.Client
	owned  bool
	linked bool
	logger *slog.Logger
}

// Open clones or adopts the working copy described by options and
// returns a Ready workspace. A failed clone leaves no directory behind.
func Open(ctx context.Context, options Options) (*Workspace, error) {
	if options.Source == "" {
		return nil, errors.New("workspace: source repository is required")
	}
	if options.Backend == nil {
		return nil, errors.New("workspace: backend is required")
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Workspace{logger: logger}
	w.transition(Uninitialized, Cloning)

	if options.Clone {
		if err := w.clone(ctx, options); err != nil {
			return nil, err
		}
	} else {
		if err := w.adopt(ctx, options); err != nil {
			return nil, err
		}
	}

	w.transition(Cloning, Ready)
	logger.Info("workspace ready",
		"root", w.root,
		"backend", options.Backend.Name(),
		"owned", w.owned,
		"linked", w.linked,
	)
	return w, nil
}

func (w *Workspace) clone(ctx context.Context, options Options) error {
	dir, err := os.MkdirTemp(options.TempDir, "revfs-")
	if err != nil {
		return fmt.Errorf("creating workspace directory: %w", err)
	}
	client, err := options.Backend.Clone(ctx, options.Source, dir)
	if err != nil {
		if removeErr := os.RemoveAll(dir); removeErr != nil {
			w.logger.Warn("removing failed clone", "dir", dir, "error", removeErr)
		}
		return fmt.Errorf("cloning %s: %w", options.Source, err)
	}
	w.root = client.Dir()
	w.client = client
	w.owned = true
	w.linked = true
	return nil
}

func (w *Workspace) adopt(ctx context.Context, options Options) error {
	dir, err := filepath.Abs(options.Source)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", options.Source, err)
	}
	client, err := options.Backend.Open(ctx, dir)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dir, err)
	}
	if options.Sync {
		hasRemote, err := client.HasRemote(ctx)
		if err != nil {
			return fmt.Errorf("checking remotes of %s: %w", dir, err)
		}
		if !hasRemote {
			return fmt.Errorf("%s has no remote to sync with", dir)
		}
	}
	w.root = client.Dir()
	w.client = client
	w.linked = options.Sync
	return nil
}

// State returns the current lifecycle state.
func (w *Workspace) State() State { return State(w.state.Load()) }

// Root returns the absolute working copy directory.
func (w *Workspace) Root() string { return w.root }

// Client returns the synchronization client for the working copy.
func (w *Workspace) Client() vcs.Client { return w.client }

// Linked reports whether a Remote Link is active: reads pull first and
// writes push after committing.
func (w *Workspace) Linked() bool { return w.linked }

// Owned reports whether the directory was created by Open and is
// removed by Reclaim.
func (w *Workspace) Owned() bool { return w.owned }

// MustBeReady panics unless the workspace is Ready. verb names the
// offending call in the panic message.
func (w *Workspace) MustBeReady(verb string) {
	if state := w.State(); state != Ready {
		panic(fmt.Sprintf("workspace: %s called in state %s", verb, state))
	}
}

// BeginDestroy moves a Ready workspace to Destroying. It panics from
// any other state.
func (w *Workspace) BeginDestroy() {
	w.transition(Ready, Destroying)
}

// Reclaim removes an owned working copy directory and moves the
// workspace to Destroyed. An adopted directory is left in place. The
// workspace reaches Destroyed even when removal fails.
func (w *Workspace) Reclaim() error {
	w.transition(Destroying, Destroyed)
	if !w.owned {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("reclaiming workspace %s: %w", w.root, err)
	}
	w.logger.Info("workspace reclaimed", "root", w.root)
	return nil
}

func (w *Workspace) transition(from, to State) {
	if !w.state.CompareAndSwap(int32(from), int32(to)) {
		panic(fmt.Sprintf("workspace: transition %s -> %s from state %s", from, to, w.State()))
	}
}
