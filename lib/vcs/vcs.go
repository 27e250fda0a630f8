// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package vcs

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrNothingToCommit is returned by Commit when the request does not
// allow empty revisions and no staged change exists.
var ErrNothingToCommit = errors.New("nothing to commit")

// Author identifies the user a revision is attributed to.
type Author struct {
	Name  string
	Email string
}

// String formats the author as "Name <email>", the form accepted by
// git's --author flag.
func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// CommitRequest describes one revision.
type CommitRequest struct {
	// Paths are workspace-relative paths to stage. An empty slice
	// stages the whole working copy.
	Paths []string

	// Author is recorded as both author and committer.
	Author Author

	// Message is the revision message.
	Message string

	// IncludeAdded stages untracked files found under Paths. When
	// false, only paths the repository already tracks are staged.
	IncludeAdded bool

	// AllowEmpty records a revision even when nothing is staged.
	// When false, such a request fails with ErrNothingToCommit.
	AllowEmpty bool
}

// Client is the synchronization client for one working copy. All
// methods block until the underlying operation completes.
type Client interface {
	// Dir returns the absolute path of the working copy.
	Dir() string

	// HasRemote reports whether the working copy has an upstream
	// remote configured.
	HasRemote(ctx context.Context) (bool, error)

	// Pull fetches from the remote and updates the working copy.
	Pull(ctx context.Context) error

	// Commit stages the requested paths and records a revision.
	Commit(ctx context.Context, request CommitRequest) error

	// Push publishes local revisions to the remote.
	Push(ctx context.Context) error

	// Move renames oldPath to newPath in the working copy and records
	// the rename in the index.
	Move(ctx context.Context, oldPath, newPath string) error

	// Remove deletes path from the working copy and the index.
	// Removing an untracked or absent path is not an error.
	Remove(ctx context.Context, path string) error

	// Add stages the given paths, including untracked ones.
	Add(ctx context.Context, paths []string) error
}

// Backend creates clients.
type Backend interface {
	// Name identifies the backend in configuration ("git", "go-git").
	Name() string

	// Clone clones source into dir, which must not exist or be empty,
	// and returns a client for the new working copy.
	Clone(ctx context.Context, source, dir string) (Client, error)

	// Open returns a client for the existing working copy at dir.
	Open(ctx context.Context, dir string) (Client, error)
}

// Registry maps backend names to backends.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry returns a registry holding the given backends.
func NewRegistry(backends ...Backend) *Registry {
	registry := &Registry{backends: make(map[string]Backend, len(backends))}
	for _, backend := range backends {
		registry.backends[backend.Name()] = backend
	}
	return registry
}

// Lookup returns the backend registered under name.
func (r *Registry) Lookup(name string) (Backend, error) {
	backend, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown version-control backend %q (available: %v)", name, r.Names())
	}
	return backend, nil
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
