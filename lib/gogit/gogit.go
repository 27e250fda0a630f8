// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package gogit implements vcs.Backend on top of go-git, a pure-Go git
// implementation. It needs no git binary for commits and staging, which
// makes it suitable for minimal hosts; transport to local-path remotes
// still goes through go-git's file transport.
//
// Differences from the CLI backend in lib/git:
//
//   - Pull only fast-forwards. A working copy whose history diverged
//     from the remote fails the pull instead of creating a merge.
//   - Staging is driven by worktree status: deleted files are removed
//     from the index, everything else changed under the requested
//     paths is added.
package gogit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/revfs/revfs/lib/clock"
	"github.com/revfs/revfs/lib/vcs"
)

// remoteName is the remote that Pull and Push target.
const remoteName = "origin"

// Backend is the go-git vcs.Backend.
type Backend struct {
	// Clock stamps revision signatures. Nil uses the real clock.
	Clock clock.Clock
}

var _ vcs.Backend = (*Backend)(nil)

// Name returns "go-git".
func (b *Backend) Name() string { return "go-git" }

// Clone clones source into dir using filesystem storage under dir/.git.
func (b *Backend) Clone(ctx context.Context, source, dir string) (vcs.Client, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := os.MkdirAll(absolute, 0o755); err != nil {
		return nil, fmt.Errorf("creating clone directory %s: %w", absolute, err)
	}

	repo, err := gogit.CloneContext(ctx, storageFor(absolute), osfs.New(absolute), &gogit.CloneOptions{
		URL:        source,
		RemoteName: remoteName,
	})
	if err != nil {
		return nil, fmt.Errorf("cloning %s: %w", source, err)
	}
	return b.client(absolute, repo), nil
}

// Open opens the working copy at dir.
func (b *Backend) Open(_ context.Context, dir string) (vcs.Client, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	repo, err := gogit.Open(storageFor(absolute), osfs.New(absolute))
	if err != nil {
		return nil, fmt.Errorf("opening working copy %s: %w", absolute, err)
	}
	return b.client(absolute, repo), nil
}

func (b *Backend) client(dir string, repo *gogit.Repository) *Client {
	c := b.Clock
	if c == nil {
		c = clock.Real()
	}
	return &Client{dir: dir, repo: repo, clock: c}
}

func storageFor(dir string) *filesystem.Storage {
	return filesystem.NewStorage(osfs.New(filepath.Join(dir, ".git")), cache.NewObjectLRUDefault())
}

// Client implements vcs.Client with go-git.
type Client struct {
	dir   string
	repo  *gogit.Repository
	clock clock.Clock
}

var _ vcs.Client = (*Client)(nil)

// Dir returns the working copy directory.
func (c *Client) Dir() string { return c.dir }

// HasRemote reports whether any remote is configured.
func (c *Client) HasRemote(context.Context) (bool, error) {
	remotes, err := c.repo.Remotes()
	if err != nil {
		return false, fmt.Errorf("listing remotes: %w", err)
	}
	return len(remotes) > 0, nil
}

// Pull fast-forwards the working copy to the remote branch.
func (c *Client) Pull(ctx context.Context) error {
	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	err = worktree.PullContext(ctx, &gogit.PullOptions{RemoteName: remoteName})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pulling from %s: %w", remoteName, err)
	}
	return nil
}

// Push publishes local revisions to the remote.
func (c *Client) Push(ctx context.Context) error {
	err := c.repo.PushContext(ctx, &gogit.PushOptions{RemoteName: remoteName})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", remoteName, err)
	}
	return nil
}

// Commit stages the requested paths and records one revision.
func (c *Client) Commit(_ context.Context, request vcs.CommitRequest) error {
	if request.Message == "" {
		return fmt.Errorf("commit message is required")
	}
	if request.Author.Name == "" {
		return fmt.Errorf("commit author is required")
	}

	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := stage(worktree, request.Paths, request.IncludeAdded); err != nil {
		return err
	}

	signature := &object.Signature{
		Name:  request.Author.Name,
		Email: request.Author.Email,
		When:  c.clock.Now(),
	}
	_, err = worktree.Commit(request.Message, &gogit.CommitOptions{
		Author:            signature,
		Committer:         signature,
		AllowEmptyCommits: request.AllowEmpty,
	})
	if errors.Is(err, gogit.ErrEmptyCommit) {
		return vcs.ErrNothingToCommit
	}
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Move renames oldPath to newPath on disk and stages both sides.
func (c *Client) Move(_ context.Context, oldPath, newPath string) error {
	destination := filepath.Join(c.dir, newPath)
	if info, err := os.Lstat(destination); err == nil && info.IsDir() {
		if err := os.Remove(destination); err != nil {
			return err
		}
	}
	if err := os.Rename(filepath.Join(c.dir, oldPath), destination); err != nil {
		return err
	}

	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	return stage(worktree, []string{oldPath, newPath}, true)
}

// Remove deletes path from disk and stages the deletion.
func (c *Client) Remove(_ context.Context, path string) error {
	err := os.RemoveAll(filepath.Join(c.dir, path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	return stage(worktree, []string{path}, false)
}

// Add stages paths, including untracked files beneath them.
func (c *Client) Add(_ context.Context, paths []string) error {
	worktree, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	return stage(worktree, paths, true)
}

// stage brings the index in line with the worktree for every changed
// file under paths. An empty paths slice covers the whole worktree.
func stage(worktree *gogit.Worktree, paths []string, includeAdded bool) error {
	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("reading worktree status: %w", err)
	}

	for file, fileStatus := range status {
		if !covered(file, paths) {
			continue
		}
		switch fileStatus.Worktree {
		case gogit.Unmodified:
			continue
		case gogit.Untracked:
			if !includeAdded {
				continue
			}
			if _, err := worktree.Add(file); err != nil {
				return fmt.Errorf("staging %s: %w", file, err)
			}
		case gogit.Deleted:
			if _, err := worktree.Remove(file); err != nil {
				return fmt.Errorf("staging removal of %s: %w", file, err)
			}
		default:
			if _, err := worktree.Add(file); err != nil {
				return fmt.Errorf("staging %s: %w", file, err)
			}
		}
	}
	return nil
}

// covered reports whether file is one of paths or lies beneath one.
func covered(file string, paths []string) bool {
	if len(paths) == 0 {
		return true
	}
	for _, path := range paths {
		path = filepath.ToSlash(path)
		if path == "." || file == path || strings.HasPrefix(file, path+"/") {
			return true
		}
	}
	return false
}
