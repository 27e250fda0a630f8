// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/revfs/revfs/lib/vcs"
)

// Backend is the vcs.Backend that drives the git CLI.
type Backend struct {
	// Identity is used as committer for merge revisions created by
	// Pull. Revisions created by Commit use the request's author.
	Identity vcs.Author
}

var _ vcs.Backend = (*Backend)(nil)

// Name returns "git".
func (b *Backend) Name() string { return "git" }

// Clone runs "git clone source dir" and returns a client for dir.
func (b *Backend) Clone(ctx context.Context, source, dir string) (vcs.Client, error) {
	if _, err := run(ctx, "", "clone", "--quiet", "--", source, dir); err != nil {
		return nil, fmt.Errorf("cloning %s: %w", source, err)
	}
	return b.Open(ctx, dir)
}

// Open returns a client for an existing working copy. It fails when
// dir is not inside a git working tree.
func (b *Backend) Open(ctx context.Context, dir string) (vcs.Client, error) {
	absolute, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	repo := NewRepository(absolute)
	output, err := repo.Run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return nil, fmt.Errorf("opening working copy: %w", err)
	}
	if strings.TrimSpace(output) != "true" {
		return nil, fmt.Errorf("%s is not a git working tree", absolute)
	}
	return &Client{repo: repo, identity: b.Identity}, nil
}

// Client implements vcs.Client with git commands run in one working copy.
type Client struct {
	repo     *Repository
	identity vcs.Author
}

var _ vcs.Client = (*Client)(nil)

// Dir returns the working copy directory.
func (c *Client) Dir() string { return c.repo.Dir() }

// HasRemote reports whether any remote is configured.
func (c *Client) HasRemote(ctx context.Context) (bool, error) {
	output, err := c.repo.Run(ctx, "remote")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(output) != "", nil
}

// Pull fetches and merges the upstream branch. Diverged histories are
// merged with a merge revision; conflicts surface as an error.
func (c *Client) Pull(ctx context.Context) error {
	_, err := c.repo.Run(ctx, c.withIdentity(c.identity,
		"pull", "--quiet", "--no-rebase", "--no-edit")...)
	return err
}

// Push publishes the current branch to origin.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.repo.Run(ctx, "push", "--quiet", "origin", "HEAD")
	return err
}

// Commit stages the requested paths and records one revision.
func (c *Client) Commit(ctx context.Context, request vcs.CommitRequest) error {
	if request.Message == "" {
		return fmt.Errorf("commit message is required")
	}
	if request.Author.Name == "" {
		return fmt.Errorf("commit author is required")
	}

	if err := c.stage(ctx, request.Paths, request.IncludeAdded); err != nil {
		return err
	}

	if !request.AllowEmpty {
		staged, err := c.repo.Run(ctx, "diff", "--cached", "--name-only")
		if err != nil {
			return err
		}
		if strings.TrimSpace(staged) == "" {
			return vcs.ErrNothingToCommit
		}
	}

	args := []string{"commit", "--quiet", "--no-verify",
		"--author", request.Author.String(), "-m", request.Message}
	if request.AllowEmpty {
		args = append(args, "--allow-empty")
	}
	_, err := c.repo.Run(ctx, c.withIdentity(request.Author, args...)...)
	return err
}

// Move renames oldPath to newPath. Tracked paths go through "git mv";
// untracked ones are renamed on disk and the destination is staged.
func (c *Client) Move(ctx context.Context, oldPath, newPath string) error {
	// rename(2) replaces an empty destination directory, while git mv
	// would move the source inside it.
	destination := filepath.Join(c.Dir(), newPath)
	if info, err := os.Lstat(destination); err == nil && info.IsDir() {
		if err := os.Remove(destination); err != nil {
			return err
		}
	}

	tracked, err := c.tracked(ctx, []string{oldPath})
	if err != nil {
		return err
	}
	if tracked[oldPath] {
		_, err := c.repo.Run(ctx, "mv", "-f", "--", oldPath, newPath)
		return err
	}

	if err := os.Rename(filepath.Join(c.Dir(), oldPath), destination); err != nil {
		return err
	}
	return c.Add(ctx, []string{newPath})
}

// Remove deletes path from the index and the working copy.
func (c *Client) Remove(ctx context.Context, path string) error {
	if _, err := c.repo.Run(ctx, "rm", "-r", "-q", "-f", "--ignore-unmatch", "--", path); err != nil {
		return err
	}
	err := os.RemoveAll(filepath.Join(c.Dir(), path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Add stages paths, including untracked files beneath them.
func (c *Client) Add(ctx context.Context, paths []string) error {
	return c.stage(ctx, paths, true)
}

// stage runs "git add" for the stageable subset of paths. With no
// paths the whole working copy is staged.
func (c *Client) stage(ctx context.Context, paths []string, includeAdded bool) error {
	mode := "-u"
	if includeAdded {
		mode = "-A"
	}
	if len(paths) == 0 {
		_, err := c.repo.Run(ctx, "add", mode)
		return err
	}

	stageable, err := c.stageable(ctx, paths, includeAdded)
	if err != nil {
		return err
	}
	if len(stageable) == 0 {
		return nil
	}
	_, err = c.repo.Run(ctx, append([]string{"add", mode, "--"}, stageable...)...)
	return err
}

// stageable filters paths down to those git add accepts: paths present
// in the index, plus (when includeAdded) paths present on disk. Any
// other pathspec makes git add fail with "did not match any files".
func (c *Client) stageable(ctx context.Context, paths []string, includeAdded bool) ([]string, error) {
	tracked, err := c.tracked(ctx, paths)
	if err != nil {
		return nil, err
	}
	var result []string
	seen := make(map[string]bool, len(paths))
	for _, path := range paths {
		if seen[path] {
			continue
		}
		seen[path] = true
		if tracked[path] {
			result = append(result, path)
			continue
		}
		if !includeAdded {
			continue
		}
		if _, err := os.Lstat(filepath.Join(c.Dir(), path)); err == nil {
			result = append(result, path)
		}
	}
	return result, nil
}

// tracked reports which of paths have at least one index entry at or
// below them.
func (c *Client) tracked(ctx context.Context, paths []string) (map[string]bool, error) {
	output, err := c.repo.Run(ctx, append([]string{"ls-files", "-z", "--"}, paths...)...)
	if err != nil {
		return nil, err
	}
	result := make(map[string]bool, len(paths))
	for _, entry := range strings.Split(output, "\x00") {
		if entry == "" {
			continue
		}
		for _, path := range paths {
			if entry == path || strings.HasPrefix(entry, path+"/") {
				result[path] = true
			}
		}
	}
	return result, nil
}

// withIdentity prefixes args with -c settings so commits succeed in
// clones that carry no user configuration.
func (c *Client) withIdentity(identity vcs.Author, args ...string) []string {
	if identity.Name == "" {
		return args
	}
	return append([]string{
		"-c", "user.name=" + identity.Name,
		"-c", "user.email=" + identity.Email,
	}, args...)
}
