// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/revfs/revfs/lib/attrstore"
	"github.com/revfs/revfs/lib/clock"
	"github.com/revfs/revfs/lib/config"
	"github.com/revfs/revfs/lib/identity"
	"github.com/revfs/revfs/lib/metrics"
	"github.com/revfs/revfs/lib/vcs"
	"github.com/revfs/revfs/lib/workspace"
)

// Caller identifies the process that issued a filesystem request, as
// presented by the kernel at call time.
type Caller struct {
	UID uint32
	GID uint32
	PID uint32
}

// Options configures New.
type Options struct {
	// Config supplies commit authorship settings. Only the Commit
	// section is read.
	Config config.Config

	// Workspace must be Ready.
	Workspace *workspace.Workspace

	// Store holds attribute records for Workspace.
	Store *attrstore.Store

	// Identity resolves caller ids to author names. Defaults to the
	// host user database.
	Identity identity.Resolver

	// Clock times operations. Defaults to the real clock.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *metrics.Metrics

	Logger *slog.Logger
}

// Dispatcher implements the filesystem verbs for one workspace.
type Dispatcher struct {
	commit    config.CommitConfig
	workspace *workspace.Workspace
	client    vcs.Client
	store     *attrstore.Store
	identity  identity.Resolver
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger

	mu         sync.Mutex
	handles    map[Handle]*openFile
	nextHandle Handle
}

// New returns a Dispatcher. Call Init before serving requests.
func New(options Options) (*Dispatcher, error) {
	if options.Workspace == nil {
		return nil, errors.New("dispatch: workspace is required")
	}
	if options.Store == nil {
		return nil, errors.New("dispatch: attribute store is required")
	}
	if options.Identity == nil {
		options.Identity = identity.System()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	commit := options.Config.Commit
	if commit.SystemAuthor == "" {
		commit.SystemAuthor = config.Default().Commit.SystemAuthor
	}
	if commit.EmailDomain == "" {
		commit.EmailDomain = config.Default().Commit.EmailDomain
	}

	return &Dispatcher{
		commit:    commit,
		workspace: options.Workspace,
		client:    options.Workspace.Client(),
		store:     options.Store,
		identity:  options.Identity,
		clock:     options.Clock,
		metrics:   options.Metrics,
		logger:    options.Logger,
		handles:   make(map[Handle]*openFile),
	}, nil
}

// Init re-applies every stored attribute record onto the workspace.
// Version control transfers content only, so ownership and mode are
// lost on clone until this runs.
func (d *Dispatcher) Init(ctx context.Context) error {
	d.workspace.MustBeReady("init")
	return d.loadAttributes(ctx)
}

// Destroy finalizes the mount: it commits whatever is left uncommitted
// as the system author, pushes when linked, and reclaims a cloned
// workspace. Commit and push failures are logged and do not prevent
// reclamation; only a reclamation failure is returned.
func (d *Dispatcher) Destroy(ctx context.Context) (err error) {
	start := d.clock.Now()
	defer func() { d.metrics.ObserveOperation(string(VerbDestroy), d.clock.Now().Sub(start), err) }()

	d.workspace.BeginDestroy()
	if open := d.OpenHandles(); open > 0 {
		d.logger.Warn("closing handles left open at unmount", "count", open)
	}
	d.closeAll()

	err = d.client.Commit(ctx, vcs.CommitRequest{
		Author:       d.author(d.commit.SystemAuthor),
		Message:      "revfs[cruft]",
		IncludeAdded: true,
	})
	switch {
	case errors.Is(err, vcs.ErrNothingToCommit):
		d.metrics.ObserveSync("commit", nil)
	case err != nil:
		d.metrics.ObserveSync("commit", err)
		d.logger.Error("final commit failed", "error", err)
	default:
		d.metrics.ObserveSync("commit", nil)
	}

	if d.workspace.Linked() {
		if err := d.client.Push(ctx); err != nil {
			d.metrics.ObserveSync("push", err)
			d.logger.Error("final push failed", "error", err)
		} else {
			d.metrics.ObserveSync("push", nil)
		}
	}

	return d.workspace.Reclaim()
}

// enter marks the start of a verb. The returned function, deferred with
// a pointer to the verb's error result, records its outcome.
func (d *Dispatcher) enter(verb Verb, target string) func(*error) {
	d.workspace.MustBeReady(string(verb))
	start := d.clock.Now()
	return func(errp *error) {
		err := *errp
		d.metrics.ObserveOperation(string(verb), d.clock.Now().Sub(start), err)
		if err != nil {
			d.logger.Debug("operation failed", "verb", verb, "path", target, "error", err)
			return
		}
		d.logger.Debug("operation", "verb", verb, "path", target)
	}
}

// pull refreshes the workspace from the remote when linked.
func (d *Dispatcher) pull(ctx context.Context) error {
	if !d.workspace.Linked() {
		return nil
	}
	err := d.client.Pull(ctx)
	d.metrics.ObserveSync("pull", err)
	if err != nil {
		d.logger.Error("pull failed", "error", err)
		return &SyncError{Op: "pull", Err: err}
	}
	return nil
}

// record commits paths and the shadow directory as one revision
// authored by caller, then pushes when linked. Every call produces a
// revision, even when the mutation left content unchanged.
func (d *Dispatcher) record(ctx context.Context, caller Caller, message string, paths ...string) error {
	staged := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		if p == "" {
			p = "."
		}
		staged = append(staged, p)
	}
	request := vcs.CommitRequest{
		Paths:        append(staged, d.store.Dir()),
		Author:       d.author(d.identity.UserName(caller.UID)),
		Message:      message,
		IncludeAdded: true,
		AllowEmpty:   true,
	}
	err := d.client.Commit(ctx, request)
	d.metrics.ObserveSync("commit", err)
	if err != nil {
		d.logger.Error("commit failed", "message", message, "error", err)
		return fmt.Errorf("committing %q: %w", message, err)
	}

	if !d.workspace.Linked() {
		return nil
	}
	err = d.client.Push(ctx)
	d.metrics.ObserveSync("push", err)
	if err != nil {
		d.logger.Error("push failed", "message", message, "error", err)
		return &SyncError{Op: "push", Err: err}
	}
	return nil
}

func (d *Dispatcher) author(name string) vcs.Author {
	return vcs.Author{Name: name, Email: name + "@" + d.commit.EmailDomain}
}

// saveAttributes stores the current attributes of target.
func (d *Dispatcher) saveAttributes(target string) error {
	var st unix.Stat_t
	if err := unix.Lstat(d.abs(target), &st); err != nil {
		return &fs.PathError{Op: "lstat", Path: target, Err: err}
	}
	record := attrstore.Record{
		Atime: time.Unix(st.Atim.Unix()),
		GID:   st.Gid,
		Group: d.identity.GroupName(st.Gid),
		Mode:  st.Mode,
		Mtime: time.Unix(st.Mtim.Unix()),
		Owner: d.identity.UserName(st.Uid),
		Size:  st.Size,
		UID:   st.Uid,
	}
	return d.store.Save(target, record)
}

// loadAttributes applies every stored record's ownership and mode to
// its target. Records whose target is gone are skipped, as are
// ownership changes the process is not permitted to make.
func (d *Dispatcher) loadAttributes(context.Context) error {
	entries, err := d.store.LoadAll()
	if err != nil {
		return fmt.Errorf("loading attributes: %w", err)
	}
	for _, entry := range entries {
		target := d.abs(entry.Path)
		record := entry.Record

		var st unix.Stat_t
		if err := unix.Lstat(target, &st); err != nil {
			if errors.Is(err, unix.ENOENT) {
				d.logger.Warn("attribute record without target", "path", entry.Path)
				continue
			}
			return &fs.PathError{Op: "lstat", Path: entry.Path, Err: err}
		}

		// chown clears set-id bits, so ownership goes first.
		if st.Uid != record.UID || st.Gid != record.GID {
			err := unix.Lchown(target, int(record.UID), int(record.GID))
			switch {
			case errors.Is(err, unix.EPERM):
				d.logger.Debug("ownership not applied", "path", entry.Path, "uid", record.UID, "gid", record.GID)
			case err != nil:
				return &fs.PathError{Op: "lchown", Path: entry.Path, Err: err}
			}
		}
		if st.Mode&unix.S_IFMT == unix.S_IFLNK {
			continue
		}
		if err := unix.Chmod(target, record.Mode&0o7777); err != nil {
			if errors.Is(err, unix.EPERM) {
				d.logger.Debug("mode not applied", "path", entry.Path, "mode", fmt.Sprintf("%o", record.Mode))
				continue
			}
			return &fs.PathError{Op: "chmod", Path: entry.Path, Err: err}
		}
	}
	d.logger.Debug("attributes loaded", "records", len(entries))
	return nil
}

// abs maps a workspace-relative path to its location on disk.
func (d *Dispatcher) abs(relative string) string {
	return filepath.Join(d.workspace.Root(), filepath.FromSlash(relative))
}

// clean normalizes a request path to workspace-relative form: no
// leading slash, no dot segments. The workspace root is "".
func clean(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}
