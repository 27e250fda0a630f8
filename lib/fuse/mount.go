// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/revfs/revfs/lib/dispatch"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if it does not exist.
	Mountpoint string

	// Dispatcher serves every request. It must be initialized.
	Dispatcher *dispatch.Dispatcher

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// FsName is shown as the mount source in /proc/mounts.
	// Defaults to "revfs".
	FsName string

	// Debug logs every kernel request and reply.
	Debug bool

	// Logger receives diagnostic messages. If nil, an error-level
	// stderr logger is used.
	Logger *slog.Logger
}

// Mount mounts the workspace served by options.Dispatcher at the
// configured mountpoint. The caller must call Unmount on the returned
// Server when done, then Wait for it, and finally Destroy the
// dispatcher.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if options.FsName == "" {
		options.FsName = "revfs"
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := &node{fs: &filesystem{
		dispatcher: options.Dispatcher,
		logger:     options.Logger,
	}}

	var noCache time.Duration
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &noCache,
		AttrTimeout:     &noCache,
		NegativeTimeout: &noCache,
		MountOptions: fuse.MountOptions{
			FsName:         options.FsName,
			Name:           "revfs",
			AllowOther:     options.AllowOther,
			SingleThreaded: true,
			Debug:          options.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("revfs mounted",
		"mountpoint", options.Mountpoint,
		"verbs", len(options.Dispatcher.Capabilities()),
	)
	return server, nil
}
