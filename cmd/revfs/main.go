// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/revfs/revfs/lib/attrstore"
	"github.com/revfs/revfs/lib/codec"
	"github.com/revfs/revfs/lib/config"
	"github.com/revfs/revfs/lib/dispatch"
	"github.com/revfs/revfs/lib/fuse"
	"github.com/revfs/revfs/lib/git"
	"github.com/revfs/revfs/lib/gogit"
	"github.com/revfs/revfs/lib/logging"
	"github.com/revfs/revfs/lib/metrics"
	"github.com/revfs/revfs/lib/process"
	"github.com/revfs/revfs/lib/vcs"
	"github.com/revfs/revfs/lib/version"
	"github.com/revfs/revfs/lib/workspace"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		process.Fatal(err)
	}
}

// action is what the command line asks for besides mounting.
type action int

const (
	actionMount action = iota
	actionHelp
	actionVersion
)

func run(args []string, stdout, stderr io.Writer) error {
	cfg, what, err := parseArgs(args, stderr)
	switch {
	case err != nil:
		return err
	case what == actionHelp:
		return nil
	case what == actionVersion:
		fmt.Fprintln(stdout, version.Full())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg)
}

// parseArgs builds the effective configuration: defaults, then the
// config file (--config, else REVFS_CONFIG), then flags that were set
// explicitly, then the positional repository and mountpoint.
func parseArgs(args []string, stderr io.Writer) (*config.Config, action, error) {
	var (
		configPath    string
		clone         bool
		logLevel      string
		backend       string
		sync          bool
		tempDir       string
		logFormat     string
		logFile       string
		attrFormat    string
		allowOther    bool
		metricsListen string
		debug         bool
		showVersion   bool
		help          bool
	)

	flagSet := pflag.NewFlagSet("revfs", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "YAML configuration file (default: $REVFS_CONFIG)")
	flagSet.BoolVarP(&clone, "clone", "c", true, "clone the repository into a temporary workspace")
	flagSet.StringVarP(&logLevel, "log-level", "l", "ERROR", "log level: DEBUG, INFO, WARNING, ERROR, CRITICAL")
	flagSet.StringVar(&backend, "backend", config.BackendGit, "version control backend: git or go-git")
	flagSet.BoolVar(&sync, "sync", false, "pull and push for an in-place workspace")
	flagSet.StringVar(&tempDir, "temp-dir", "", "parent directory for cloned workspaces")
	flagSet.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	flagSet.StringVar(&logFile, "log-file", "", "write logs to this file, rotated, instead of stderr")
	flagSet.StringVar(&attrFormat, "attr-format", "json", "attribute record format: json or cbor")
	flagSet.BoolVar(&allowOther, "allow-other", false, "let other users access the mount")
	flagSet.StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	flagSet.BoolVar(&debug, "debug", false, "log every kernel request")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, actionHelp, nil
		}
		return nil, actionMount, &process.UsageError{Err: err}
	}
	if help {
		printUsage(stderr, flagSet)
		return nil, actionHelp, nil
	}
	if showVersion {
		return nil, actionVersion, nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, actionMount, fmt.Errorf("loading configuration: %w", err)
	}

	if flagSet.Changed("clone") {
		cfg.Clone = clone
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flagSet.Changed("backend") {
		cfg.Backend = backend
	}
	if flagSet.Changed("sync") {
		cfg.Sync = sync
	}
	if flagSet.Changed("temp-dir") {
		cfg.TempDir = tempDir
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if flagSet.Changed("log-file") {
		cfg.Log.File = logFile
	}
	if flagSet.Changed("attr-format") {
		cfg.Attributes.Format = attrFormat
	}
	if flagSet.Changed("allow-other") {
		cfg.Mount.AllowOther = allowOther
	}
	if flagSet.Changed("metrics-listen") {
		cfg.Metrics.Listen = metricsListen
	}
	if flagSet.Changed("debug") {
		cfg.Mount.Debug = debug
	}

	positional := flagSet.Args()
	if len(positional) > 2 {
		printUsage(stderr, flagSet)
		return nil, actionMount, process.Usagef("unexpected argument: %s", positional[2])
	}
	if len(positional) > 0 {
		cfg.Repository = positional[0]
	}
	if len(positional) > 1 {
		cfg.Mountpoint = positional[1]
	}
	if cfg.Repository == "" || cfg.Mountpoint == "" {
		printUsage(stderr, flagSet)
		return nil, actionMount, process.Usagef("repository and mountpoint are required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, actionMount, &process.UsageError{Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return cfg, actionMount, nil
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `revfs mounts a repository as a filesystem that records every change.

Usage:
  revfs [flags] <repository> <mountpoint>

Examples:
  # Clone a remote, mount it, push every change back
  revfs https://example.com/team/docs.git /mnt/docs

  # Mount a local working copy in place, commit without pushing
  revfs --clone=false ~/src/docs /mnt/docs

Flags:
`)
	fmt.Fprint(w, flagSet.FlagUsages())
}

// serve mounts the workspace described by cfg and blocks until the
// mount ends, then finalizes the workspace.
func serve(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if err != nil {
		return &process.UsageError{Err: err}
	}
	defer closer.Close()

	system := vcs.Author{
		Name:  cfg.Commit.SystemAuthor,
		Email: cfg.Commit.SystemAuthor + "@" + cfg.Commit.EmailDomain,
	}
	registry := vcs.NewRegistry(
		&git.Backend{Identity: system},
		&gogit.Backend{},
	)
	backend, err := registry.Lookup(cfg.Backend)
	if err != nil {
		return err
	}
	format, err := codec.ParseFormat(cfg.Attributes.Format)
	if err != nil {
		return err
	}
	mountpoint, err := filepath.Abs(cfg.Mountpoint)
	if err != nil {
		return fmt.Errorf("resolving mountpoint: %w", err)
	}

	w, err := workspace.Open(ctx, workspace.Options{
		Source:  cfg.Repository,
		Clone:   cfg.Clone,
		Sync:    cfg.Sync,
		TempDir: cfg.TempDir,
		Backend: backend,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	store, err := attrstore.New(w.Root(), attrstore.Options{
		Dir:    cfg.Attributes.Dir,
		Suffix: cfg.Attributes.Suffix,
		Format: format,
	})
	if err != nil {
		abandon(w, logger)
		return err
	}

	m := metrics.New(nil)
	if cfg.Metrics.Listen != "" {
		metricsServer := metrics.NewServer(cfg.Metrics.Listen, m, logger)
		go func() {
			if err := metricsServer.Serve(ctx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	dispatcher, err := dispatch.New(dispatch.Options{
		Config:    *cfg,
		Workspace: w,
		Store:     store,
		Metrics:   m,
		Logger:    logger,
	})
	if err != nil {
		abandon(w, logger)
		return err
	}

	// Destroy runs after the mount ends, usually because ctx was
	// cancelled, so it gets a context of its own.
	finish := func() error {
		return dispatcher.Destroy(context.Background())
	}

	if err := dispatcher.Init(ctx); err != nil {
		finish()
		return fmt.Errorf("applying stored attributes: %w", err)
	}

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: mountpoint,
		Dispatcher: dispatcher,
		AllowOther: cfg.Mount.AllowOther,
		FsName:     cfg.Mount.FsName,
		Debug:      cfg.Mount.Debug,
		Logger:     logger,
	})
	if err != nil {
		finish()
		return err
	}
	logger.Info("serving",
		"repository", cfg.Repository,
		"workspace", w.Root(),
		"mountpoint", mountpoint,
		"linked", w.Linked(),
		"backend", backend.Name(),
	)

	go func() {
		<-ctx.Done()
		logger.Info("unmounting", "mountpoint", mountpoint)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed", "mountpoint", mountpoint, "error", err)
		}
	}()
	server.Wait()

	if err := finish(); err != nil {
		return fmt.Errorf("finalizing workspace: %w", err)
	}
	logger.Info("workspace finalized", "workspace", w.Root())
	return nil
}

// abandon reclaims a workspace that never got a dispatcher.
func abandon(w *workspace.Workspace, logger *slog.Logger) {
	w.BeginDestroy()
	if err := w.Reclaim(); err != nil {
		logger.Error("reclaiming workspace", "workspace", w.Root(), "error", err)
	}
}
