// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger for revfs binaries.
//
// Levels use the fixed severity names accepted on the command line:
// DEBUG, INFO, WARNING, ERROR, CRITICAL. CRITICAL sits above slog's
// error level so that only fatal conditions pass it. Output goes to
// stderr, or to a size-rotated file when Options.File is set.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelCritical is the slog level for CRITICAL.
const LevelCritical = slog.LevelError + 4

// Levels lists the accepted severity names, lowest first.
var Levels = []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}

// Options configures New.
type Options struct {
	// Level is one of Levels, case-insensitive. Empty means ERROR.
	Level string

	// Format is "text" (default) or "json".
	Format string

	// File, when set, receives log output instead of stderr. The file
	// is rotated once it reaches MaxSizeMB; MaxBackups old files are
	// kept.
	File       string
	MaxSizeMB  int
	MaxBackups int

	// Writer overrides the destination. Used by tests.
	Writer io.Writer
}

// ParseLevel maps a severity name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARNING", "WARN":
		return slog.LevelWarn, nil
	case "", "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return LevelCritical, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want one of %s)", name, strings.Join(Levels, ", "))
	}
}

// New builds a logger from options and installs it as the slog default
// so that library code logging through slog shares the handler. The
// returned closer releases the log file, if any.
func New(options Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, nil, err
	}

	var writer io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	switch {
	case options.Writer != nil:
		writer = options.Writer
	case options.File != "":
		rotating := &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    options.MaxSizeMB,
			MaxBackups: options.MaxBackups,
		}
		writer, closer = rotating, rotating
	}

	handlerOptions := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: levelNames,
	}
	var handler slog.Handler
	switch strings.ToLower(options.Format) {
	case "", "text":
		handler = slog.NewTextHandler(writer, handlerOptions)
	case "json":
		handler = slog.NewJSONHandler(writer, handlerOptions)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q (want text or json)", options.Format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelCritical + 1}))
}

// levelNames renders the custom CRITICAL level by name instead of
// slog's "ERROR+4".
func levelNames(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level >= LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
