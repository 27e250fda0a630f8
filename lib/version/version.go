// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time, for example:
//
//	go build -ldflags "-X github.com/revfs/revfs/lib/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	GitCommit = ""
	BuildTime = "unknown"
	Version   = "0.1.0-dev"
)

// shortCommit is the length of an abbreviated revision.
const shortCommit = 7

// Commit returns the git revision of the build, suffixed with "-dirty"
// when the toolchain recorded uncommitted changes. It is "unknown" when
// neither ldflags nor build info carry a revision.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	return commitFromSettings(info.Settings)
}

func commitFromSettings(settings []debug.BuildSetting) string {
	revision, dirty := "", false
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if revision == "" {
		return "unknown"
	}
	if len(revision) > shortCommit {
		revision = revision[:shortCommit]
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	return fmt.Sprintf("revfs %s (%s, %s)", Version, Commit(), BuildTime)
}

// Full returns Info plus the Go version and platform.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
