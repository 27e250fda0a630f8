// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendGit   = "git"
	BackendGoGit = "go-git"
)

// Config is the complete revfs configuration.
type Config struct {
	// Repository is the remote specifier (clone mode) or local working
	// copy path (in-place mode).
	Repository string `yaml:"repository"`

	// Mountpoint is where the filesystem is mounted.
	Mountpoint string `yaml:"mountpoint"`

	// Clone selects clone mode: the repository is cloned into a
	// temporary workspace that is removed at unmount. When false the
	// local repository is mounted in place.
	// Default: true
	Clone bool `yaml:"clone"`

	// Sync links an in-place workspace to its upstream, enabling
	// pull-before-read and push-after-write. Clone mode is always
	// linked.
	Sync bool `yaml:"sync"`

	// Backend selects the version control implementation: "git" (the
	// git CLI) or "go-git" (native, no git binary needed for commits).
	// Default: git
	Backend string `yaml:"backend"`

	// TempDir is the parent directory for cloned workspaces. Empty
	// means the system temporary directory.
	TempDir string `yaml:"temp_dir"`

	Log        LogConfig        `yaml:"log"`
	Attributes AttributesConfig `yaml:"attributes"`
	Commit     CommitConfig     `yaml:"commit"`
	Mount      MountConfig      `yaml:"mount"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is DEBUG, INFO, WARNING, ERROR, or CRITICAL.
	// Default: ERROR
	Level string `yaml:"level"`

	// Format is "text" or "json".
	// Default: text
	Format string `yaml:"format"`

	// File, when set, receives log output instead of stderr.
	File string `yaml:"file"`

	// MaxSizeMB rotates File once it reaches this size.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is how many rotated files are kept.
	// Default: 3
	MaxBackups int `yaml:"max_backups"`
}

// AttributesConfig configures the attribute shadow store.
type AttributesConfig struct {
	// Dir is the reserved top-level directory holding records.
	// Default: .revfs
	Dir string `yaml:"dir"`

	// Suffix is appended to each record file name.
	// Default: .attr
	Suffix string `yaml:"suffix"`

	// Format is the record encoding: "json" or "cbor".
	// Default: json
	Format string `yaml:"format"`
}

// CommitConfig configures revision authorship.
type CommitConfig struct {
	// EmailDomain completes author addresses: a revision made by user
	// "alice" is authored "alice <alice@EmailDomain>".
	// Default: localhost
	EmailDomain string `yaml:"email_domain"`

	// SystemAuthor authors revisions that no calling user made, such
	// as the final commit at unmount.
	// Default: revfs
	SystemAuthor string `yaml:"system_author"`
}

// MountConfig configures the kernel mount.
type MountConfig struct {
	// AllowOther lets users other than the mounting user access the
	// filesystem. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`

	// FsName is the source shown in /proc/mounts.
	// Default: revfs
	FsName string `yaml:"fs_name"`

	// Debug logs every kernel request.
	Debug bool `yaml:"debug"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the address for the /metrics HTTP server, e.g.
	// "127.0.0.1:9464". Empty disables the server.
	Listen string `yaml:"listen"`
}

// Default returns the default configuration. Repository and Mountpoint
// are left empty; they have no sensible default.
func Default() *Config {
	return &Config{
		Clone:   true,
		Backend: BackendGit,
		Log: LogConfig{
			Level:      "ERROR",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Attributes: AttributesConfig{
			Dir:    ".revfs",
			Suffix: ".attr",
			Format: "json",
		},
		Commit: CommitConfig{
			EmailDomain:  "localhost",
			SystemAuthor: "revfs",
		},
		Mount: MountConfig{
			FsName: "revfs",
		},
	}
}

// Load loads configuration from the file named by REVFS_CONFIG, or
// returns the defaults when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("REVFS_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path on top of the
// defaults. Fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.ExpandVariables()
	return cfg, nil
}

// ExpandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) ExpandVariables() {
	vars := map[string]string{
		"HOME":   os.Getenv("HOME"),
		"TMPDIR": os.TempDir(),
	}
	c.Repository = expandVars(c.Repository, vars)
	c.Mountpoint = expandVars(c.Mountpoint, vars)
	c.TempDir = expandVars(c.TempDir, vars)
	c.Log.File = expandVars(c.Log.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided vars
// take precedence over the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Linked reports whether the workspace is tied to an upstream: always in
// clone mode, on request in place.
func (c *Config) Linked() bool {
	return c.Clone || c.Sync
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Repository == "" {
		errs = append(errs, fmt.Errorf("repository is required"))
	}
	if c.Mountpoint == "" {
		errs = append(errs, fmt.Errorf("mountpoint is required"))
	}

	backends := []string{BackendGit, BackendGoGit}
	if !slices.Contains(backends, c.Backend) {
		errs = append(errs, fmt.Errorf("backend must be one of: %v", backends))
	}

	levels := []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	if !slices.Contains(levels, strings.ToUpper(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", levels))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb and log.max_backups must not be negative"))
	}

	if c.Attributes.Dir == "" || strings.ContainsAny(c.Attributes.Dir, `/\`) || c.Attributes.Dir == "." || c.Attributes.Dir == ".." {
		errs = append(errs, fmt.Errorf("attributes.dir must be a single directory name"))
	}
	if c.Attributes.Dir == ".git" {
		errs = append(errs, fmt.Errorf("attributes.dir must not be .git"))
	}
	if c.Attributes.Suffix == "" {
		errs = append(errs, fmt.Errorf("attributes.suffix is required"))
	}
	if c.Attributes.Format != "json" && c.Attributes.Format != "cbor" {
		errs = append(errs, fmt.Errorf("attributes.format must be json or cbor"))
	}

	if c.Commit.EmailDomain == "" {
		errs = append(errs, fmt.Errorf("commit.email_domain is required"))
	}
	if c.Commit.SystemAuthor == "" {
		errs = append(errs, fmt.Errorf("commit.system_author is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
