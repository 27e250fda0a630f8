// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package attrstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/revfs/revfs/lib/codec"
)

// Default layout values.
const (
	DefaultDir    = ".revfs"
	DefaultSuffix = ".attr"
)

// tempPattern names in-flight record files. LoadAll skips them.
const tempPattern = ".record-*.tmp"

// Record holds the POSIX attributes of one path. Field names are
// alphabetical so that JSON and CBOR encodings share one key order.
type Record struct {
	Atime time.Time `json:"atime" cbor:"atime"`
	GID   uint32    `json:"gid"   cbor:"gid"`
	Group string    `json:"group" cbor:"group"`
	Mode  uint32    `json:"mode"  cbor:"mode"`
	Mtime time.Time `json:"mtime" cbor:"mtime"`
	Owner string    `json:"owner" cbor:"owner"`
	Size  int64     `json:"size"  cbor:"size"`
	UID   uint32    `json:"uid"   cbor:"uid"`
}

// Entry pairs a workspace-relative target path with its record.
type Entry struct {
	Path   string
	Record Record
}

// Options configures a Store.
type Options struct {
	// Dir is the reserved top-level directory, relative to the
	// workspace root. Defaults to DefaultDir.
	Dir string

	// Suffix distinguishes record files from mirrored directories.
	// Defaults to DefaultSuffix.
	Suffix string

	// Format selects the record encoding. Defaults to codec.JSON.
	Format codec.Format
}

// Store reads and writes attribute records beneath one workspace root.
type Store struct {
	root   string
	dir    string
	suffix string
	format codec.Format
}

// New returns a Store for the workspace at root. Nothing is created on
// disk until the first Save.
func New(root string, options Options) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("attrstore: workspace root is required")
	}
	if options.Dir == "" {
		options.Dir = DefaultDir
	}
	if options.Suffix == "" {
		options.Suffix = DefaultSuffix
	}
	if options.Format == "" {
		options.Format = codec.JSON
	}
	if _, err := codec.ParseFormat(string(options.Format)); err != nil {
		return nil, err
	}
	dir := path.Clean(filepath.ToSlash(options.Dir))
	if dir == "." || path.IsAbs(dir) || strings.Contains(dir, "/") {
		return nil, fmt.Errorf("attrstore: directory %q must be a single top-level name", options.Dir)
	}
	return &Store{
		root:   root,
		dir:    dir,
		suffix: options.Suffix,
		format: options.Format,
	}, nil
}

// Dir returns the reserved directory name relative to the workspace
// root. Commit it alongside content paths.
func (s *Store) Dir() string { return s.dir }

// Reserved reports whether the workspace-relative path p is the shadow
// directory or lies inside it.
func (s *Store) Reserved(p string) bool {
	p = clean(p)
	return p == s.dir || strings.HasPrefix(p, s.dir+"/")
}

// RecordPath returns the workspace-relative location of the record for
// target.
func (s *Store) RecordPath(target string) string {
	return s.dir + "/" + clean(target) + s.suffix
}

// DirPath returns the workspace-relative mirrored directory holding the
// records of everything beneath target.
func (s *Store) DirPath(target string) string {
	return s.dir + "/" + clean(target)
}

// Save writes record for target. Intermediate shadow directories are
// created as needed; the record is replaced atomically.
func (s *Store) Save(target string, record Record) error {
	record.Atime = codec.Timestamp(record.Atime)
	record.Mtime = codec.Timestamp(record.Mtime)
	data, err := s.format.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", target, err)
	}

	finalPath := s.absolute(s.RecordPath(target))
	parent := filepath.Dir(finalPath)
	if err := os.MkdirAll(parent, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("creating shadow directory %s: %w", parent, err)
	}

	tmpFile, err := os.CreateTemp(parent, tempPattern)
	if err != nil {
		return fmt.Errorf("creating temp record file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing record data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp record file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting record file mode: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming record file to %s: %w", finalPath, err)
	}

	success = true
	return nil
}

// load reads the record for target. A missing record returns an error
// satisfying errors.Is(err, fs.ErrNotExist).
func (s *Store) load(target string) (Record, error) {
	return s.read(s.absolute(s.RecordPath(target)))
}

func (s *Store) exists(target string) bool {
	info, err := os.Lstat(s.absolute(s.RecordPath(target)))
	return err == nil && info.Mode().IsRegular()
}

// LoadAll walks the shadow directory once and returns every stored
// record in lexical path order. A workspace with no shadow directory
// has no records.
func (s *Store) LoadAll() ([]Entry, error) {
	base := s.absolute(s.dir)
	var entries []Entry
	err := filepath.WalkDir(base, func(walkPath string, entry fs.DirEntry, err error) error {
		if err != nil {
			if walkPath == base && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}
		name := entry.Name()
		if !strings.HasSuffix(name, s.suffix) || strings.HasPrefix(name, ".record-") {
			return nil
		}

		relative, err := filepath.Rel(base, walkPath)
		if err != nil {
			return err
		}
		record, err := s.read(walkPath)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Path:   strings.TrimSuffix(filepath.ToSlash(relative), s.suffix),
			Record: record,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", base, err)
	}
	return entries, nil
}

// Move relocates the record for oldTarget, and the mirrored directory
// of a renamed directory, to newTarget. Whatever newTarget had is
// dropped first, as rename replaces it; the source may have no record
// at all. The returned slice lists the workspace-relative shadow paths
// touched, for staging.
func (s *Store) Move(oldTarget, newTarget string) ([]string, error) {
	var touched []string
	pairs := [][2]string{
		{s.RecordPath(oldTarget), s.RecordPath(newTarget)},
		{s.DirPath(oldTarget), s.DirPath(newTarget)},
	}
	for _, pair := range pairs {
		from, to := s.absolute(pair[0]), s.absolute(pair[1])

		_, err := os.Lstat(to)
		cleared := err == nil
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return touched, err
		}
		if cleared {
			if err := os.RemoveAll(to); err != nil {
				return touched, fmt.Errorf("clearing %s: %w", pair[1], err)
			}
			touched = append(touched, pair[1])
		}

		if _, err := os.Lstat(from); errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return touched, err
		}
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return touched, fmt.Errorf("creating shadow directory for %s: %w", pair[1], err)
		}
		if err := os.Rename(from, to); err != nil {
			return touched, fmt.Errorf("moving %s: %w", pair[0], err)
		}
		touched = append(touched, pair[0])
		if !cleared {
			touched = append(touched, pair[1])
		}
	}
	return touched, nil
}

// Remove deletes the record for target. A missing record is not an
// error.
func (s *Store) Remove(target string) error {
	err := os.Remove(s.absolute(s.RecordPath(target)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing record for %s: %w", target, err)
	}
	return nil
}

// RemoveDir deletes the mirrored directory for target when it is empty.
// A missing or non-empty directory is not an error; records of paths
// that still exist stay in place.
func (s *Store) RemoveDir(target string) error {
	err := os.Remove(s.absolute(s.DirPath(target)))
	if err == nil || errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) {
		return nil
	}
	return fmt.Errorf("removing shadow directory for %s: %w", target, err)
}

func (s *Store) read(file string) (Record, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Record{}, err
	}
	var record Record
	if err := s.format.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("decoding %s: %w", file, err)
	}
	return record, nil
}

func (s *Store) absolute(relative string) string {
	return filepath.Join(s.root, filepath.FromSlash(relative))
}

// clean normalizes a workspace-relative path: slash-separated, no
// leading slash, no dot segments.
func clean(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}
