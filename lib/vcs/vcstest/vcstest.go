// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package vcstest provides a recording test double for vcs.Client.
//
// The double performs path moves and removals on the real working
// directory (so dispatcher tests observe the same on-disk effects a
// real backend produces) but records commits, pulls, and pushes
// instead of talking to any repository.
package vcstest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/revfs/revfs/lib/vcs"
)

// Call is one recorded client invocation.
type Call struct {
	Op      string
	Paths   []string
	Request vcs.CommitRequest
}

// Client records every call made through the vcs.Client interface.
// Set the *Err fields to inject failures.
type Client struct {
	dir    string
	remote bool

	mu    sync.Mutex
	calls []Call

	// Pulled is invoked at the end of every successful Pull. Tests
	// use it to simulate upstream changes landing in the working copy.
	Pulled func(dir string)

	PullErr   error
	PushErr   error
	CommitErr error
	MoveErr   error
}

var _ vcs.Client = (*Client)(nil)

// New returns a client for dir. remote controls HasRemote.
func New(dir string, remote bool) *Client {
	return &Client{dir: dir, remote: remote}
}

func (c *Client) record(call Call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Commits returns the recorded commit requests, in order.
func (c *Client) Commits() []vcs.CommitRequest {
	var commits []vcs.CommitRequest
	for _, call := range c.Calls() {
		if call.Op == "commit" {
			commits = append(commits, call.Request)
		}
	}
	return commits
}

// Count returns how many times op was called.
func (c *Client) Count(op string) int {
	count := 0
	for _, call := range c.Calls() {
		if call.Op == op {
			count++
		}
	}
	return count
}

// Ops returns the recorded operation names, in order.
func (c *Client) Ops() []string {
	var ops []string
	for _, call := range c.Calls() {
		ops = append(ops, call.Op)
	}
	return ops
}

// Reset discards recorded calls.
func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

func (c *Client) Dir() string { return c.dir }

func (c *Client) HasRemote(context.Context) (bool, error) { return c.remote, nil }

func (c *Client) Pull(context.Context) error {
	c.record(Call{Op: "pull"})
	if c.PullErr != nil {
		return c.PullErr
	}
	if c.Pulled != nil {
		c.Pulled(c.dir)
	}
	return nil
}

func (c *Client) Commit(_ context.Context, request vcs.CommitRequest) error {
	c.record(Call{Op: "commit", Paths: request.Paths, Request: request})
	return c.CommitErr
}

func (c *Client) Push(context.Context) error {
	c.record(Call{Op: "push"})
	return c.PushErr
}

func (c *Client) Move(_ context.Context, oldPath, newPath string) error {
	c.record(Call{Op: "move", Paths: []string{oldPath, newPath}})
	if c.MoveErr != nil {
		return c.MoveErr
	}
	return os.Rename(filepath.Join(c.dir, oldPath), filepath.Join(c.dir, newPath))
}

func (c *Client) Remove(_ context.Context, path string) error {
	c.record(Call{Op: "remove", Paths: []string{path}})
	err := os.RemoveAll(filepath.Join(c.dir, path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Client) Add(_ context.Context, paths []string) error {
	c.record(Call{Op: "add", Paths: paths})
	return nil
}

// Backend is a vcs.Backend producing Clients. Clone creates the target
// directory and copies nothing.
type Backend struct {
	// Remote is passed to every Client the backend creates.
	Remote bool

	// CloneErr, when set, fails Clone.
	CloneErr error

	mu      sync.Mutex
	clients []*Client
}

var _ vcs.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "test" }

func (b *Backend) Clone(_ context.Context, _ string, dir string) (vcs.Client, error) {
	if b.CloneErr != nil {
		return nil, b.CloneErr
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return b.newClient(dir), nil
}

func (b *Backend) Open(_ context.Context, dir string) (vcs.Client, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	return b.newClient(dir), nil
}

// Clients returns every client the backend has created.
func (b *Backend) Clients() []*Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Client(nil), b.clients...)
}

func (b *Backend) newClient(dir string) *Client {
	client := New(dir, b.Remote)
	b.mu.Lock()
	b.clients = append(b.clients, client)
	b.mu.Unlock()
	return client
}
