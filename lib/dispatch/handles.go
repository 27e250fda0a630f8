// Copyright 2026 The Revfs Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"os"
)

// Handle identifies an open file. Zero is never a valid handle.
type Handle uint64

type openFile struct {
	file *os.File
	path string
}

func (d *Dispatcher) register(file *os.File, target string) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	d.handles[d.nextHandle] = &openFile{file: file, path: target}
	return d.nextHandle
}

func (d *Dispatcher) lookup(handle Handle) (*openFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	open, ok := d.handles[handle]
	if !ok {
		return nil, ErrBadHandle
	}
	return open, nil
}

func (d *Dispatcher) unregister(handle Handle) (*openFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	open, ok := d.handles[handle]
	if !ok {
		return nil, ErrBadHandle
	}
	delete(d.handles, handle)
	return open, nil
}

// closeAll closes every handle still open at unmount.
func (d *Dispatcher) closeAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for handle, open := range d.handles {
		if err := open.file.Close(); err != nil {
			d.logger.Warn("closing handle at unmount", "path", open.path, "error", err)
		}
		delete(d.handles, handle)
	}
}

// OpenHandles returns the number of handles not yet released.
func (d *Dispatcher) OpenHandles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}
