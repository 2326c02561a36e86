// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package device

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Mem is a memory-backed Device for tests. The device is sparse: reads past
// the written size yield zeroes, and writes grow it as needed.
type Mem struct {
	mu    sync.Mutex
	data  []byte
	syncs int
}

var _ Device = (*Mem)(nil)

// NewMem returns an empty memory-backed device.
func NewMem() *Mem {
	return &Mem{}
}

// ReadAt implements io.ReaderAt.
func (d *Mem) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Newf("device: read at negative offset %d", off)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	if off < int64(len(d.data)) {
		n = copy(p, d.data[off:])
	}
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// WriteAt implements io.WriterAt.
func (d *Mem) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.Newf("device: write at negative offset %d", off)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if end := off + int64(len(p)); end > int64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:], p)
	return len(p), nil
}

// Sync implements Device.
func (d *Mem) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.syncs++
	return nil
}

// Close implements Device.
func (d *Mem) Close() error {
	return nil
}

// SyncCount returns the number of Sync calls, for tests asserting that a
// durability path actually reached the device.
func (d *Mem) SyncCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.syncs
}

// Size returns the current written size of the device.
func (d *Mem) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.data))
}
