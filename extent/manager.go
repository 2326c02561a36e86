// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package extent provides the extent manager: the space allocator that hands
// out fixed-size contiguous regions of the backing device. The persisted
// mapping log owns its space through this manager; the facade never calls it
// directly.
package extent

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// DefaultSize is the extent size used when the engine does not configure one.
const DefaultSize int64 = 512 << 10 // 512 KB

// Manager allocates and frees fixed-size extents of a device, addressed by
// their starting byte offset. It is safe for concurrent use.
//
// The manager's own state is not persisted: after a restart the engine
// rebuilds it by calling Reserve with the extents named by the recovery
// record, and every region below the resulting frontier that is not reserved
// returns to the free list.
type Manager struct {
	size int64

	mu struct {
		sync.Mutex
		// frontier is the device offset one past the highest extent ever
		// handed out.
		frontier int64
		// free holds offsets of extents below the frontier that were freed
		// (or never reserved after a restart), in LIFO order.
		free []int64
	}
}

// NewManager returns a Manager handing out extents of the given size.
func NewManager(size int64) *Manager {
	if size <= 0 {
		panic(errors.AssertionFailedf("extent: non-positive extent size %d", size))
	}
	return &Manager{size: size}
}

// Size returns the extent size in bytes.
func (m *Manager) Size() int64 {
	return m.size
}

// Allocate hands out an extent, reusing freed space before growing the
// frontier. It returns the extent's starting device offset.
func (m *Manager) Allocate() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.mu.free); n > 0 {
		off := m.mu.free[n-1]
		m.mu.free = m.mu.free[:n-1]
		return off
	}
	off := m.mu.frontier
	m.mu.frontier += m.size
	return off
}

// Free returns an extent to the manager. Freeing an extent that was never
// allocated is a contract violation.
func (m *Manager) Free(off int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkOwnedLocked(off)
	for _, f := range m.mu.free {
		if f == off {
			panic(errors.AssertionFailedf("extent: double free of extent at %d", off))
		}
	}
	m.mu.free = append(m.mu.free, off)
}

// Reserve seeds a freshly created manager with the extents already owned by
// a loaded structure. The frontier advances past the highest reserved
// extent, and every unreserved slot below it becomes free. Reserve may only
// be called on a manager that has not yet allocated.
func (m *Manager) Reserve(offsets []int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mu.frontier != 0 || len(m.mu.free) != 0 {
		panic(errors.AssertionFailedf("extent: Reserve on a manager already in use"))
	}
	reserved := make(map[int64]bool, len(offsets))
	for _, off := range offsets {
		if off < 0 || off%m.size != 0 {
			panic(errors.AssertionFailedf("extent: reserving misaligned extent at %d", off))
		}
		if reserved[off] {
			panic(errors.AssertionFailedf("extent: reserving extent at %d twice", off))
		}
		reserved[off] = true
		if off+m.size > m.mu.frontier {
			m.mu.frontier = off + m.size
		}
	}
	for off := int64(0); off < m.mu.frontier; off += m.size {
		if !reserved[off] {
			m.mu.free = append(m.mu.free, off)
		}
	}
}

// Live returns the number of extents currently allocated.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.mu.frontier/m.size) - len(m.mu.free)
}

func (m *Manager) checkOwnedLocked(off int64) {
	if off < 0 || off%m.size != 0 || off >= m.mu.frontier {
		panic(errors.AssertionFailedf("extent: freeing extent at %d that was never allocated", off))
	}
}
