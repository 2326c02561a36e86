// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package index provides the in-memory addressable index: the mapping from
// block ID to current physical offset, plus the high-water mark bounding the
// IDs issued so far. It performs no I/O.
package index

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
	"github.com/substratedb/lba/internal/base"
)

// Index maps block IDs to their current physical offset. Deleted blocks stay
// in the map as tombstones so that rewriting the persisted log reproduces
// the deletion; keys are never removed and the high-water mark never
// shrinks, which is what guarantees IDs are not reused.
//
// An Index is not safe for concurrent use. The facade serializes all access.
type Index struct {
	blocks swiss.Map[base.BlockID, base.Offset]
	// hwm is the smallest ID not yet issued; every key in blocks is < hwm.
	hwm base.BlockID
}

// New returns an empty index.
func New() *Index {
	idx := &Index{}
	idx.blocks.Init(0)
	return idx
}

// AllocateID issues a fresh, never-before-issued block ID and advances the
// high-water mark past it.
func (x *Index) AllocateID() base.BlockID {
	id := x.hwm
	x.hwm++
	return id
}

// HighWaterMark returns the exclusive upper bound on IDs issued so far.
func (x *Index) HighWaterMark() base.BlockID {
	return x.hwm
}

// Get returns the current offset for id. It returns ErrNotFound if no offset
// was ever assigned; a deleted block yields DeletedOffset, not an error.
func (x *Index) Get(id base.BlockID) (base.Offset, error) {
	off, ok := x.blocks.Get(id)
	if !ok {
		return 0, base.ErrNotFound
	}
	return off, nil
}

// Set assigns offset to id, inserting or overwriting. Passing the tombstone
// sentinel is a contract violation; deletion goes through Delete.
func (x *Index) Set(id base.BlockID, offset base.Offset) {
	if offset.IsDeleted() {
		panic(errors.AssertionFailedf("lba: Set(%s) with tombstone offset", id))
	}
	x.put(id, offset)
}

// Delete tombstones id. The key stays in the map and the high-water mark is
// unchanged, so the ID is never reissued.
func (x *Index) Delete(id base.BlockID) {
	x.put(id, base.DeletedOffset)
}

func (x *Index) put(id base.BlockID, offset base.Offset) {
	x.blocks.Put(id, offset)
	// Replayed entries may name IDs at or above the current mark; issuing
	// must resume past them.
	if id >= x.hwm {
		x.hwm = id + 1
	}
}

// Len returns the number of mapped IDs, tombstones included.
func (x *Index) Len() int {
	return x.blocks.Len()
}
