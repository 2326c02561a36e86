// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package lbalog implements the persisted mapping log: the append-only
// on-disk history of block-ID-to-offset mutations, chained across extents,
// together with the fixed-size metablock that lets a fresh process locate
// and replay it.
package lbalog

import (
	"encoding/binary"

	"github.com/substratedb/lba/internal/base"
)

// Log is the persisted mapping log interface consumed by the facade. The
// disk implementation lives in this package; tests may substitute their own.
type Log interface {
	// AddEntry appends one mutation record. It never blocks and never fails
	// observably; entries are buffered in memory until the next Sync.
	AddEntry(id base.BlockID, offset base.Offset)

	// Sync makes all appended entries durable. It returns true if the log
	// is already durable, in which case no notification follows. Otherwise
	// it returns false and done is invoked exactly once when the flush
	// completes.
	Sync(done func()) bool

	// PrepareMetablock fills mb with the recovery record describing the
	// durable prefix of this log instance. It does not block and does not
	// fail.
	PrepareMetablock(mb *Metablock)

	// HistoryLen returns the total number of entries this instance carries,
	// durable and buffered. It grows monotonically until the instance is
	// replaced by compaction.
	HistoryLen() int64

	// Replay invokes fn for every loaded entry in log order. It is valid
	// only after a load has completed, and releases the loaded entries.
	Replay(fn func(id base.BlockID, offset base.Offset))

	// Destroy releases all device space owned by this instance. Only valid
	// once the instance has been superseded by a replacement.
	Destroy()

	// Shutdown flushes buffered entries durably and releases in-memory
	// resources. No further use of the instance is permitted.
	Shutdown()
}

// entrySize is the encoded size of one mapping entry.
const entrySize = 16

// entry is one (block ID, offset) mutation record.
type entry struct {
	id     base.BlockID
	offset base.Offset
}

func (e entry) encodeTo(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(e.id))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(e.offset))
}

func decodeEntry(buf []byte) entry {
	return entry{
		id:     base.BlockID(binary.LittleEndian.Uint64(buf[0:8])),
		offset: base.Offset(binary.LittleEndian.Uint64(buf[8:16])),
	}
}
