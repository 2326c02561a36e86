// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lbalog

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/substratedb/lba/device"
	"github.com/substratedb/lba/extent"
	"github.com/substratedb/lba/internal/base"
)

// DiskLog is the device-backed Log implementation. Entries are buffered in
// memory by AddEntry and drained to the extent chain by Sync; extents are
// allocated from the manager as the chain grows and returned on Destroy.
//
// I/O failures are fatal: this layer owns no retry policy, and a mapping log
// whose durability cannot be guaranteed must not keep operating.
type DiskLog struct {
	em     *extent.Manager
	dev    device.Device
	logger base.Logger
	// perExtent is the number of entries one extent holds.
	perExtent int64

	// flushMu serializes the write-and-sync path. Overlapping Sync workflows
	// race harmlessly: each drains whatever is buffered when its turn comes.
	flushMu sync.Mutex
	// written counts entries handed to the device, synced or not. Protected
	// by flushMu.
	written int64

	mu struct {
		sync.Mutex
		closed bool
		// buffered holds appended entries not yet written to the device.
		buffered []entry
		// extents is the chain of device offsets owning this log's entries.
		extents []int64
		// history is the total entry count, durable plus buffered.
		history int64
		// durable is the count of entries written and device-synced.
		durable int64
		// loaded holds replayable entries between load completion and Replay.
		loaded []entry
	}
}

var _ Log = (*DiskLog)(nil)

func newDiskLog(em *extent.Manager, dev device.Device, logger base.Logger) *DiskLog {
	if logger == nil {
		logger = base.DefaultLogger{}
	}
	perExtent := em.Size() / entrySize
	if perExtent == 0 {
		panic(errors.AssertionFailedf("lbalog: extent size %d smaller than one entry", em.Size()))
	}
	return &DiskLog{em: em, dev: dev, logger: logger, perExtent: perExtent}
}

// Create synchronously produces an empty log instance. Space is allocated
// lazily, on the first flush.
func Create(em *extent.Manager, dev device.Device, logger base.Logger) *DiskLog {
	return newDiskLog(em, dev, logger)
}

// Load begins reconstructing a log instance from a prior recovery record,
// re-reserving the extents it names. If the reconstruction completes
// synchronously, Load returns true and done is never invoked; otherwise it
// returns false and done is invoked exactly once, with the same log, when
// the entries have been read back. Replay is valid only after completion.
func Load(
	em *extent.Manager, dev device.Device, logger base.Logger,
	mb *Metablock, done func(*DiskLog),
) (*DiskLog, bool) {
	l := newDiskLog(em, dev, logger)
	need := (int64(mb.EntryCount) + l.perExtent - 1) / l.perExtent
	if int64(len(mb.Extents)) < need {
		l.logger.Fatalf("lba: recovery record names %d extents, %d entries need %d",
			len(mb.Extents), mb.EntryCount, need)
	}
	em.Reserve(mb.Extents)
	l.mu.extents = append([]int64(nil), mb.Extents...)
	l.mu.history = int64(mb.EntryCount)
	l.mu.durable = int64(mb.EntryCount)
	l.written = int64(mb.EntryCount)
	if mb.EntryCount == 0 {
		return l, true
	}
	go func() {
		l.readBack()
		done(l)
	}()
	return l, false
}

// readBack reads the durable entries named by the recovery record into
// memory for Replay.
func (l *DiskLog) readBack() {
	loaded := make([]entry, 0, l.mu.durable)
	for pos := int64(0); pos < l.mu.durable; {
		n := l.perExtent - pos%l.perExtent
		if rem := l.mu.durable - pos; rem < n {
			n = rem
		}
		ext := l.mu.extents[pos/l.perExtent]
		buf := make([]byte, n*entrySize)
		if _, err := l.dev.ReadAt(buf, ext+(pos%l.perExtent)*entrySize); err != nil {
			l.logger.Fatalf("lba: persisted log read failed: %v", err)
		}
		for i := int64(0); i < n; i++ {
			loaded = append(loaded, decodeEntry(buf[i*entrySize:]))
		}
		pos += n
	}
	l.mu.Lock()
	l.mu.loaded = loaded
	l.mu.Unlock()
}

// AddEntry implements Log.
func (l *DiskLog) AddEntry(id base.BlockID, offset base.Offset) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mu.closed {
		panic(errors.AssertionFailedf("lbalog: AddEntry on a closed log"))
	}
	l.mu.buffered = append(l.mu.buffered, entry{id: id, offset: offset})
	l.mu.history++
}

// Sync implements Log.
func (l *DiskLog) Sync(done func()) bool {
	l.mu.Lock()
	if l.mu.closed {
		l.mu.Unlock()
		panic(errors.AssertionFailedf("lbalog: Sync on a closed log"))
	}
	if len(l.mu.buffered) == 0 && l.mu.durable == l.mu.history {
		l.mu.Unlock()
		return true
	}
	target := l.mu.history
	l.mu.Unlock()
	go func() {
		l.flushTo(target)
		done()
	}()
	return false
}

// flushTo makes at least the first target entries durable. Later entries
// buffered by the time the flush runs ride along.
func (l *DiskLog) flushTo(target int64) {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	if l.mu.durable >= target {
		// An overlapping flush already covered this request.
		l.mu.Unlock()
		return
	}
	batch := l.mu.buffered
	l.mu.buffered = nil
	l.mu.Unlock()

	if err := l.writeEntries(batch); err != nil {
		l.logger.Fatalf("lba: persisted log write failed: %v", err)
	}
	if err := l.dev.Sync(); err != nil {
		l.logger.Fatalf("lba: device sync failed: %v", err)
	}

	l.mu.Lock()
	if l.written > l.mu.durable {
		l.mu.durable = l.written
	}
	l.mu.Unlock()
}

func (l *DiskLog) writeEntries(batch []entry) error {
	pos := l.written
	for len(batch) > 0 {
		ext, slot := l.extentFor(pos)
		n := l.perExtent - slot
		if int64(len(batch)) < n {
			n = int64(len(batch))
		}
		buf := make([]byte, n*entrySize)
		for i := int64(0); i < n; i++ {
			batch[i].encodeTo(buf[i*entrySize:])
		}
		if _, err := l.dev.WriteAt(buf, ext+slot*entrySize); err != nil {
			return err
		}
		pos += n
		batch = batch[n:]
	}
	l.written = pos
	return nil
}

// extentFor returns the extent and entry slot for the given log position,
// growing the chain if the position lies past it.
func (l *DiskLog) extentFor(pos int64) (ext, slot int64) {
	idx := pos / l.perExtent
	slot = pos % l.perExtent
	l.mu.Lock()
	for int64(len(l.mu.extents)) <= idx {
		if len(l.mu.extents) >= MaxExtents {
			l.mu.Unlock()
			l.logger.Fatalf("lba: log grew past %d extents; compaction never ran", MaxExtents)
		}
		l.mu.extents = append(l.mu.extents, l.em.Allocate())
	}
	ext = l.mu.extents[idx]
	l.mu.Unlock()
	return ext, slot
}

// PrepareMetablock implements Log. The record covers the durable prefix
// only; the engine syncs before checkpointing, so a metablock taken in
// checkpoint order never names entries the device may not have.
func (l *DiskLog) PrepareMetablock(mb *Metablock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	mb.EntryCount = uint64(l.mu.durable)
	n := (l.mu.durable + l.perExtent - 1) / l.perExtent
	mb.Extents = append([]int64(nil), l.mu.extents[:n]...)
}

// HistoryLen implements Log.
func (l *DiskLog) HistoryLen() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.history
}

// Replay implements Log.
func (l *DiskLog) Replay(fn func(id base.BlockID, offset base.Offset)) {
	l.mu.Lock()
	loaded := l.mu.loaded
	l.mu.loaded = nil
	l.mu.Unlock()
	for _, e := range loaded {
		fn(e.id, e.offset)
	}
}

// Destroy implements Log.
func (l *DiskLog) Destroy() {
	l.mu.Lock()
	if l.mu.closed {
		l.mu.Unlock()
		panic(errors.AssertionFailedf("lbalog: Destroy on a closed log"))
	}
	l.mu.closed = true
	exts := l.mu.extents
	l.mu.extents = nil
	l.mu.buffered = nil
	l.mu.loaded = nil
	l.mu.Unlock()
	for _, ext := range exts {
		l.em.Free(ext)
	}
}

// Shutdown implements Log.
func (l *DiskLog) Shutdown() {
	l.mu.Lock()
	if l.mu.closed {
		l.mu.Unlock()
		panic(errors.AssertionFailedf("lbalog: Shutdown on a closed log"))
	}
	target := l.mu.history
	l.mu.Unlock()
	l.flushTo(target)
	l.mu.Lock()
	l.mu.closed = true
	l.mu.buffered = nil
	l.mu.loaded = nil
	l.mu.Unlock()
}
