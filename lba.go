// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package lba implements the logical-block-address subsystem of a
// log-structured storage engine: a durable mapping from stable block IDs to
// their current physical offset on the backing device. The in-memory
// mapping (the addressable index) is authoritative; every mutation is also
// appended to a persisted mapping log, which a later start replays to
// reconstruct the index. Compaction replaces the log with one containing
// only current state, reclaiming the space consumed by obsolete history.
//
// Mutating calls must be issued from a single goroutine. The sync and
// compaction workflows are asynchronous and may be driven from anywhere;
// they coordinate only through the structural lock guarding which log
// instance is current, and never touch the mutation path.
package lba

import (
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/substratedb/lba/device"
	"github.com/substratedb/lba/extent"
	"github.com/substratedb/lba/internal/base"
	"github.com/substratedb/lba/internal/index"
	"github.com/substratedb/lba/internal/intentlock"
	"github.com/substratedb/lba/lbalog"
)

type lifecycleState int8

const (
	stateUnstarted lifecycleState = iota
	stateStartingUp
	stateReady
	stateShutDown
)

func (s lifecycleState) String() string {
	switch s {
	case stateUnstarted:
		return "unstarted"
	case stateStartingUp:
		return "starting-up"
	case stateReady:
		return "ready"
	case stateShutDown:
		return "shut-down"
	}
	return "unknown"
}

// LBA is the facade over the addressable index, the current persisted
// mapping log, and the structural lock coordinating sync and compaction.
type LBA struct {
	opts *Options

	// structLock arbitrates which workflow may read (sync) or replace
	// (compaction) the current log instance.
	structLock intentlock.Lock

	// gcs tracks in-flight compaction workflows so Shutdown can wait for
	// them.
	gcs sync.WaitGroup

	appends     atomic.Int64
	syncs       atomic.Int64
	compactions atomic.Int64

	// Set at start and immutable afterwards.
	em  *extent.Manager
	dev device.Device

	// Test seams; defaulted by New to the disk log implementation.
	makeLog func() lbalog.Log
	loadLog func(mb *lbalog.Metablock, done func(lbalog.Log)) (lbalog.Log, bool)

	mu struct {
		sync.Mutex
		state lifecycleState
		index *index.Index
		log   lbalog.Log
	}
}

// New returns an unstarted facade. Call Start or Load before any other
// operation.
func New(opts *Options) *LBA {
	if opts == nil {
		opts = &Options{}
	}
	opts.EnsureDefaults()
	l := &LBA{opts: opts}
	l.makeLog = func() lbalog.Log {
		return lbalog.Create(l.em, l.dev, l.opts.Logger)
	}
	l.loadLog = func(mb *lbalog.Metablock, done func(lbalog.Log)) (lbalog.Log, bool) {
		return lbalog.Load(l.em, l.dev, l.opts.Logger, mb, func(dl *lbalog.DiskLog) { done(dl) })
	}
	return l
}

// Start initializes a brand-new store: a fresh empty index and a fresh empty
// log. It completes synchronously and leaves the facade ready.
func (l *LBA) Start(em *extent.Manager, dev device.Device) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("Start", stateUnstarted)
	l.em, l.dev = em, dev
	l.mu.index = index.New()
	l.mu.log = l.makeLog()
	l.mu.state = stateReady
}

// startFSM drives the load-existing startup workflow: it owns the caller's
// completion target and performs the index rebuild once the log's entries
// are available, whether that happens synchronously or on the load
// notification.
type startFSM struct {
	l *LBA
	// onReady is the caller's completion target. It is nil when the whole
	// workflow completed synchronously, in which case Load's return value
	// is the completion signal.
	onReady func()
}

// Load initializes the store from a prior run's recovery record. If the
// reconstruction completes synchronously, Load returns true, the facade is
// ready, and onReady is never invoked. Otherwise it returns false and
// onReady is invoked exactly once when the facade becomes ready.
func (l *LBA) Load(em *extent.Manager, dev device.Device, mb *lbalog.Metablock, onReady func()) bool {
	func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.requireStateLocked("Load", stateUnstarted)
		l.em, l.dev = em, dev
		l.mu.state = stateStartingUp
	}()

	// onReady must be in place before loadLog: an asynchronous load may
	// complete on another goroutine before loadLog returns here.
	fsm := &startFSM{l: l, onReady: onReady}
	lg, done := l.loadLog(mb, fsm.loadFinished)
	if done {
		fsm.onReady = nil
		fsm.finish(lg)
		return true
	}
	return false
}

func (fsm *startFSM) loadFinished(lg lbalog.Log) {
	fsm.finish(lg)
}

// finish rebuilds the index by replaying the loaded log in log order (later
// entries for an ID override earlier ones, tombstones included) and moves
// the facade to ready.
func (fsm *startFSM) finish(lg lbalog.Log) {
	l := fsm.l
	idx := index.New()
	lg.Replay(func(id base.BlockID, offset base.Offset) {
		if offset.IsDeleted() {
			idx.Delete(id)
		} else {
			idx.Set(id, offset)
		}
	})
	l.mu.Lock()
	l.mu.index = idx
	l.mu.log = lg
	l.mu.state = stateReady
	l.mu.Unlock()
	if fsm.onReady != nil {
		fsm.onReady()
	}
}

// AllocateID issues a fresh, never-before-issued block ID.
func (l *LBA) AllocateID() base.BlockID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("AllocateID", stateReady)
	return l.mu.index.AllocateID()
}

// HighWaterMark returns the exclusive upper bound on IDs issued so far.
func (l *LBA) HighWaterMark() base.BlockID {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("HighWaterMark", stateReady)
	return l.mu.index.HighWaterMark()
}

// GetOffset returns the current offset for id: the assigned offset, the
// tombstone for a deleted block, or ErrNotFound if no offset was ever
// assigned.
func (l *LBA) GetOffset(id base.BlockID) (base.Offset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("GetOffset", stateReady)
	return l.mu.index.Get(id)
}

// SetOffset assigns offset to id and appends the mutation to the current
// log.
//
// The index write precedes the append. A compaction racing with this call
// snapshots the index, not the log, so the mutation is captured even when
// the append lands in a log about to be retired; that append is wasted but
// harmless because the retired log is discarded.
func (l *LBA) SetOffset(id base.BlockID, offset base.Offset) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("SetOffset", stateReady)
	l.mu.index.Set(id, offset)
	l.mu.log.AddEntry(id, offset)
	l.appends.Add(1)
}

// Delete tombstones id in the index and appends a tombstone entry to the
// current log. See SetOffset for why this is safe against a running
// compaction. The ID is never reissued.
func (l *LBA) Delete(id base.BlockID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("Delete", stateReady)
	l.mu.index.Delete(id)
	l.mu.log.AddEntry(id, base.DeletedOffset)
	l.appends.Add(1)
}

// PrepareMetablock fills mb with the recovery record for the log instance
// current at call time; the engine embeds it in its own checkpoint. Sync
// first: the record covers only the durable prefix.
func (l *LBA) PrepareMetablock(mb *lbalog.Metablock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("PrepareMetablock", stateReady)
	l.mu.log.PrepareMetablock(mb)
}

// Shutdown flushes the current log, releases the index, and moves the
// facade to shut-down. It waits for in-flight compactions to finish first;
// concurrent mutating calls or syncs remain the caller's responsibility to
// quiesce.
func (l *LBA) Shutdown() {
	l.gcs.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("Shutdown", stateReady)
	l.mu.log.Shutdown()
	l.mu.log = nil
	l.mu.index = nil
	l.mu.state = stateShutDown
}

// currentLog returns the log instance current at call time. Callers holding
// the structural lock in either intent are guaranteed the instance is not
// concurrently retired.
func (l *LBA) currentLog() lbalog.Log {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.log
}

func (l *LBA) requireStateLocked(op string, want lifecycleState) {
	if l.mu.state != want {
		panic(errors.AssertionFailedf("lba: %s in state %s, want %s", op, l.mu.state, want))
	}
}
