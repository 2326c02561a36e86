// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

import (
	"github.com/cockroachdb/crlib/crtime"
	"github.com/substratedb/lba/internal/base"
	"github.com/substratedb/lba/internal/intentlock"
	"github.com/substratedb/lba/lbalog"
)

// gcFSM drives one compaction workflow: take the structural lock exclusive,
// retire the current log, build a replacement containing only current
// state, install it, downgrade to shared so no other compaction can begin
// before this one persists, destroy the retired instance, sync the new
// one, release. The fsm solely owns the retired instance from the swap
// until Destroy returns.
type gcFSM struct {
	l       *LBA
	retired lbalog.Log
	fresh   lbalog.Log
	started crtime.Mono
}

// GC triggers a compaction of the persisted mapping log: the accumulated
// mutation history is replaced by one entry per mapped ID, reclaiming the
// space held by obsolete history. Fire-and-forget; the workflow queues
// behind in-flight syncs and other compactions and runs to completion on
// its own.
func (l *LBA) GC() {
	func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.requireStateLocked("GC", stateReady)
	}()
	l.gcs.Add(1)
	fsm := &gcFSM{l: l, started: crtime.NowMono()}
	if l.structLock.Acquire(intentlock.Exclusive, fsm.replaceLog) {
		fsm.replaceLog()
	}
}

// replaceLog runs the exclusive phase: snapshot the index into a new log and
// install it as current. Mutations serialize around the snapshot on the
// facade mutex; one arriving before it is captured by the snapshot (its
// append to the retiring log is discarded with it), one arriving after it
// appends to the new log. Either way nothing is lost.
func (fsm *gcFSM) replaceLog() {
	l := fsm.l
	fresh := l.makeLog()

	l.mu.Lock()
	fsm.retired = l.mu.log
	idx := l.mu.index
	hwm := idx.HighWaterMark()
	rewritten := 0
	for id := base.BlockID(0); id < hwm; id++ {
		offset, err := idx.Get(id)
		if err != nil {
			// Allocated but never assigned: nothing to persist.
			continue
		}
		fresh.AddEntry(id, offset)
		rewritten++
	}
	l.mu.log = fresh
	l.mu.Unlock()

	// Keep a shared hold through the destroy-and-persist phase so another
	// compaction cannot replace the new log out from under us.
	l.structLock.Downgrade()

	fsm.fresh = fresh
	fsm.retired.Destroy()
	fsm.retired = nil
	l.opts.Logger.Infof("lba: compaction rewrote %d entries (high-water mark %s)", rewritten, hwm)

	if fresh.Sync(fsm.freshSynced) {
		fsm.finish()
	}
}

// freshSynced continues the workflow after the new log's deferred flush.
func (fsm *gcFSM) freshSynced() {
	fsm.finish()
}

func (fsm *gcFSM) finish() {
	l := fsm.l
	l.structLock.Release(intentlock.Shared)
	l.compactions.Add(1)
	if h := l.opts.GCLatency; h != nil {
		h.Observe(float64(fsm.started.Elapsed()))
	}
	l.gcs.Done()
}
