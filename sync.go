// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

import (
	"math/rand/v2"

	"github.com/cockroachdb/crlib/crtime"
	"github.com/substratedb/lba/internal/intentlock"
)

// syncer drives one sync workflow: take the structural lock shared, flush
// the current log, release, notify. Any number of syncers may hold the lock
// concurrently; each flushes the same append-only buffer, so they race
// harmlessly.
type syncer struct {
	l       *LBA
	done    func()
	started crtime.Mono
}

// Sync makes all mutations issued before this call durable. It returns true
// if everything was already durable, in which case done is never invoked.
// Otherwise it returns false and done is invoked exactly once when the
// flush completes. A sync issued while a compaction holds the structural
// lock exclusively waits for the swap to finish and then flushes the new
// log, which by construction carries all captured state.
func (l *LBA) Sync(done func()) bool {
	if l.gcDue() {
		l.GC()
	}

	s := &syncer{l: l, done: done, started: crtime.NowMono()}
	if l.structLock.Acquire(intentlock.Shared, s.lockGranted) {
		if l.currentLog().Sync(s.logSynced) {
			// Already durable; the whole workflow completed synchronously
			// and the return value is the completion signal.
			s.done = nil
			s.finish()
			return true
		}
		return false
	}
	return false
}

// lockGranted continues the workflow after a deferred lock grant.
func (s *syncer) lockGranted() {
	if s.l.currentLog().Sync(s.logSynced) {
		s.finish()
	}
}

// logSynced continues the workflow after a deferred log flush.
func (s *syncer) logSynced() {
	s.finish()
}

func (s *syncer) finish() {
	s.l.structLock.Release(intentlock.Shared)
	s.l.syncs.Add(1)
	if h := s.l.opts.SyncLatency; h != nil {
		h.Observe(float64(s.started.Elapsed()))
	}
	if s.done != nil {
		s.done()
	}
}

// gcDue implements the compaction trigger policy: the current log's history
// must reach the configured threshold and be at least twice the live mapping
// size, so a freshly compacted log (all live entries) never immediately
// retriggers. The probabilistic trigger is a harness knob.
func (l *LBA) gcDue() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requireStateLocked("Sync", stateReady)
	if p := l.opts.GCTriggerProbability; p > 0 && rand.Float64() < p {
		return true
	}
	history := l.mu.log.HistoryLen()
	return history >= l.opts.GCEntryThreshold && history >= 2*int64(l.mu.index.Len())
}
