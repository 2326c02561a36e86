// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

// Metrics is a snapshot of the facade's counters.
type Metrics struct {
	// Appends is the number of mutation records written through to the
	// persisted log (sets and deletes).
	Appends int64
	// Syncs is the number of completed sync workflows, counting both
	// synchronous completions and notified ones.
	Syncs int64
	// Compactions is the number of completed compaction workflows.
	Compactions int64
	// LogHistory is the entry count of the current log instance, durable
	// plus buffered. Compaction resets it to the live mapping size.
	LogHistory int64
	// LiveBlocks is the number of mapped IDs, tombstones included.
	LiveBlocks int64
}

// Metrics returns a snapshot of the facade's counters. Valid in any
// lifecycle state; gauges derived from the index and log are zero outside
// ready.
func (l *LBA) Metrics() Metrics {
	m := Metrics{
		Appends:     l.appends.Load(),
		Syncs:       l.syncs.Load(),
		Compactions: l.compactions.Load(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mu.state == stateReady {
		m.LogHistory = l.mu.log.HistoryLen()
		m.LiveBlocks = int64(l.mu.index.Len())
	}
	return m
}
