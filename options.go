// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/substratedb/lba/internal/base"
)

// Options holds the configuration for an LBA facade.
type Options struct {
	// Logger for informational messages and fatal I/O failures. Defaults to
	// base.DefaultLogger.
	Logger base.Logger

	// GCEntryThreshold is the log history length at which Sync triggers a
	// compaction, provided the history is also at least twice the live
	// mapping size (a freshly compacted log is all live entries; without
	// the factor a large mapping would recompact on every sync).
	GCEntryThreshold int64

	// GCTriggerProbability, if positive, additionally triggers a compaction
	// from Sync with the given probability. It exists to exercise the
	// compaction path under test harnesses and has no place in production
	// configurations.
	GCTriggerProbability float64

	// SyncLatency, if set, records the duration of each sync workflow in
	// nanoseconds.
	SyncLatency prometheus.Histogram

	// GCLatency, if set, records the duration of each compaction workflow
	// in nanoseconds.
	GCLatency prometheus.Histogram
}

const defaultGCEntryThreshold = 1 << 16

// EnsureDefaults fills in unset options with their default values, returning
// the receiver for convenience.
func (o *Options) EnsureDefaults() *Options {
	if o.Logger == nil {
		o.Logger = base.DefaultLogger{}
	}
	if o.GCEntryThreshold <= 0 {
		o.GCEntryThreshold = defaultGCEntryThreshold
	}
	return o
}
