// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"github.com/substratedb/lba/device"
	"github.com/substratedb/lba/extent"
	"github.com/substratedb/lba/internal/base"
)

func histogramCount(t *testing.T, hist prometheus.Histogram) uint64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, hist.Write(metric))
	return metric.GetHistogram().GetSampleCount()
}

func TestLatencyHistograms(t *testing.T) {
	syncLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lba_sync_latency",
		Buckets: []float64{1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9},
	})
	gcLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lba_gc_latency",
		Buckets: []float64{1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9},
	})
	l := New(&Options{SyncLatency: syncLatency, GCLatency: gcLatency})
	l.Start(extent.NewManager(testExtentSize), device.NewMem())

	id := l.AllocateID()
	l.SetOffset(id, 100)
	syncWait(t, l)
	require.EqualValues(t, 1, histogramCount(t, syncLatency))

	l.GC()
	syncWait(t, l)
	l.gcs.Wait()
	require.EqualValues(t, 1, histogramCount(t, gcLatency))

	m := l.Metrics()
	require.EqualValues(t, 1, m.Appends)
	require.EqualValues(t, 1, m.Compactions)
	require.GreaterOrEqual(t, m.Syncs, int64(1))
	require.EqualValues(t, 1, m.LiveBlocks)
	l.Shutdown()
}

func TestMetricsSnapshot(t *testing.T) {
	l, _ := newTestLBA(t)
	for i := 0; i < 5; i++ {
		l.SetOffset(l.AllocateID(), base.Offset(i*512))
	}
	l.Delete(0)

	m := l.Metrics()
	require.EqualValues(t, 6, m.Appends)
	require.EqualValues(t, 6, m.LogHistory)
	require.EqualValues(t, 5, m.LiveBlocks)
	l.Shutdown()
}
