// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lba

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/substratedb/lba/device"
	"github.com/substratedb/lba/extent"
	"github.com/substratedb/lba/internal/base"
	"github.com/substratedb/lba/lbalog"
)

const testExtentSize = 64 * 16 // 64 entries per extent

func newTestLBA(t *testing.T) (*LBA, *device.Mem) {
	t.Helper()
	dev := device.NewMem()
	l := New(nil)
	l.Start(extent.NewManager(testExtentSize), dev)
	return l, dev
}

func syncWait(t *testing.T, l *LBA) {
	t.Helper()
	done := make(chan struct{})
	if l.Sync(func() { close(done) }) {
		return
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("sync did not complete")
	}
}

func TestExampleScenario(t *testing.T) {
	l, _ := newTestLBA(t)

	require.EqualValues(t, 0, l.AllocateID())
	require.EqualValues(t, 1, l.AllocateID())
	require.EqualValues(t, 2, l.AllocateID())

	l.SetOffset(0, 100)
	l.SetOffset(1, 200)
	l.Delete(1)
	syncWait(t, l)

	off, err := l.GetOffset(0)
	require.NoError(t, err)
	require.EqualValues(t, 100, off)

	off, err = l.GetOffset(1)
	require.NoError(t, err)
	require.True(t, off.IsDeleted())

	_, err = l.GetOffset(2)
	require.ErrorIs(t, err, base.ErrNotFound, "allocated but never set")

	l.Shutdown()
}

func TestRestartRoundTrip(t *testing.T) {
	dev := device.NewMem()
	l := New(nil)
	l.Start(extent.NewManager(testExtentSize), dev)

	const n = 500
	expected := make(map[base.BlockID]base.Offset)
	for i := 0; i < n; i++ {
		id := l.AllocateID()
		l.SetOffset(id, base.Offset(i*4096))
		expected[id] = base.Offset(i * 4096)
	}
	// Overwrites and deletes: the replay must apply later entries over
	// earlier ones.
	for i := 0; i < n; i += 3 {
		id := base.BlockID(i)
		l.SetOffset(id, base.Offset(i))
		expected[id] = base.Offset(i)
	}
	for i := 0; i < n; i += 5 {
		id := base.BlockID(i)
		l.Delete(id)
		expected[id] = base.DeletedOffset
	}

	syncWait(t, l)
	mb := &lbalog.Metablock{}
	l.PrepareMetablock(mb)
	hwm := l.HighWaterMark()
	l.Shutdown()

	l2 := New(nil)
	ready := make(chan struct{})
	if !l2.Load(extent.NewManager(testExtentSize), dev, mb, func() { close(ready) }) {
		select {
		case <-ready:
		case <-time.After(10 * time.Second):
			t.Fatal("load did not complete")
		}
	}

	require.Equal(t, hwm, l2.HighWaterMark())
	for id, want := range expected {
		got, err := l2.GetOffset(id)
		require.NoError(t, err, "id %s", id)
		require.Equal(t, want, got, "id %s", id)
	}
	l2.Shutdown()
}

func TestLoadEmptyIsSynchronous(t *testing.T) {
	l := New(nil)
	done := l.Load(extent.NewManager(testExtentSize), device.NewMem(), &lbalog.Metablock{},
		func() { t.Fatal("no notification on the synchronous path") })
	require.True(t, done)
	require.EqualValues(t, 0, l.HighWaterMark())
	l.Shutdown()
}

func TestMutationsAfterRestart(t *testing.T) {
	dev := device.NewMem()
	l := New(nil)
	l.Start(extent.NewManager(testExtentSize), dev)
	id := l.AllocateID()
	l.SetOffset(id, 100)
	syncWait(t, l)
	mb := &lbalog.Metablock{}
	l.PrepareMetablock(mb)
	l.Shutdown()

	l2 := New(nil)
	ready := make(chan struct{})
	if !l2.Load(extent.NewManager(testExtentSize), dev, mb, func() { close(ready) }) {
		<-ready
	}

	// The reloaded store issues fresh IDs and persists new mutations in the
	// same log instance.
	id2 := l2.AllocateID()
	require.NotEqual(t, id, id2)
	l2.SetOffset(id2, 200)
	l2.Delete(id)
	syncWait(t, l2)

	mb2 := &lbalog.Metablock{}
	l2.PrepareMetablock(mb2)
	l2.Shutdown()

	l3 := New(nil)
	ready3 := make(chan struct{})
	if !l3.Load(extent.NewManager(testExtentSize), dev, mb2, func() { close(ready3) }) {
		<-ready3
	}
	off, err := l3.GetOffset(id2)
	require.NoError(t, err)
	require.EqualValues(t, 200, off)
	off, err = l3.GetOffset(id)
	require.NoError(t, err)
	require.True(t, off.IsDeleted())
	l3.Shutdown()
}

func TestGCCompactsHistory(t *testing.T) {
	l, _ := newTestLBA(t)

	id := l.AllocateID()
	for i := 0; i < 1000; i++ {
		l.SetOffset(id, base.Offset(i))
	}
	require.EqualValues(t, 1000, l.Metrics().LogHistory)

	l.GC()
	syncWait(t, l)
	l.gcs.Wait()
	require.EqualValues(t, 1, l.Metrics().Compactions)
	require.EqualValues(t, 1, l.Metrics().LogHistory, "one live entry after compaction")

	off, err := l.GetOffset(id)
	require.NoError(t, err)
	require.EqualValues(t, 999, off)
	l.Shutdown()
}

func TestSyncTriggersGCByThreshold(t *testing.T) {
	dev := device.NewMem()
	l := New(&Options{GCEntryThreshold: 100})
	l.Start(extent.NewManager(testExtentSize), dev)

	id := l.AllocateID()
	for i := 0; i < 300; i++ {
		l.SetOffset(id, base.Offset(i))
	}
	syncWait(t, l)
	l.gcs.Wait()
	require.EqualValues(t, 1, l.Metrics().Compactions)

	// A freshly compacted log is all live entries; syncing again must not
	// retrigger.
	syncWait(t, l)
	l.gcs.Wait()
	require.EqualValues(t, 1, l.Metrics().Compactions)
	l.Shutdown()
}

func TestLifecycleViolations(t *testing.T) {
	l := New(nil)
	require.Panics(t, func() { l.AllocateID() }, "unstarted")
	require.Panics(t, func() { l.Sync(nil) }, "unstarted")
	require.Panics(t, func() { l.Shutdown() }, "unstarted")

	l.Start(extent.NewManager(testExtentSize), device.NewMem())
	require.Panics(t, func() { l.Start(extent.NewManager(testExtentSize), device.NewMem()) },
		"double start")

	l.Shutdown()
	require.Panics(t, func() { l.SetOffset(0, 100) }, "shut down")
	require.Panics(t, func() { l.Shutdown() }, "double shutdown")
}
