// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package index

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/substratedb/lba/internal/base"
)

func TestAllocateIDUnique(t *testing.T) {
	x := New()
	seen := make(map[base.BlockID]bool)
	for i := 0; i < 1000; i++ {
		id := x.AllocateID()
		require.False(t, seen[id], "ID %s issued twice", id)
		seen[id] = true
		require.Less(t, id, x.HighWaterMark())
	}
	require.EqualValues(t, 1000, x.HighWaterMark())
}

func TestSetGetDelete(t *testing.T) {
	x := New()
	id := x.AllocateID()

	_, err := x.Get(id)
	require.ErrorIs(t, err, base.ErrNotFound)

	x.Set(id, 100)
	off, err := x.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, 100, off)

	x.Set(id, 200)
	off, err = x.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, 200, off)

	x.Delete(id)
	off, err = x.Get(id)
	require.NoError(t, err)
	require.True(t, off.IsDeleted())

	// A deleted ID can be reassigned and read back normally.
	x.Set(id, 300)
	off, err = x.Get(id)
	require.NoError(t, err)
	require.EqualValues(t, 300, off)
}

func TestDeleteKeepsHighWaterMark(t *testing.T) {
	x := New()
	for i := 0; i < 10; i++ {
		x.Set(x.AllocateID(), base.Offset(i*512))
	}
	hwm := x.HighWaterMark()
	for id := base.BlockID(0); id < hwm; id++ {
		x.Delete(id)
	}
	require.Equal(t, hwm, x.HighWaterMark())
	require.Equal(t, 10, x.Len())
	// The next allocation never reuses a deleted ID.
	require.Equal(t, hwm, x.AllocateID())
}

func TestReplayAdvancesHighWaterMark(t *testing.T) {
	x := New()
	x.Set(7, 4096)
	require.EqualValues(t, 8, x.HighWaterMark())
	x.Delete(12)
	require.EqualValues(t, 13, x.HighWaterMark())
	require.EqualValues(t, 13, x.AllocateID())
}

func TestSetTombstonePanics(t *testing.T) {
	x := New()
	id := x.AllocateID()
	require.Panics(t, func() { x.Set(id, base.DeletedOffset) })
}

func TestGetUnknownID(t *testing.T) {
	x := New()
	_, err := x.Get(42)
	require.ErrorIs(t, err, base.ErrNotFound)
}
