// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package extent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateGrowsFrontier(t *testing.T) {
	m := NewManager(1024)
	require.EqualValues(t, 0, m.Allocate())
	require.EqualValues(t, 1024, m.Allocate())
	require.EqualValues(t, 2048, m.Allocate())
	require.Equal(t, 3, m.Live())
}

func TestFreeReuses(t *testing.T) {
	m := NewManager(1024)
	a := m.Allocate()
	b := m.Allocate()
	m.Free(a)
	require.Equal(t, 1, m.Live())
	require.Equal(t, a, m.Allocate(), "freed extent is reused before growing")
	require.EqualValues(t, 2048, m.Allocate())
	m.Free(b)
	require.Equal(t, 2, m.Live())
}

func TestFreeViolations(t *testing.T) {
	m := NewManager(1024)
	a := m.Allocate()
	require.Panics(t, func() { m.Free(a + 1) }, "misaligned")
	require.Panics(t, func() { m.Free(4096) }, "beyond frontier")
	m.Free(a)
	require.Panics(t, func() { m.Free(a) }, "double free")
}

func TestReserve(t *testing.T) {
	m := NewManager(1024)
	// A loaded structure owns extents 0 and 2; the gap at 1024 returns to
	// the free list.
	m.Reserve([]int64{2048, 0})
	require.Equal(t, 2, m.Live())
	require.EqualValues(t, 1024, m.Allocate())
	require.EqualValues(t, 3072, m.Allocate())
}

func TestReserveViolations(t *testing.T) {
	m := NewManager(1024)
	require.Panics(t, func() { m.Reserve([]int64{100}) }, "misaligned")

	m2 := NewManager(1024)
	require.Panics(t, func() { m2.Reserve([]int64{0, 0}) }, "duplicate")

	m3 := NewManager(1024)
	m3.Allocate()
	require.Panics(t, func() { m3.Reserve([]int64{0}) }, "manager already in use")
}
