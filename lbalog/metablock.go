// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package lbalog

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// MaxExtents bounds the extent chain a single log instance may grow to.
// Compaction is expected to replace the log long before the chain fills; a
// log that outgrows it has a broken trigger policy and aborts.
const MaxExtents = 64

// MetablockSize is the encoded size of a Metablock in bytes.
const MetablockSize = 8 + 4 + 4 + MaxExtents*8

// Metablock is the recovery record for one log instance: enough to locate
// and replay its durable entries after a restart. The engine embeds the
// encoded form in its own checkpoint; the layout is owned by this package
// and opaque to everything above it.
type Metablock struct {
	// EntryCount is the number of entries durably on the device at the time
	// the metablock was prepared.
	EntryCount uint64
	// Extents holds the device offsets of the extents carrying those
	// entries, in chain order.
	Extents []int64
}

// EncodeTo writes the fixed-size encoding of mb into buf, which must be at
// least MetablockSize bytes.
func (mb *Metablock) EncodeTo(buf []byte) {
	if len(buf) < MetablockSize {
		panic(errors.AssertionFailedf("lbalog: metablock buffer of %d bytes, need %d", len(buf), MetablockSize))
	}
	if len(mb.Extents) > MaxExtents {
		panic(errors.AssertionFailedf("lbalog: metablock with %d extents exceeds the maximum %d", len(mb.Extents), MaxExtents))
	}
	binary.LittleEndian.PutUint64(buf[0:8], mb.EntryCount)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(mb.Extents)))
	binary.LittleEndian.PutUint32(buf[12:16], 0)
	for i := 0; i < MaxExtents; i++ {
		var off int64
		if i < len(mb.Extents) {
			off = mb.Extents[i]
		}
		binary.LittleEndian.PutUint64(buf[16+8*i:24+8*i], uint64(off))
	}
}

// DecodeFrom reads the fixed-size encoding from buf. It returns an error if
// the record is structurally invalid; entry contents are not validated here.
func (mb *Metablock) DecodeFrom(buf []byte) error {
	if len(buf) < MetablockSize {
		return errors.Newf("lbalog: metablock truncated at %d bytes, need %d", len(buf), MetablockSize)
	}
	entryCount := binary.LittleEndian.Uint64(buf[0:8])
	extentCount := binary.LittleEndian.Uint32(buf[8:12])
	if extentCount > MaxExtents {
		return errors.Newf("lbalog: corrupt metablock: %d extents exceeds the maximum %d", extentCount, MaxExtents)
	}
	extents := make([]int64, extentCount)
	for i := range extents {
		extents[i] = int64(binary.LittleEndian.Uint64(buf[16+8*i : 24+8*i]))
		if extents[i] < 0 {
			return errors.Newf("lbalog: corrupt metablock: negative extent offset %d", extents[i])
		}
	}
	mb.EntryCount = entryCount
	mb.Extents = extents
	return nil
}
