// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"fmt"

	"github.com/cockroachdb/redact"
)

// BlockID identifies a logical block. IDs are issued monotonically by the
// addressable index and are never reused within the lifetime of a store.
type BlockID uint64

// String returns a string representation of the block ID.
func (id BlockID) String() string { return fmt.Sprintf("%06d", uint64(id)) }

// SafeFormat implements redact.SafeFormatter.
func (id BlockID) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%06d", redact.SafeUint(id))
}

// Offset is the physical location of a block's data on the backing device,
// or DeletedOffset if the block has been deleted. Real offsets are always
// non-negative; this layer treats them as opaque.
type Offset int64

// DeletedOffset is the tombstone sentinel. A mapping entry carrying this
// value records that the block was deleted; the entry itself is retained so
// that replaying the persisted log reproduces the deletion.
const DeletedOffset Offset = -1

// IsDeleted reports whether o is the tombstone sentinel.
func (o Offset) IsDeleted() bool { return o == DeletedOffset }

// String returns a string representation of the offset.
func (o Offset) String() string {
	if o.IsDeleted() {
		return "deleted"
	}
	return fmt.Sprintf("%d", int64(o))
}

// SafeFormat implements redact.SafeFormatter.
func (o Offset) SafeFormat(w redact.SafePrinter, _ rune) {
	if o.IsDeleted() {
		w.SafeString("deleted")
		return
	}
	w.Printf("%d", redact.SafeInt(o))
}
