// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package base

import (
	"github.com/cockroachdb/errors"
)

// ErrNotFound means that a get call did not find a mapping for the requested
// block ID. It is returned both for IDs that were never allocated and for
// IDs that were allocated but never assigned an offset.
var ErrNotFound = errors.New("lba: not found")
