// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package device provides the handle to the backing storage: a flat byte
// space addressed with positioned reads and writes. Production use wraps an
// *os.File; tests use the memory-backed device.
package device

import (
	"io"
	"os"
)

// Device is an open handle to backing storage. It is safe for concurrent
// positioned reads and writes to disjoint regions, matching *os.File.
type Device interface {
	io.ReaderAt
	io.WriterAt
	// Sync makes all completed writes durable.
	Sync() error
	Close() error
}

// Open opens (creating if necessary) the file at path as a Device.
func Open(path string) (Device, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
}
