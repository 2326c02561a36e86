// Copyright 2026 The LBA Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package intentlock provides an asynchronous reader/writer intent lock.
// Acquisition either succeeds immediately or queues the caller, who is
// notified exactly once when the lock becomes available. The lock supports
// an exclusive-to-shared downgrade that is atomic with respect to queued
// exclusive acquirers.
package intentlock

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Intent is the mode a caller acquires the lock with.
type Intent int8

const (
	// Shared may be held by any number of callers concurrently.
	Shared Intent = iota
	// Exclusive may be held by exactly one caller, excluding all others.
	Exclusive
)

// String implements fmt.Stringer.
func (i Intent) String() string {
	switch i {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	}
	return "unknown"
}

type waiter struct {
	intent Intent
	notify func()
}

// Lock is an asynchronous reader/writer intent lock with a FIFO-fair wait
// queue. The zero value is an unlocked Lock.
//
// Grant notifications run on the goroutine calling Release or Downgrade,
// after the lock's internal mutex has been dropped. Callers must therefore
// not invoke Release or Downgrade while holding a mutex that a notified
// waiter may take.
type Lock struct {
	mu      sync.Mutex
	readers int
	writer  bool
	queue   []waiter
}

// Acquire attempts to take the lock with the given intent. On success it
// returns true and the caller holds the lock. Otherwise the caller is queued
// and notify is invoked exactly once when the lock is granted; at that point
// the caller holds the lock. A queued acquisition never overtakes an earlier
// one, regardless of intent.
func (l *Lock) Acquire(intent Intent, notify func()) bool {
	l.mu.Lock()
	// A waiter at the head of the queue has priority over new arrivals;
	// granting around it would starve queued exclusive acquirers.
	if len(l.queue) == 0 && l.compatible(intent) {
		l.grant(intent)
		l.mu.Unlock()
		return true
	}
	if notify == nil {
		l.mu.Unlock()
		panic(errors.AssertionFailedf("intentlock: contended %s acquire without a notify func", intent))
	}
	l.queue = append(l.queue, waiter{intent: intent, notify: notify})
	l.mu.Unlock()
	return false
}

// Release relinquishes one hold with the given intent. Every successful
// acquisition must be paired with exactly one Release (or, for Exclusive,
// one Downgrade followed by a Shared Release). Mismatched intents and
// double releases are contract violations.
func (l *Lock) Release(intent Intent) {
	l.mu.Lock()
	switch intent {
	case Exclusive:
		if !l.writer {
			l.mu.Unlock()
			panic(errors.AssertionFailedf("intentlock: exclusive release without exclusive hold"))
		}
		l.writer = false
	case Shared:
		if l.writer || l.readers == 0 {
			l.mu.Unlock()
			panic(errors.AssertionFailedf("intentlock: shared release without shared hold"))
		}
		l.readers--
	default:
		l.mu.Unlock()
		panic(errors.AssertionFailedf("intentlock: release with unknown intent %d", int(intent)))
	}
	granted := l.promote()
	l.mu.Unlock()
	for _, notify := range granted {
		notify()
	}
}

// Downgrade converts the caller's Exclusive hold into a Shared hold. No
// queued Exclusive acquirer can take the lock in between: the shared hold is
// granted under the same critical section that drops the exclusive one.
// Queued Shared waiters at the head of the queue are admitted alongside.
func (l *Lock) Downgrade() {
	l.mu.Lock()
	if !l.writer {
		l.mu.Unlock()
		panic(errors.AssertionFailedf("intentlock: downgrade without exclusive hold"))
	}
	l.writer = false
	l.readers = 1
	granted := l.promote()
	l.mu.Unlock()
	for _, notify := range granted {
		notify()
	}
}

// compatible reports whether a hold with the given intent can coexist with
// the current holders.
func (l *Lock) compatible(intent Intent) bool {
	if intent == Exclusive {
		return !l.writer && l.readers == 0
	}
	return !l.writer
}

func (l *Lock) grant(intent Intent) {
	if intent == Exclusive {
		l.writer = true
	} else {
		l.readers++
	}
}

// promote grants queued waiters from the head of the queue, stopping at the
// first waiter whose intent conflicts with the holders admitted so far. It
// returns the notify funcs to run once l.mu is dropped.
func (l *Lock) promote() []func() {
	var granted []func()
	for len(l.queue) > 0 {
		w := l.queue[0]
		if !l.compatible(w.intent) {
			break
		}
		l.grant(w.intent)
		granted = append(granted, w.notify)
		l.queue = l.queue[1:]
	}
	if len(l.queue) == 0 {
		l.queue = nil
	}
	return granted
}
