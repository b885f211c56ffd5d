// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package tick provides the millisecond tick counter used for polling
// deadlines.
package tick

import (
	"time"
)

// Source represents a monotonically increasing tick counter, one tick
// corresponds to one millisecond.
type Source interface {
	Ticks() uint64
}

// Deadline returns the tick at which a budget, starting now, expires.
func Deadline(src Source, budget uint64) uint64 {
	return src.Ticks() + budget
}

// Expired returns whether the deadline has been reached.
func Expired(src Source, deadline uint64) bool {
	return src.Ticks() >= deadline
}

// Monotonic is a Source backed by the runtime monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic returns a Source counting milliseconds from now.
func NewMonotonic() *Monotonic {
	return &Monotonic{
		start: time.Now(),
	}
}

// Ticks returns the number of milliseconds elapsed since creation.
func (m *Monotonic) Ticks() uint64 {
	return uint64(time.Since(m.start) / time.Millisecond)
}

// Func adapts a function to the Source interface.
type Func func() uint64

// Ticks calls f().
func (f Func) Ticks() uint64 {
	return f()
}
