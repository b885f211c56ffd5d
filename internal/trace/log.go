// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package trace

import (
	"fmt"
	"sync"

	"github.com/rcrowley/go-metrics"
	"google.golang.org/protobuf/encoding/protowire"
)

// Log is a bounded in-memory Recorder, once full the oldest events are
// overwritten.
//
// Every recorded event also increments the counter
// <kind>.<ok|error> in the metrics registry.
type Log struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool

	registry metrics.Registry
}

// NewLog returns a Log holding at most size events, a nil registry selects
// metrics.DefaultRegistry.
func NewLog(size int, registry metrics.Registry) *Log {
	if size <= 0 {
		size = 1
	}

	if registry == nil {
		registry = metrics.DefaultRegistry
	}

	return &Log{
		events:   make([]Event, size),
		registry: registry,
	}
}

func counterName(e Event) string {
	if e.Outcome == 0 {
		return fmt.Sprintf("%s.ok", e.Kind)
	}

	return fmt.Sprintf("%s.error", e.Kind)
}

// Record stores an event.
func (l *Log) Record(e Event) {
	metrics.GetOrRegisterCounter(counterName(e), l.registry).Inc(1)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.events[l.next] = e
	l.next = (l.next + 1) % len(l.events)

	if l.next == 0 {
		l.full = true
	}
}

// Events returns the recorded events, oldest first.
func (l *Log) Events() (events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.full {
		events = append(events, l.events[l.next:]...)
	}

	return append(events, l.events[:l.next]...)
}

// Bytes returns the recorded events as a stream of length delimited
// messages.
func (l *Log) Bytes() (buf []byte) {
	for _, e := range l.Events() {
		buf = protowire.AppendBytes(buf, e.Marshal(nil))
	}

	return
}

// Parse decodes a stream of length delimited events, as returned by Bytes.
func Parse(buf []byte) (events []Event, err error) {
	for len(buf) > 0 {
		msg, n := protowire.ConsumeBytes(buf)

		if n < 0 {
			return nil, fmt.Errorf("invalid event length, %w", protowire.ParseError(n))
		}

		buf = buf[n:]

		var e Event

		if err = e.Unmarshal(msg); err != nil {
			return nil, err
		}

		events = append(events, e)
	}

	return
}
