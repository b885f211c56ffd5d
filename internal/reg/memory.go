// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync"
)

// Bank holds the stored register values of a Memory block, indexed by
// offset.
type Bank map[uint32]uint32

// WriteHook is invoked on every register write with the previous and the
// written value and returns the value to be stored. Hooks run with the block
// locked and may freely modify other registers of the bank.
type WriteHook func(bank Bank, off uint32, old uint32, val uint32) uint32

// ReadHook is invoked on every register read with the stored value and
// returns the value observed by the reader.
type ReadHook func(bank Bank, off uint32, val uint32) uint32

// Memory is a register block backed by ordinary memory, hooks allow to
// emulate hardware side effects.
type Memory struct {
	OnWrite WriteHook
	OnRead  ReadHook

	mu   sync.Mutex
	bank Bank
}

// NewMemory returns a register block with all registers reset to 0.
func NewMemory() *Memory {
	return &Memory{
		bank: make(Bank),
	}
}

// Read returns the register value at the given offset.
func (m *Memory) Read(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	val := m.bank[off]

	if m.OnRead != nil {
		val = m.OnRead(m.bank, off, val)
	}

	return val
}

// Write stores a register value at the given offset.
func (m *Memory) Write(off uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.OnWrite != nil {
		val = m.OnWrite(m.bank, off, m.bank[off], val)
	}

	m.bank[off] = val
}

// Peek returns the stored register value, bypassing hooks.
func (m *Memory) Peek(off uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.bank[off]
}

// Poke stores a register value, bypassing hooks.
func (m *Memory) Poke(off uint32, val uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bank[off] = val
}

// Update modifies a stored register value under lock, bypassing hooks.
func (m *Memory) Update(off uint32, fn func(uint32) uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bank[off] = fn(m.bank[off])
}
