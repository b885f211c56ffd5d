// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldAccess(t *testing.T) {
	m := NewMemory()

	SetN(m, 0x10, 6, 0b11, 0b10)
	assert.Equal(t, uint32(0b10<<6), m.Peek(0x10))
	assert.Equal(t, uint32(0b10), Get(m, 0x10, 6, 0b11))

	// neighbouring fields are preserved
	Set(m, 0x10, 0)
	SetN(m, 0x10, 6, 0b11, 0b01)
	assert.Equal(t, uint32(0b01<<6|1), m.Peek(0x10))

	assert.True(t, IsSet(m, 0x10, 0))
	Clear(m, 0x10, 0)
	assert.False(t, IsSet(m, 0x10, 0))

	SetTo(m, 0x14, 31, true)
	assert.Equal(t, uint32(0x80000000), m.Peek(0x14))
	SetTo(m, 0x14, 31, false)
	assert.Equal(t, uint32(0), m.Peek(0x14))
}

func TestWrite1C(t *testing.T) {
	m := NewMemory()
	m.Poke(0x08, 0xffffffff)

	Write1C(m, 0x08, 5)
	assert.Equal(t, uint32(1<<5), m.Peek(0x08))
}

func TestMemoryHooks(t *testing.T) {
	m := NewMemory()

	m.OnWrite = func(bank Bank, off uint32, old uint32, val uint32) uint32 {
		if off == 0x00 {
			// mirror writes into a status register
			bank[0x04] = val
		}
		return val | 0x100
	}

	m.OnRead = func(bank Bank, off uint32, val uint32) uint32 {
		if off == 0x08 {
			return 0xcafe
		}
		return val
	}

	m.Write(0x00, 0x1)
	assert.Equal(t, uint32(0x101), m.Read(0x00))
	assert.Equal(t, uint32(0x1), m.Read(0x04))
	assert.Equal(t, uint32(0xcafe), m.Read(0x08))
	assert.Equal(t, uint32(0), m.Peek(0x08))

	m.Update(0x04, func(v uint32) uint32 { return v << 4 })
	assert.Equal(t, uint32(0x10), m.Peek(0x04))
}
