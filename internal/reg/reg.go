// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package reg provides read/update access to named fields of 32-bit
// peripheral registers.
//
// Register blocks are addressed by byte offset from the peripheral base,
// field helpers read the whole register, modify a local copy and write it
// back, as the hardware only supports word accesses.
package reg

import (
	"github.com/f-secure-foundry/tamago/bits"
)

// Registers represents a block of 32-bit peripheral registers.
type Registers interface {
	Read(off uint32) uint32
	Write(off uint32, val uint32)
}

// Get returns the value of the field at the given position and mask.
func Get(r Registers, off uint32, pos int, mask int) uint32 {
	val := r.Read(off)
	return bits.Get(&val, pos, mask)
}

// IsSet returns whether a single bit field is set.
func IsSet(r Registers, off uint32, pos int) bool {
	return Get(r, off, pos, 1) == 1
}

// Set sets a single bit field.
func Set(r Registers, off uint32, pos int) {
	val := r.Read(off)
	bits.Set(&val, pos)
	r.Write(off, val)
}

// Clear clears a single bit field.
func Clear(r Registers, off uint32, pos int) {
	val := r.Read(off)
	bits.Clear(&val, pos)
	r.Write(off, val)
}

// SetTo sets or clears a single bit field.
func SetTo(r Registers, off uint32, pos int, val bool) {
	if val {
		Set(r, off, pos)
	} else {
		Clear(r, off, pos)
	}
}

// SetN updates the field at the given position and mask.
func SetN(r Registers, off uint32, pos int, mask int, val uint32) {
	v := r.Read(off)
	bits.SetN(&v, pos, mask, val)
	r.Write(off, v)
}

// Write1C writes a single set bit, leaving all others cleared, as required
// by write-1-to-clear interrupt registers which must not be read back.
func Write1C(r Registers, off uint32, pos int) {
	var val uint32
	bits.Set(&val, pos)
	r.Write(off, val)
}
