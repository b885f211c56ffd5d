// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package reg

import (
	"sync/atomic"
	"unsafe"
)

// Mapped represents a memory mapped register block, it must only be used on
// the target where Base points to the peripheral.
type Mapped struct {
	Base uint32
}

func (m *Mapped) addr(off uint32) *uint32 {
	return (*uint32)(unsafe.Pointer(uintptr(m.Base + off)))
}

// Read performs a volatile 32-bit load.
func (m *Mapped) Read(off uint32) uint32 {
	return atomic.LoadUint32(m.addr(off))
}

// Write performs a volatile 32-bit store.
func (m *Mapped) Write(off uint32, val uint32) {
	atomic.StoreUint32(m.addr(off), val)
}
