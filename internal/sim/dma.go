// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"sync"

	"github.com/f-secure-foundry/tamago/bits"

	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
)

type region struct {
	addr uintptr
	buf  []byte
}

// DMA emulates a DMA engine. Enabling a stream completes it immediately
// unless the stream is held or set to fail, memory-to-memory transfers copy
// data between mapped buffers.
type DMA struct {
	*reg.Memory

	mu      sync.Mutex
	fail    map[dma.Stream]bool
	hold    map[dma.Stream]bool
	regions []region
	writes  int
}

// NewDMA returns an emulated DMA engine.
func NewDMA() *DMA {
	d := &DMA{
		Memory: reg.NewMemory(),
		fail:   make(map[dma.Stream]bool),
		hold:   make(map[dma.Stream]bool),
	}

	d.OnWrite = d.write

	return d
}

// Map registers buf as the memory found at bus address addr.
func (d *DMA) Map(addr uintptr, buf []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.regions = append(d.regions, region{addr, buf})
}

// Fail makes the next activation of stream s raise a transfer error.
func (d *DMA) Fail(s dma.Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fail[s] = true
}

// Hold leaves stream s running on its next activation, until Complete or
// Abort are called.
func (d *DMA) Hold(s dma.Stream) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hold[s] = true
}

// Complete finishes a held transfer.
func (d *DMA) Complete(s dma.Stream) {
	d.finish(s, dma.TCIF)
}

// Abort raises a transfer error on a held transfer.
func (d *DMA) Abort(s dma.Stream) {
	d.finish(s, dma.TEIF)
}

func (d *DMA) finish(s dma.Stream, f int) {
	d.mu.Lock()
	delete(d.hold, s)
	d.mu.Unlock()

	// raise the flag first, a waiter must never observe a disabled stream
	// without its outcome
	isr, pos := flag(s, f)

	d.Update(isr, func(v uint32) uint32 {
		bits.Set(&v, pos)
		return v
	})

	d.Update(dma.DMA_SxBASE(s)+dma.DMA_SxCR, func(cr uint32) uint32 {
		bits.Clear(&cr, dma.SxCR_EN)
		return cr
	})
}

// Writes returns the number of register writes performed so far.
func (d *DMA) Writes() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.writes
}

// Enabled returns the stored stream enable bit.
func (d *DMA) Enabled(s dma.Stream) bool {
	cr := d.Peek(dma.DMA_SxBASE(s) + dma.DMA_SxCR)
	return bits.Get(&cr, dma.SxCR_EN, 1) == 1
}

func flag(s dma.Stream, f int) (isr uint32, pos int) {
	offsets := [4]int{0, 6, 16, 22}

	if s < dma.S4 {
		return dma.DMA_LISR, offsets[s] + f
	}

	return dma.DMA_HISR, offsets[s-dma.S4] + f
}

func (d *DMA) write(bank reg.Bank, off uint32, old uint32, val uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.writes++

	switch off {
	case dma.DMA_LIFCR:
		bank[dma.DMA_LISR] &^= val
		return 0
	case dma.DMA_HIFCR:
		bank[dma.DMA_HISR] &^= val
		return 0
	case dma.DMA_LISR, dma.DMA_HISR:
		// read only
		return old
	}

	if off < dma.DMA_SxBASE(dma.S0) {
		return val
	}

	s := dma.Stream((off - dma.DMA_SxBASE(dma.S0)) / 0x18)

	if off != dma.DMA_SxBASE(s)+dma.DMA_SxCR {
		return val
	}

	enabled := bits.Get(&old, dma.SxCR_EN, 1) == 1

	// software disable ends a held transfer
	if enabled && bits.Get(&val, dma.SxCR_EN, 1) == 0 {
		delete(d.hold, s)
	}

	// only act on stream activation
	if enabled || bits.Get(&val, dma.SxCR_EN, 1) == 0 {
		return val
	}

	if d.hold[s] {
		return val
	}

	bits.Clear(&val, dma.SxCR_EN)

	if d.fail[s] {
		delete(d.fail, s)
		raise(bank, s, dma.TEIF)
		return val
	}

	if dma.Direction(bits.Get(&val, dma.SxCR_DIR, 0b11)) == dma.MemoryToMemory && !d.copy(bank, s, val) {
		raise(bank, s, dma.TEIF)
		return val
	}

	bank[dma.DMA_SxBASE(s)+dma.DMA_SxNDTR] = 0
	raise(bank, s, dma.TCIF)

	return val
}

func raise(bank reg.Bank, s dma.Stream, f int) {
	isr, pos := flag(s, f)
	v := bank[isr]
	bits.Set(&v, pos)
	bank[isr] = v
}

func (d *DMA) lookup(addr uintptr, size int) []byte {
	for _, r := range d.regions {
		if addr >= r.addr && addr+uintptr(size) <= r.addr+uintptr(len(r.buf)) {
			off := int(addr - r.addr)
			return r.buf[off : off+size]
		}
	}

	return nil
}

// copy moves data from the peripheral port (source) to the memory port
// (destination) of a memory-to-memory stream, unmapped addresses result in a
// bus error.
func (d *DMA) copy(bank reg.Bank, s dma.Stream, cr uint32) bool {
	base := dma.DMA_SxBASE(s)
	width := dma.Width(bits.Get(&cr, dma.SxCR_PSIZE, 0b11)).Size()
	size := int(bank[base+dma.DMA_SxNDTR] * width)

	src := d.lookup(uintptr(bank[base+dma.DMA_SxPAR]), size)
	dst := d.lookup(uintptr(bank[base+dma.DMA_SxM0AR]), size)

	if src == nil || dst == nil {
		return false
	}

	copy(dst, src)

	return true
}
