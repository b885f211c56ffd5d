// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
)

// DMA registers (p255, 8.5 DMA registers, RM0410)
const (
	DMA_LISR  = 0x00
	DMA_HISR  = 0x04
	DMA_LIFCR = 0x08
	DMA_HIFCR = 0x0c

	// stream registers, relative to DMA_SxBASE(x)
	DMA_SxCR   = 0x00
	DMA_SxNDTR = 0x04
	DMA_SxPAR  = 0x08
	DMA_SxM0AR = 0x0c
	DMA_SxM1AR = 0x10
	DMA_SxFCR  = 0x14

	SxCR_EN     = 0
	SxCR_DMEIE  = 1
	SxCR_TEIE   = 2
	SxCR_HTIE   = 3
	SxCR_TCIE   = 4
	SxCR_PFCTRL = 5
	SxCR_DIR    = 6
	SxCR_CIRC   = 8
	SxCR_PINC   = 9
	SxCR_MINC   = 10
	SxCR_PSIZE  = 11
	SxCR_MSIZE  = 13
	SxCR_PINCOS = 15
	SxCR_PL     = 16
	SxCR_DBM    = 18
	SxCR_CT     = 19
	SxCR_PBURST = 21
	SxCR_MBURST = 23
	SxCR_CHSEL  = 25

	SxFCR_FTH   = 0
	SxFCR_DMDIS = 2
	SxFCR_FS    = 3
	SxFCR_FEIE  = 7

	// interrupt flags, relative to the stream flag offset
	FEIF  = 0
	DMEIF = 2
	TEIF  = 3
	HTIF  = 4
	TCIF  = 5
)

// per stream flag offset within LISR/HISR (and LIFCR/HIFCR)
var flagOffset = [4]int{0, 6, 16, 22}

// DMA_SxBASE returns the offset of the register set of a stream.
func DMA_SxBASE(s Stream) uint32 {
	return 0x10 + 0x18*uint32(s)
}

// Controller translates typed stream configuration values into register
// accesses for a single DMA engine.
type Controller struct {
	Registers reg.Registers
}

func (c *Controller) cr(s Stream) uint32 {
	return DMA_SxBASE(s) + DMA_SxCR
}

func (c *Controller) fcr(s Stream) uint32 {
	return DMA_SxBASE(s) + DMA_SxFCR
}

// flag returns the status and clear register offsets and bit position of
// an interrupt flag.
func (c *Controller) flag(s Stream, f int) (isr uint32, ifcr uint32, pos int) {
	if s < S4 {
		return DMA_LISR, DMA_LIFCR, flagOffset[s] + f
	}

	return DMA_HISR, DMA_HIFCR, flagOffset[s-S4] + f
}

func (c *Controller) raised(s Stream, f int) InterruptState {
	isr, _, pos := c.flag(s, f)
	return InterruptState(reg.Get(c.Registers, isr, pos, 1))
}

func (c *Controller) clear(s Stream, f int) {
	_, ifcr, pos := c.flag(s, f)
	reg.Write1C(c.Registers, ifcr, pos)
}

func (c *Controller) HTIF(s Stream) InterruptState  { return c.raised(s, HTIF) }
func (c *Controller) TCIF(s Stream) InterruptState  { return c.raised(s, TCIF) }
func (c *Controller) TEIF(s Stream) InterruptState  { return c.raised(s, TEIF) }
func (c *Controller) FEIF(s Stream) InterruptState  { return c.raised(s, FEIF) }
func (c *Controller) DMEIF(s Stream) InterruptState { return c.raised(s, DMEIF) }

func (c *Controller) ClearHTIF(s Stream)  { c.clear(s, HTIF) }
func (c *Controller) ClearTCIF(s Stream)  { c.clear(s, TCIF) }
func (c *Controller) ClearTEIF(s Stream)  { c.clear(s, TEIF) }
func (c *Controller) ClearFEIF(s Stream)  { c.clear(s, FEIF) }
func (c *Controller) ClearDMEIF(s Stream) { c.clear(s, DMEIF) }

// Enabled returns the stream enable bit, the hardware clears it on transfer
// completion or error.
func (c *Controller) Enabled(s Stream) StreamControl {
	return StreamControl(reg.Get(c.Registers, c.cr(s), SxCR_EN, 1))
}

func (c *Controller) SetEnable(s Stream, ctl StreamControl) {
	reg.SetN(c.Registers, c.cr(s), SxCR_EN, 1, uint32(ctl))
}

func (c *Controller) SetChannel(s Stream, ch Channel) {
	reg.SetN(c.Registers, c.cr(s), SxCR_CHSEL, 0b111, uint32(ch))
}

func (c *Controller) SetPriority(s Stream, p Priority) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PL, 0b11, uint32(p))
}

func (c *Controller) SetDirection(s Stream, d Direction) {
	reg.SetN(c.Registers, c.cr(s), SxCR_DIR, 0b11, uint32(d))
}

func (c *Controller) SetCircularMode(s Stream, m CircularMode) {
	reg.SetN(c.Registers, c.cr(s), SxCR_CIRC, 1, uint32(m))
}

// SetDoubleBuffer sets SxCR.DBM and, when enabled, the second buffer address
// in SxM1AR.
func (c *Controller) SetDoubleBuffer(s Stream, db DoubleBuffer) {
	if db == DoubleBufferDisable {
		reg.Clear(c.Registers, c.cr(s), SxCR_DBM)
		return
	}

	c.SetMemoryAddress(s, M1, uintptr(db))
	reg.Set(c.Registers, c.cr(s), SxCR_DBM)
}

func (c *Controller) SetFlowController(s Stream, f FlowController) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PFCTRL, 1, uint32(f))
}

func (c *Controller) SetPeripheralWidth(s Stream, w Width) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PSIZE, 0b11, uint32(w))
}

func (c *Controller) SetPeripheralIncrement(s Stream, m IncrementMode) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PINC, 1, uint32(m))
}

func (c *Controller) SetPeripheralBurst(s Stream, b BurstMode) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PBURST, 0b11, uint32(b))
}

func (c *Controller) SetPeripheralIncrementOffset(s Stream, o PeripheralIncrementOffset) {
	reg.SetN(c.Registers, c.cr(s), SxCR_PINCOS, 1, uint32(o))
}

func (c *Controller) SetPeripheralAddress(s Stream, addr uintptr) {
	c.Registers.Write(DMA_SxBASE(s)+DMA_SxPAR, uint32(addr))
}

func (c *Controller) SetMemoryWidth(s Stream, w Width) {
	reg.SetN(c.Registers, c.cr(s), SxCR_MSIZE, 0b11, uint32(w))
}

func (c *Controller) SetMemoryIncrement(s Stream, m IncrementMode) {
	reg.SetN(c.Registers, c.cr(s), SxCR_MINC, 1, uint32(m))
}

func (c *Controller) SetMemoryBurst(s Stream, b BurstMode) {
	reg.SetN(c.Registers, c.cr(s), SxCR_MBURST, 0b11, uint32(b))
}

func (c *Controller) SetMemoryAddress(s Stream, m MemoryIndex, addr uintptr) {
	off := uint32(DMA_SxM0AR)

	if m == M1 {
		off = DMA_SxM1AR
	}

	c.Registers.Write(DMA_SxBASE(s)+off, uint32(addr))
}

// SetCount sets the number of data items to transfer (SxNDTR).
func (c *Controller) SetCount(s Stream, n uint16) {
	c.Registers.Write(DMA_SxBASE(s)+DMA_SxNDTR, uint32(n))
}

// Remaining returns the number of data items left to transfer.
func (c *Controller) Remaining(s Stream) uint16 {
	return uint16(c.Registers.Read(DMA_SxBASE(s) + DMA_SxNDTR))
}

func (c *Controller) SetDirectMode(s Stream, m DirectMode) {
	reg.SetN(c.Registers, c.fcr(s), SxFCR_DMDIS, 1, uint32(m))
}

func (c *Controller) SetFifoThreshold(s Stream, f FifoThreshold) {
	reg.SetN(c.Registers, c.fcr(s), SxFCR_FTH, 0b11, uint32(f))
}

func (c *Controller) FifoStatus(s Stream) FifoStatus {
	return FifoStatus(reg.Get(c.Registers, c.fcr(s), SxFCR_FS, 0b111))
}

func (c *Controller) SetTransferCompleteInterrupt(s Stream, i InterruptControl) {
	reg.SetN(c.Registers, c.cr(s), SxCR_TCIE, 1, uint32(i))
}

func (c *Controller) SetHalfTransferInterrupt(s Stream, i InterruptControl) {
	reg.SetN(c.Registers, c.cr(s), SxCR_HTIE, 1, uint32(i))
}

func (c *Controller) SetTransferErrorInterrupt(s Stream, i InterruptControl) {
	reg.SetN(c.Registers, c.cr(s), SxCR_TEIE, 1, uint32(i))
}

func (c *Controller) SetDirectModeErrorInterrupt(s Stream, i InterruptControl) {
	reg.SetN(c.Registers, c.cr(s), SxCR_DMEIE, 1, uint32(i))
}

func (c *Controller) SetFifoErrorInterrupt(s Stream, i InterruptControl) {
	reg.SetN(c.Registers, c.fcr(s), SxFCR_FEIE, 1, uint32(i))
}
