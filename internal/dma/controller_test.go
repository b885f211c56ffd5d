// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
)

func TestConfigure(t *testing.T) {
	m := reg.NewMemory()
	c := &Controller{Registers: m}

	peripheral := Node{Address: 0x40011004, Width: Word}
	memory := Node{Address: 0x20010000, Increment: Increment, Width: Word}

	tr := NewTransfer(nil, S1, C4, PeripheralToMemory, peripheral, memory, 16)
	tr.configure(c)

	base := DMA_SxBASE(S1)

	// CHSEL=4 PL=medium MSIZE=word PSIZE=word MINC TCIE TEIE DMEIE
	assert.Equal(t, uint32(0x08015416), m.Peek(base+DMA_SxCR))
	// FEIE DMDIS FTH=full
	assert.Equal(t, uint32(0x87), m.Peek(base+DMA_SxFCR))
	assert.Equal(t, uint32(16), m.Peek(base+DMA_SxNDTR))
	assert.Equal(t, uint32(0x40011004), m.Peek(base+DMA_SxPAR))
	assert.Equal(t, uint32(0x20010000), m.Peek(base+DMA_SxM0AR))
	assert.Zero(t, m.Peek(base+DMA_SxM1AR))

	// all flags of S1 cleared, last write wins on the clear register
	assert.Equal(t, uint32(1<<(6+DMEIF)), m.Peek(DMA_LIFCR))

	assert.Equal(t, StreamDisable, c.Enabled(S1))
	c.SetEnable(S1, StreamEnable)
	assert.Equal(t, uint32(0x08015417), m.Peek(base+DMA_SxCR))
}

func TestDoubleBuffer(t *testing.T) {
	m := reg.NewMemory()
	c := &Controller{Registers: m}

	base := DMA_SxBASE(S7)

	c.SetDoubleBuffer(S7, UseSecondBuffer(0x20020000))
	assert.Equal(t, uint32(1<<SxCR_DBM), m.Peek(base+DMA_SxCR))
	assert.Equal(t, uint32(0x20020000), m.Peek(base+DMA_SxM1AR))

	c.SetDoubleBuffer(S7, DoubleBufferDisable)
	assert.Zero(t, m.Peek(base+DMA_SxCR))
}

func TestFlags(t *testing.T) {
	m := reg.NewMemory()
	c := &Controller{Registers: m}

	// S5 TCIF, S2 TEIF
	m.Poke(DMA_HISR, 1<<(6+TCIF))
	m.Poke(DMA_LISR, 1<<(16+TEIF))

	assert.Equal(t, Raised, c.TCIF(S5))
	assert.Equal(t, NotRaised, c.TCIF(S4))
	assert.Equal(t, NotRaised, c.TCIF(S1))
	assert.Equal(t, Raised, c.TEIF(S2))
	assert.Equal(t, NotRaised, c.TEIF(S6))

	c.ClearTCIF(S5)
	assert.Equal(t, uint32(1<<(6+TCIF)), m.Peek(DMA_HIFCR))

	c.ClearFEIF(S7)
	assert.Equal(t, uint32(1<<(22+FEIF)), m.Peek(DMA_HIFCR))
}

func TestRemaining(t *testing.T) {
	m := reg.NewMemory()
	c := &Controller{Registers: m}

	c.SetCount(S3, 0xffff)
	assert.Equal(t, uint16(0xffff), c.Remaining(S3))

	m.Poke(DMA_SxBASE(S3)+DMA_SxFCR, uint32(FifoFull)<<SxFCR_FS)
	assert.Equal(t, FifoFull, c.FifoStatus(S3))
}
