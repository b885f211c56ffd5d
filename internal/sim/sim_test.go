// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
	"github.com/f-secure-foundry/armory-sdmmc/internal/rcc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
)

func TestRCCDelay(t *testing.T) {
	hw := &rcc.RCC{Registers: NewRCC(2)}

	hw.EnableDMA(1)

	assert.False(t, hw.DMAEnabled(1))
	assert.False(t, hw.DMAEnabled(1))
	assert.True(t, hw.DMAEnabled(1))
	assert.True(t, hw.DMAEnabled(1))
}

func TestDMAFlags(t *testing.T) {
	d := NewDMA()
	cr := dma.DMA_SxBASE(dma.S6) + dma.DMA_SxCR

	d.Write(cr, 1<<dma.SxCR_EN)

	assert.False(t, d.Enabled(dma.S6))
	assert.Equal(t, uint32(1<<(16+dma.TCIF)), d.Peek(dma.DMA_HISR))

	// status registers are read only
	d.Write(dma.DMA_HISR, 0)
	assert.Equal(t, uint32(1<<(16+dma.TCIF)), d.Peek(dma.DMA_HISR))

	d.Write(dma.DMA_HIFCR, 1<<(16+dma.TCIF))
	assert.Zero(t, d.Peek(dma.DMA_HISR))
	assert.Zero(t, d.Peek(dma.DMA_HIFCR))

	assert.Equal(t, 3, d.Writes())
}

func TestDMAHold(t *testing.T) {
	d := NewDMA()
	cr := dma.DMA_SxBASE(dma.S2) + dma.DMA_SxCR

	d.Hold(dma.S2)
	d.Write(cr, 1<<dma.SxCR_EN)

	assert.True(t, d.Enabled(dma.S2))
	assert.Zero(t, d.Peek(dma.DMA_LISR))

	d.Abort(dma.S2)

	assert.False(t, d.Enabled(dma.S2))
	assert.Equal(t, uint32(1<<(16+dma.TEIF)), d.Peek(dma.DMA_LISR))

	// the hold applies to a single activation
	d.Write(cr, 1<<dma.SxCR_EN)
	assert.False(t, d.Enabled(dma.S2))
}

func TestCardReset(t *testing.T) {
	c := NewCard()

	c.Write(sdmmc.SDMMC_ARG, 0)
	c.Write(sdmmc.SDMMC_CMD, 1<<sdmmc.CMD_CPSMEN)

	assert.Equal(t, uint32(1<<sdmmc.STA_CMDSENT), c.Peek(sdmmc.SDMMC_STA))

	c.Write(sdmmc.SDMMC_ICR, sdmmc.STATIC_FLAGS)
	assert.Zero(t, c.Peek(sdmmc.SDMMC_STA))

	// no response to unsupported commands
	c.Write(sdmmc.SDMMC_CMD, 1<<sdmmc.CMD_CPSMEN|uint32(sdmmc.ShortResponse)<<sdmmc.CMD_WAITRESP|17)
	assert.Equal(t, uint32(1<<sdmmc.STA_CTIMEOUT), c.Peek(sdmmc.SDMMC_STA))

	// no command path state machine
	c.Write(sdmmc.SDMMC_CMD, 0)
	assert.Equal(t, []uint8{0, 17}, c.Commands)
}
