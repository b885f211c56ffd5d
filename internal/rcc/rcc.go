// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package rcc implements the subset of the STM32 Reset and Clock Control
// (RCC) peripheral required to power up the DMA engines.
package rcc

import (
	"fmt"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
)

// RCC registers (p216, 5.3.10 RCC AHB1 peripheral clock register, RM0410)
const (
	RCC_AHB1ENR = 0x30

	AHB1ENR_DMA1EN = 21
	AHB1ENR_DMA2EN = 22
)

// RCC represents the Reset and Clock Control instance.
type RCC struct {
	Registers reg.Registers
}

func dmaEnableBit(engine int) int {
	switch engine {
	case 1:
		return AHB1ENR_DMA1EN
	case 2:
		return AHB1ENR_DMA2EN
	default:
		panic(fmt.Sprintf("invalid DMA engine %d", engine))
	}
}

// EnableDMA sets the AHB1 clock enable bit of the given DMA engine (1 or 2).
func (hw *RCC) EnableDMA(engine int) {
	reg.Set(hw.Registers, RCC_AHB1ENR, dmaEnableBit(engine))
}

// DMAEnabled returns the clock enable readback of the given DMA engine.
func (hw *RCC) DMAEnabled(engine int) bool {
	return reg.IsSet(hw.Registers, RCC_AHB1ENR, dmaEnableBit(engine))
}
