// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sim emulates the DMA engines, the clock controller and an SD card
// behind an SDMMC controller on in-memory register blocks, for host side
// testing of the driver.
package sim

import (
	"sync"

	"github.com/f-secure-foundry/armory-sdmmc/internal/rcc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
)

// RCC emulates the clock controller, enable bits become visible after Delay
// reads of the enable register.
type RCC struct {
	*reg.Memory

	mu      sync.Mutex
	delay   int
	pending uint32
}

// NewRCC returns a clock controller whose enable readback lags by delay
// reads.
func NewRCC(delay int) *RCC {
	r := &RCC{
		Memory: reg.NewMemory(),
		delay:  delay,
	}

	r.OnWrite = func(_ reg.Bank, off uint32, old uint32, val uint32) uint32 {
		if off == rcc.RCC_AHB1ENR {
			r.mu.Lock()
			r.pending = val &^ old
			r.mu.Unlock()
		}

		return val
	}

	r.OnRead = func(_ reg.Bank, off uint32, val uint32) uint32 {
		r.mu.Lock()
		defer r.mu.Unlock()

		if off != rcc.RCC_AHB1ENR || r.pending == 0 {
			return val
		}

		if r.delay > 0 {
			r.delay--
			return val &^ r.pending
		}

		r.pending = 0

		return val
	}

	return r
}
