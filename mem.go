// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"

	tdma "github.com/f-secure-foundry/tamago/dma"

	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
)

// SRAM2, reserved to DMA buffers (p76, 2.2.2 Memory map and register
// boundary addresses, RM0410)
var dmaStart uint32 = 0x2007c000

// 16KB
var dmaSize = 0x4000

const (
	SELF_TEST_SIZE   = 256
	SELF_TEST_STREAM = dma.S0
)

func init() {
	tdma.Init(dmaStart, dmaSize)
}

// selfTest copies a pattern between two DMA buffers with a memory-to-memory
// transfer.
func selfTest(m *dma.Manager) (err error) {
	// 1KB aligned buffers never cross a boundary
	srcAddr, src := tdma.Reserve(SELF_TEST_SIZE, 1024)
	defer tdma.Release(srcAddr)

	dstAddr, dst := tdma.Reserve(SELF_TEST_SIZE, 1024)
	defer tdma.Release(dstAddr)

	for i := range src {
		src[i] = byte(i)
		dst[i] = 0
	}

	node := dma.Node{
		Burst:     dma.Incremental4,
		Increment: dma.Increment,
		Width:     dma.Word,
	}

	source := node
	source.Address = uintptr(srcAddr)

	destination := node
	destination.Address = uintptr(dstAddr)

	// memory-to-memory streams use the peripheral port as source
	t := dma.NewTransfer(m, SELF_TEST_STREAM, dma.C0, dma.MemoryToMemory, source, destination, SELF_TEST_SIZE/4)
	t.Priority = dma.High

	ok, err := t.Execute()

	if err != nil {
		return
	}

	if !ok {
		return errors.New("transfer error")
	}

	if !bytes.Equal(src, dst) {
		return errors.New("data mismatch")
	}

	return
}
