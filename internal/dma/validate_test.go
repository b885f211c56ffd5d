// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
)

const (
	periphAddr = 0x40011004
	memAddr    = 0x20010000
)

// word sized peripheral to memory transfer, valid as returned
func receive(count uint16) *dma.Transfer {
	peripheral := dma.Node{
		Address:   periphAddr,
		Burst:     dma.SingleTransfer,
		Increment: dma.Fixed,
		Width:     dma.Word,
	}

	memory := dma.Node{
		Address:   memAddr,
		Burst:     dma.SingleTransfer,
		Increment: dma.Increment,
		Width:     dma.Word,
	}

	return dma.NewTransfer(nil, dma.S1, dma.C4, dma.PeripheralToMemory, peripheral, memory, count)
}

// byte sized memory to memory transfer
func copyBytes(count uint16) *dma.Transfer {
	node := dma.Node{
		Address:   memAddr,
		Burst:     dma.SingleTransfer,
		Increment: dma.Increment,
		Width:     dma.Byte,
	}

	dst := node
	dst.Address += 0x1000

	return dma.NewTransfer(nil, dma.S0, dma.C0, dma.MemoryToMemory, node, dst, count)
}

func assertKind(t *testing.T, kind dma.Kind, err error) {
	t.Helper()

	var e *dma.Error

	require.Error(t, err)
	require.True(t, errors.As(err, &e), "unexpected error type %T", err)
	assert.Equal(t, kind, e.Kind, err.Error())
}

func TestDefaults(t *testing.T) {
	tr := receive(16)

	assert.Equal(t, dma.Medium, tr.Priority)
	assert.Equal(t, dma.CircularDisable, tr.CircularMode)
	assert.Equal(t, dma.DoubleBufferDisable, tr.DoubleBuffer)
	assert.Equal(t, dma.FlowDMA, tr.FlowController)
	assert.Equal(t, dma.UsePSize, tr.PeripheralIncrementOffset)
	assert.Equal(t, dma.Full, tr.FifoThreshold)
	assert.Equal(t, dma.InterruptEnable, tr.TransferCompleteInterrupt)
	assert.Equal(t, dma.InterruptDisable, tr.HalfTransferInterrupt)
	assert.Equal(t, dma.InterruptEnable, tr.TransferErrorInterrupt)
	assert.Equal(t, dma.InterruptEnable, tr.DirectModeErrorInterrupt)
	assert.Equal(t, dma.InterruptEnable, tr.FifoErrorInterrupt)

	// 16 words fill the FIFO
	assert.Equal(t, dma.DirectDisable, tr.DirectMode())
	// 3 words do not
	assert.Equal(t, dma.DirectEnable, receive(3).DirectMode())
	// 16 bytes do
	assert.Equal(t, dma.DirectDisable, copyBytes(16).DirectMode())
	assert.Equal(t, dma.DirectEnable, copyBytes(15).DirectMode())
}

func TestValidate(t *testing.T) {
	for _, count := range []uint16{4, 16, 64, 256} {
		assert.NoError(t, receive(count).Validate(), "count %d", count)
	}

	tr := receive(64)
	tr.Memory.Burst = dma.Incremental4
	assert.NoError(t, tr.Validate())

	tr = copyBytes(64)
	assert.NoError(t, tr.Validate())

	tr = receive(16)
	tr.CircularMode = dma.CircularEnable
	tr.DoubleBuffer = dma.UseSecondBuffer(memAddr + 0x200)
	assert.NoError(t, tr.Validate())
}

func TestValidatePeripheralCountFactor(t *testing.T) {
	// the peripheral factor is the peripheral burst size in bytes
	tr := receive(6)

	err := tr.Validate()
	assertKind(t, dma.TransactionCountNotAMultipleOf, err)
	assert.Equal(t, uint16(4), err.(*dma.Error).Factor)
	assert.True(t, errors.Is(err, dma.ErrTransactionCount))

	tr.Count = 8
	assert.NoError(t, tr.Validate())
}

func TestValidateMemoryCountFactor(t *testing.T) {
	tr := receive(64)
	tr.Peripheral.Width = dma.Byte
	tr.Memory.Burst = dma.Incremental4

	assert.NoError(t, tr.Validate())

	// 16 byte memory burst over 1 byte peripheral transactions
	tr.Count = 20
	err := tr.Validate()
	assertKind(t, dma.TransactionCountNotAMultipleOf, err)
	assert.Equal(t, uint16(16), err.(*dma.Error).Factor)
	assert.EqualError(t, err, "dma: transaction count not a multiple of 16")

	// memory burst smaller than a peripheral transaction
	tr = receive(16)
	tr.Memory.Width = dma.Byte
	err = tr.Validate()
	assertKind(t, dma.TransactionCountNotAMultipleOf, err)
	assert.Equal(t, uint16(0), err.(*dma.Error).Factor)
}

func TestValidateAlignment(t *testing.T) {
	tr := receive(16)

	tr.Peripheral.Address++
	assertKind(t, dma.UnalignedPeripheralAddress, tr.Validate())
	tr.Peripheral.Address--
	assert.NoError(t, tr.Validate())

	tr.Memory.Address++
	assertKind(t, dma.UnalignedMemoryAddress, tr.Validate())
	tr.Memory.Address--
	assert.NoError(t, tr.Validate())

	// peripheral is checked first
	tr.Peripheral.Address += 2
	tr.Memory.Address += 2
	assertKind(t, dma.UnalignedPeripheralAddress, tr.Validate())

	tr = receive(16)
	tr.Peripheral.Width = dma.HalfWord
	tr.Peripheral.Address = periphAddr + 2
	assert.NoError(t, tr.Validate())
	tr.Peripheral.Address++
	assertKind(t, dma.UnalignedPeripheralAddress, tr.Validate())
}

func TestValidateMemoryToMemoryCircular(t *testing.T) {
	for _, count := range []uint16{4, 64} {
		tr := copyBytes(count)
		tr.CircularMode = dma.CircularEnable
		assertKind(t, dma.MemoryToMemoryWithCircularMode, tr.Validate())

		tr = copyBytes(count)
		tr.DoubleBuffer = dma.UseSecondBuffer(memAddr + 0x2000)
		assertKind(t, dma.MemoryToMemoryWithCircularMode, tr.Validate())

		tr.FifoThreshold = dma.Quarter
		tr.Priority = dma.VeryHigh
		assertKind(t, dma.MemoryToMemoryWithCircularMode, tr.Validate())
	}
}

func TestValidateMemoryToMemoryDirect(t *testing.T) {
	tr := copyBytes(4)
	require.Equal(t, dma.DirectEnable, tr.DirectMode())
	assertKind(t, dma.MemoryToMemoryWithDirectMode, tr.Validate())

	tr.Direction = dma.MemoryToPeripheral
	assert.NoError(t, tr.Validate())
}

func TestValidateMemoryBoundary(t *testing.T) {
	tr := receive(16)
	tr.Memory.Burst = dma.Incremental4

	// 16 byte bursts starting 4 bytes before the boundary
	tr.Memory.Address = 1020
	err := tr.Validate()
	assertKind(t, dma.MemoryCrossesKilobyteBoundary, err)
	assert.True(t, errors.Is(err, dma.ErrMemoryCrossesBoundary))

	tr.Memory.Address = 1024
	assert.NoError(t, tr.Validate())

	// bursts end on the boundary
	tr.Memory.Address = 1024 - 64
	assert.NoError(t, tr.Validate())

	// all data fits before the boundary
	tr = receive(4)
	tr.Memory.Burst = dma.Incremental4
	tr.Memory.Address = 1024 - 16
	assert.NoError(t, tr.Validate())
}

func TestValidatePeripheralBoundary(t *testing.T) {
	tr := receive(16)
	tr.Peripheral.Burst = dma.Incremental4
	tr.Peripheral.Increment = dma.Increment

	tr.Peripheral.Address = 0x40011000 + 1020
	assertKind(t, dma.PeripheralCrossesKilobyteBoundary, tr.Validate())

	tr.Peripheral.Address = 0x40011000 + 1024
	assert.NoError(t, tr.Validate())

	// a fixed peripheral address touches a single transaction
	tr.Peripheral.Address = 0x40011000 + 1020
	tr.Peripheral.Increment = dma.Fixed
	assert.NoError(t, tr.Validate())
}

func TestValidateFifoThreshold(t *testing.T) {
	tr := receive(16)
	tr.Memory.Burst = dma.Incremental4

	for threshold, valid := range map[dma.FifoThreshold]bool{
		dma.Quarter:      false,
		dma.Half:         false,
		dma.ThreeQuarter: false,
		dma.Full:         true,
	} {
		tr.FifoThreshold = threshold

		if valid {
			assert.NoError(t, tr.Validate(), "threshold %d", threshold)
		} else {
			assertKind(t, dma.InvalidFifoThresholdMemoryBurst, tr.Validate())
		}
	}

	// single word bursts fit any threshold
	tr = receive(16)

	for _, threshold := range []dma.FifoThreshold{dma.Quarter, dma.Half, dma.ThreeQuarter, dma.Full} {
		tr.FifoThreshold = threshold
		assert.NoError(t, tr.Validate(), "threshold %d", threshold)
	}
}
