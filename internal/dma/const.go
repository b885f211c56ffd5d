// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"fmt"
)

// FIFO depth in words
const FIFO_SIZE = 16

// Stream identifies one of the eight streams of a DMA engine.
type Stream uint8

const (
	S0 Stream = iota
	S1
	S2
	S3
	S4
	S5
	S6
	S7
)

func (s Stream) String() string {
	return fmt.Sprintf("S%d", uint8(s))
}

// Channel represents the request channel selection (SxCR.CHSEL).
type Channel uint8

const (
	C0 Channel = 0b000
	C1 Channel = 0b001
	C2 Channel = 0b010
	C3 Channel = 0b011
	C4 Channel = 0b100
	C5 Channel = 0b101
	C6 Channel = 0b110
	C7 Channel = 0b111
)

func (c Channel) String() string {
	return fmt.Sprintf("C%d", uint8(c))
}

// BurstMode represents the number of beats of a burst transfer
// (SxCR.MBURST, SxCR.PBURST).
type BurstMode uint8

const (
	SingleTransfer BurstMode = 0b00
	Incremental4   BurstMode = 0b01
	Incremental8   BurstMode = 0b10
	Incremental16  BurstMode = 0b11
)

// Beats returns the number of transfers issued by a single burst.
func (b BurstMode) Beats() uint32 {
	if b == SingleTransfer {
		return 1
	}

	return 1 << (uint32(b) + 1)
}

func (b BurstMode) String() string {
	switch b {
	case SingleTransfer:
		return "single"
	case Incremental4:
		return "INCR4"
	case Incremental8:
		return "INCR8"
	case Incremental16:
		return "INCR16"
	}

	return fmt.Sprintf("BurstMode(%d)", uint8(b))
}

// MemoryIndex selects the memory address register (SxM0AR, SxM1AR).
type MemoryIndex uint8

const (
	M0 MemoryIndex = 0
	M1 MemoryIndex = 1
)

// Priority represents the stream priority level (SxCR.PL).
type Priority uint8

const (
	Low      Priority = 0b00
	Medium   Priority = 0b01
	High     Priority = 0b10
	VeryHigh Priority = 0b11
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	case VeryHigh:
		return "very high"
	}

	return fmt.Sprintf("Priority(%d)", uint8(p))
}

// PeripheralIncrementOffset selects the peripheral address increment
// (SxCR.PINCOS).
type PeripheralIncrementOffset uint8

const (
	UsePSize   PeripheralIncrementOffset = 0
	Force32Bit PeripheralIncrementOffset = 1
)

// Width represents the data size of a single transaction (SxCR.MSIZE,
// SxCR.PSIZE).
type Width uint8

const (
	Byte     Width = 0b00
	HalfWord Width = 0b01
	Word     Width = 0b10
)

// Size returns the transaction width in bytes.
func (w Width) Size() uint32 {
	return 1 << uint32(w)
}

func (w Width) String() string {
	switch w {
	case Byte:
		return "byte"
	case HalfWord:
		return "half-word"
	case Word:
		return "word"
	}

	return fmt.Sprintf("Width(%d)", uint8(w))
}

// IncrementMode represents address increment after each transaction
// (SxCR.MINC, SxCR.PINC).
type IncrementMode uint8

const (
	Fixed     IncrementMode = 0
	Increment IncrementMode = 1
)

type CircularMode uint8

const (
	CircularDisable CircularMode = 0
	CircularEnable  CircularMode = 1
)

// DoubleBuffer represents the double buffer mode (SxCR.DBM), a non-zero
// value is the address of the second memory buffer (SxM1AR).
type DoubleBuffer uintptr

// DoubleBufferDisable disables double buffer mode.
const DoubleBufferDisable DoubleBuffer = 0

// UseSecondBuffer enables double buffer mode with the given second
// buffer address.
func UseSecondBuffer(addr uintptr) DoubleBuffer {
	return DoubleBuffer(addr)
}

// Direction represents the data transfer direction (SxCR.DIR).
type Direction uint8

const (
	PeripheralToMemory Direction = 0b00
	MemoryToPeripheral Direction = 0b01
	MemoryToMemory     Direction = 0b10
)

func (d Direction) String() string {
	switch d {
	case PeripheralToMemory:
		return "peripheral-to-memory"
	case MemoryToPeripheral:
		return "memory-to-peripheral"
	case MemoryToMemory:
		return "memory-to-memory"
	}

	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// FlowController selects the flow controller (SxCR.PFCTRL).
type FlowController uint8

const (
	FlowDMA        FlowController = 0
	FlowPeripheral FlowController = 1
)

type InterruptControl uint8

const (
	InterruptDisable InterruptControl = 0
	InterruptEnable  InterruptControl = 1
)

type InterruptState uint8

const (
	NotRaised InterruptState = 0
	Raised    InterruptState = 1
)

type StreamControl uint8

const (
	StreamDisable StreamControl = 0
	StreamEnable  StreamControl = 1
)

// FifoStatus represents the FIFO fill level (SxFCR.FS).
type FifoStatus uint8

const (
	FirstQuarter  FifoStatus = 0b000 // 0 < level < 1/4
	SecondQuarter FifoStatus = 0b001 // 1/4 <= level < 1/2
	ThirdQuarter  FifoStatus = 0b010 // 1/2 <= level < 3/4
	FourthQuarter FifoStatus = 0b011 // 3/4 <= level < full
	FifoEmpty     FifoStatus = 0b100
	FifoFull      FifoStatus = 0b101
)

func (f FifoStatus) String() string {
	switch f {
	case FirstQuarter:
		return "<1/4"
	case SecondQuarter:
		return "<1/2"
	case ThirdQuarter:
		return "<3/4"
	case FourthQuarter:
		return "<full"
	case FifoEmpty:
		return "empty"
	case FifoFull:
		return "full"
	}

	return fmt.Sprintf("FifoStatus(%d)", uint8(f))
}

// DirectMode represents the FIFO bypass, note that the hardware bit
// (SxFCR.DMDIS) is inverted.
type DirectMode uint8

const (
	DirectEnable  DirectMode = 0
	DirectDisable DirectMode = 1
)

// FifoThreshold represents the FIFO fill level triggering a burst
// (SxFCR.FTH).
type FifoThreshold uint8

const (
	Quarter      FifoThreshold = 0b00
	Half         FifoThreshold = 0b01
	ThreeQuarter FifoThreshold = 0b10
	Full         FifoThreshold = 0b11
)

func (f FifoThreshold) String() string {
	if f > Full {
		return fmt.Sprintf("FifoThreshold(%d)", uint8(f))
	}

	return fmt.Sprintf("%d/4", f.Numerator())
}

// Numerator returns the threshold as a multiple of a quarter FIFO.
func (f FifoThreshold) Numerator() uint32 {
	return uint32(f) + 1
}

// Denominator returns 4, all thresholds are expressed in quarters.
func (f FifoThreshold) Denominator() uint32 {
	return 4
}
