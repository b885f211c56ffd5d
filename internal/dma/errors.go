// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"fmt"
)

// Kind classifies DMA transfer errors.
type Kind int

const (
	StreamNotReady Kind = iota + 1
	TransactionCountNotAMultipleOf
	UnalignedMemoryAddress
	UnalignedPeripheralAddress
	MemoryToMemoryWithCircularMode
	MemoryToMemoryWithDirectMode
	MemoryCrossesKilobyteBoundary
	PeripheralCrossesKilobyteBoundary
	InvalidFifoThresholdMemoryBurst

	// reported by ExecuteAll only
	StreamBusy
	TransferFailed
)

var kindText = map[Kind]string{
	StreamNotReady:                    "stream not ready",
	TransactionCountNotAMultipleOf:    "transaction count not a multiple of",
	UnalignedMemoryAddress:            "unaligned memory address",
	UnalignedPeripheralAddress:        "unaligned peripheral address",
	MemoryToMemoryWithCircularMode:    "memory-to-memory transfer incompatible with circular mode",
	MemoryToMemoryWithDirectMode:      "memory-to-memory transfer incompatible with direct mode",
	MemoryCrossesKilobyteBoundary:     "memory access would cross 1KB boundary",
	PeripheralCrossesKilobyteBoundary: "peripheral access would cross 1KB boundary",
	InvalidFifoThresholdMemoryBurst:   "invalid FIFO threshold and memory burst combination",
	StreamBusy:                        "stream used by more than one transfer",
	TransferFailed:                    "transfer error",
}

func (k Kind) String() string {
	if s, ok := kindText[k]; ok {
		return s
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error represents a DMA transfer error, all errors but TransferFailed are
// detected before any register write.
type Error struct {
	Kind Kind

	// Factor is the required transaction count divisor
	// (TransactionCountNotAMultipleOf only).
	Factor uint16

	// Stream is set on errors reported by ExecuteAll.
	Stream Stream
}

func (e *Error) Error() string {
	switch e.Kind {
	case TransactionCountNotAMultipleOf:
		return fmt.Sprintf("dma: %s %d", e.Kind, e.Factor)
	case StreamBusy, TransferFailed:
		return fmt.Sprintf("dma: %s on stream %s", e.Kind, e.Stream)
	default:
		return "dma: " + e.Kind.String()
	}
}

// Is reports whether target is an *Error of the same kind, allowing
// errors.Is comparisons against the sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrStreamNotReady                  = &Error{Kind: StreamNotReady}
	ErrTransactionCount                = &Error{Kind: TransactionCountNotAMultipleOf}
	ErrUnalignedMemoryAddress          = &Error{Kind: UnalignedMemoryAddress}
	ErrUnalignedPeripheralAddress      = &Error{Kind: UnalignedPeripheralAddress}
	ErrMemoryToMemoryCircular          = &Error{Kind: MemoryToMemoryWithCircularMode}
	ErrMemoryToMemoryDirect            = &Error{Kind: MemoryToMemoryWithDirectMode}
	ErrMemoryCrossesBoundary           = &Error{Kind: MemoryCrossesKilobyteBoundary}
	ErrPeripheralCrossesBoundary       = &Error{Kind: PeripheralCrossesKilobyteBoundary}
	ErrInvalidFifoThresholdMemoryBurst = &Error{Kind: InvalidFifoThresholdMemoryBurst}
	ErrStreamBusy                      = &Error{Kind: StreamBusy}
	ErrTransferFailed                  = &Error{Kind: TransferFailed}
)

func countError(factor uint16) error {
	return &Error{Kind: TransactionCountNotAMultipleOf, Factor: factor}
}
