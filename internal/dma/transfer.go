// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

// KB_BOUNDARY is the address boundary a burst must never cross.
const KB_BOUNDARY = 1024

// Node represents one endpoint of a transfer.
//
// Address is the raw bus address of the endpoint, the transfer borrows it
// and the caller must guarantee that the memory it refers to outlives the
// armed transfer.
type Node struct {
	Address   uintptr
	Burst     BurstMode
	Increment IncrementMode
	Width     Width
}

// State represents the execution state of a transfer, as observed from the
// stream registers.
type State int

const (
	Idle State = iota
	Armed
	Completed
	Errored
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Completed:
		return "completed"
	case Errored:
		return "errored"
	case Stopped:
		return "stopped"
	}

	return "unknown"
}

// Transfer describes a single memory/peripheral transfer on a DMA stream.
//
// Fields can be adjusted by the caller before Start, a started transfer
// must not be modified or started again until stopped.
type Transfer struct {
	Stream    Stream
	Channel   Channel
	Priority  Priority
	Direction Direction

	CircularMode   CircularMode
	DoubleBuffer   DoubleBuffer
	FlowController FlowController

	PeripheralIncrementOffset PeripheralIncrementOffset

	Peripheral Node
	Memory     Node

	// Count is the number of peripheral transactions (SxNDTR).
	Count uint16

	FifoThreshold FifoThreshold

	TransferCompleteInterrupt InterruptControl
	HalfTransferInterrupt     InterruptControl
	TransferErrorInterrupt    InterruptControl
	DirectModeErrorInterrupt  InterruptControl
	FifoErrorInterrupt        InterruptControl

	dma        *Manager
	directMode DirectMode

	started bool
	stopped bool
}

// NewTransfer returns a transfer with default settings, direct mode (FIFO
// bypass) is selected when the transfer is smaller than the FIFO.
func NewTransfer(m *Manager, stream Stream, channel Channel, direction Direction, peripheral Node, memory Node, count uint16) *Transfer {
	directMode := DirectEnable

	if uint32(count)*peripheral.Width.Size() >= FIFO_SIZE {
		directMode = DirectDisable
	}

	return &Transfer{
		Stream:                    stream,
		Channel:                   channel,
		Priority:                  Medium,
		Direction:                 direction,
		CircularMode:              CircularDisable,
		DoubleBuffer:              DoubleBufferDisable,
		FlowController:            FlowDMA,
		PeripheralIncrementOffset: UsePSize,
		Peripheral:                peripheral,
		Memory:                    memory,
		Count:                     count,
		FifoThreshold:             Full,
		TransferCompleteInterrupt: InterruptEnable,
		HalfTransferInterrupt:     InterruptDisable,
		TransferErrorInterrupt:    InterruptEnable,
		DirectModeErrorInterrupt:  InterruptEnable,
		FifoErrorInterrupt:        InterruptEnable,
		dma:                       m,
		directMode:                directMode,
	}
}

// DirectMode returns the direct mode selected at construction.
func (t *Transfer) DirectMode() DirectMode {
	return t.directMode
}

// bytes touched by an endpoint over the whole transfer
func touched(width uint32, inc IncrementMode, count uint16) uint32 {
	if inc == Increment {
		return width * uint32(count)
	}

	return width
}

// crossesBoundary returns whether a burst of the endpoint can straddle a 1KB
// address boundary (p250, 8.3.11 Single and burst transfers, RM0410).
func crossesBoundary(addr uintptr, size uint32, burst uint32) bool {
	remainder := KB_BOUNDARY - uint32(addr%KB_BOUNDARY)
	return size > remainder && remainder%burst != 0
}

// Validate checks the transfer configuration against the hardware
// constraints and returns the first violated one, or nil. It does not
// access the hardware.
func (t *Transfer) Validate() error {
	circular := t.CircularMode == CircularEnable || t.DoubleBuffer != DoubleBufferDisable

	mwidth := t.Memory.Width.Size()
	pwidth := t.Peripheral.Width.Size()

	if t.PeripheralIncrementOffset == Force32Bit {
		pwidth = 4
	}

	mburst := t.Memory.Burst.Beats() * mwidth
	pburst := t.Peripheral.Burst.Beats() * pwidth

	mfactor := uint16(mburst / pwidth)
	pfactor := uint16(pburst)

	switch {
	case mfactor == 0 || t.Count%mfactor != 0:
		return countError(mfactor)
	case t.Count%pfactor != 0:
		return countError(pfactor)
	case uint32(t.Peripheral.Address)%t.Peripheral.Width.Size() != 0:
		return &Error{Kind: UnalignedPeripheralAddress}
	case uint32(t.Memory.Address)%mwidth != 0:
		return &Error{Kind: UnalignedMemoryAddress}
	case circular && t.Direction == MemoryToMemory:
		return &Error{Kind: MemoryToMemoryWithCircularMode}
	case t.directMode == DirectEnable && t.Direction == MemoryToMemory:
		return &Error{Kind: MemoryToMemoryWithDirectMode}
	case crossesBoundary(t.Memory.Address, touched(mwidth, t.Memory.Increment, t.Count), mburst):
		return &Error{Kind: MemoryCrossesKilobyteBoundary}
	case crossesBoundary(t.Peripheral.Address, touched(pwidth, t.Peripheral.Increment, t.Count), pburst):
		return &Error{Kind: PeripheralCrossesKilobyteBoundary}
	case (t.FifoThreshold.Numerator()*FIFO_SIZE)%(t.FifoThreshold.Denominator()*mburst) != 0:
		return &Error{Kind: InvalidFifoThresholdMemoryBurst}
	}

	return nil
}

func (t *Transfer) active(c *Controller) bool {
	running := c.Enabled(t.Stream) == StreamEnable
	finished := c.TCIF(t.Stream) == Raised
	failed := c.TEIF(t.Stream) == Raised || c.DMEIF(t.Stream) == Raised

	return running && !finished && !failed
}

// IsRunning returns whether the stream is enabled.
func (t *Transfer) IsRunning() (running bool) {
	t.dma.do(func(c *Controller) {
		running = c.Enabled(t.Stream) == StreamEnable
	})

	return
}

// IsFinished returns whether the transfer complete flag is raised.
func (t *Transfer) IsFinished() (finished bool) {
	t.dma.do(func(c *Controller) {
		finished = c.TCIF(t.Stream) == Raised
	})

	return
}

func (t *Transfer) IsTransferError() (raised bool) {
	t.dma.do(func(c *Controller) {
		raised = c.TEIF(t.Stream) == Raised
	})

	return
}

func (t *Transfer) IsDirectModeError() (raised bool) {
	t.dma.do(func(c *Controller) {
		raised = c.DMEIF(t.Stream) == Raised
	})

	return
}

// IsError returns whether either the transfer error or direct mode error
// flag is raised.
func (t *Transfer) IsError() bool {
	return t.IsTransferError() || t.IsDirectModeError()
}

// IsActive returns whether the stream is enabled and has neither finished
// nor failed.
func (t *Transfer) IsActive() (active bool) {
	t.dma.do(func(c *Controller) {
		active = t.active(c)
	})

	return
}

// IsReady returns whether the stream can accept a new transfer.
func (t *Transfer) IsReady() bool {
	return !t.IsActive()
}

// State returns the current execution state.
func (t *Transfer) State() State {
	switch {
	case !t.started:
		return Idle
	case t.stopped:
		return Stopped
	case t.IsActive():
		return Armed
	case t.IsError():
		return Errored
	case t.IsFinished():
		return Completed
	default:
		return Stopped
	}
}

func (t *Transfer) logger() *logrus.Entry {
	return t.dma.log.WithFields(logrus.Fields{
		"engine": t.dma.Engine,
		"stream": t.Stream,
	})
}

// Start validates the transfer, configures the stream and enables it. No
// register is written when validation fails or the stream is not ready.
func (t *Transfer) Start() (err error) {
	if err = t.Validate(); err != nil {
		t.logger().WithError(err).Debug("dma transfer rejected")
		return
	}

	t.dma.do(func(c *Controller) {
		if t.active(c) {
			err = &Error{Kind: StreamNotReady, Stream: t.Stream}
			return
		}

		t.configure(c)
		c.SetEnable(t.Stream, StreamEnable)
	})

	if err != nil {
		t.logger().WithError(err).Debug("dma transfer rejected")
		return
	}

	t.started = true
	t.stopped = false

	return
}

// Stop disables the stream, regardless of its state.
func (t *Transfer) Stop() {
	t.dma.do(func(c *Controller) {
		c.SetEnable(t.Stream, StreamDisable)
	})

	t.stopped = true
}

// Wait spins until the transfer is no longer active and returns whether it
// ended without error.
//
// There is no timeout, a stream which never completes is a hardware fault.
func (t *Transfer) Wait() bool {
	for t.IsActive() {
		runtime.Gosched()
	}

	return !t.IsError()
}

// Execute starts the transfer, waits for its completion and stops the
// stream, which is never left enabled on return.
func (t *Transfer) Execute() (ok bool, err error) {
	if err = t.Start(); err != nil {
		return
	}

	ok = t.Wait()
	t.Stop()

	if !ok {
		t.logger().WithFields(logrus.Fields{
			"transfer_error":    t.IsTransferError(),
			"direct_mode_error": t.IsDirectModeError(),
		}).Warn("dma transfer failed")
	}

	outcome := uint32(0)

	if !ok {
		outcome = 1
	}

	t.dma.record(trace.Event{
		Kind:    trace.Transfer,
		Index:   uint8(t.Stream),
		Arg:     uint32(t.dma.Engine),
		Outcome: outcome,
	})

	return
}

func (t *Transfer) configure(c *Controller) {
	s := t.Stream

	c.ClearHTIF(s)
	c.ClearTCIF(s)
	c.ClearTEIF(s)
	c.ClearFEIF(s)
	c.ClearDMEIF(s)

	c.SetChannel(s, t.Channel)
	c.SetPriority(s, t.Priority)
	c.SetDirection(s, t.Direction)
	c.SetCircularMode(s, t.CircularMode)
	c.SetDoubleBuffer(s, t.DoubleBuffer)
	c.SetFlowController(s, t.FlowController)

	c.SetPeripheralWidth(s, t.Peripheral.Width)
	c.SetPeripheralIncrement(s, t.Peripheral.Increment)
	c.SetPeripheralBurst(s, t.Peripheral.Burst)
	c.SetPeripheralIncrementOffset(s, t.PeripheralIncrementOffset)
	c.SetPeripheralAddress(s, t.Peripheral.Address)

	c.SetMemoryWidth(s, t.Memory.Width)
	c.SetMemoryIncrement(s, t.Memory.Increment)
	c.SetMemoryBurst(s, t.Memory.Burst)
	c.SetMemoryAddress(s, M0, t.Memory.Address)

	c.SetCount(s, t.Count)
	c.SetDirectMode(s, t.directMode)
	c.SetFifoThreshold(s, t.FifoThreshold)

	c.SetTransferCompleteInterrupt(s, t.TransferCompleteInterrupt)
	c.SetHalfTransferInterrupt(s, t.HalfTransferInterrupt)
	c.SetTransferErrorInterrupt(s, t.TransferErrorInterrupt)
	c.SetDirectModeErrorInterrupt(s, t.DirectModeErrorInterrupt)
	c.SetFifoErrorInterrupt(s, t.FifoErrorInterrupt)
}
