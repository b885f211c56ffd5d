// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sdmmc implements the command path of the STM32 SD/MMC card host
// interface (SDMMC): command dispatch and polled response decoding for the
// SD card bring-up commands.
//
// All waits are polled against a tick source, no interrupts are used.
package sdmmc

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/tamago/bits"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
	"github.com/f-secure-foundry/armory-sdmmc/internal/tick"
	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

// SDMMC registers (p1334, 35.8 SDMMC registers, RM0410)
const (
	SDMMC_POWER   = 0x00
	SDMMC_CLKCR   = 0x04
	SDMMC_ARG     = 0x08
	SDMMC_CMD     = 0x0c
	SDMMC_RESPCMD = 0x10
	SDMMC_RESP1   = 0x14
	SDMMC_RESP2   = 0x18
	SDMMC_RESP3   = 0x1c
	SDMMC_RESP4   = 0x20
	SDMMC_DTIMER  = 0x24
	SDMMC_DLEN    = 0x28
	SDMMC_DCTRL   = 0x2c
	SDMMC_DCOUNT  = 0x30
	SDMMC_STA     = 0x34
	SDMMC_ICR     = 0x38
	SDMMC_MASK    = 0x3c

	CMD_CMDINDEX    = 0
	CMD_WAITRESP    = 6
	CMD_WAITINT     = 8
	CMD_WAITPEND    = 9
	CMD_CPSMEN      = 10
	CMD_SDIOSUSPEND = 11

	RESPCMD_RESPCMD = 0

	// STA flags, ICR clear bits share the same positions
	STA_CCRCFAIL = 0
	STA_DCRCFAIL = 1
	STA_CTIMEOUT = 2
	STA_DTIMEOUT = 3
	STA_TXUNDERR = 4
	STA_RXOVERR  = 5
	STA_CMDREND  = 6
	STA_CMDSENT  = 7
	STA_DATAEND  = 8
	STA_DBCKEND  = 10
	STA_CMDACT   = 11
	STA_SDIOIT   = 22

	// CCRCFAILC | DCRCFAILC | CTIMEOUTC | DTIMEOUTC | TXUNDERRC |
	// RXOVERRC | CMDRENDC | CMDSENTC | DATAENDC | DBCKENDC | SDIOITC
	STATIC_FLAGS = 0x004005ff
)

// WaitResp represents the expected response class (CMD.WAITRESP).
type WaitResp uint32

const (
	NoResponse    WaitResp = 0b00
	ShortResponse WaitResp = 0b01
	NoResponseAlt WaitResp = 0b10
	LongResponse  WaitResp = 0b11
)

// CMD_TIMEOUT is the default response wait budget in ticks.
const CMD_TIMEOUT = 5000

// Handle represents the SDMMC controller instance, it serves a single card
// and is not safe for concurrent use.
type Handle struct {
	// Registers is the SDMMC register block
	Registers reg.Registers

	// Ticks is the tick source for response deadlines
	Ticks tick.Source

	// Timeout is the response wait budget in ticks
	Timeout uint64

	// Recorder optionally receives command and response events
	Recorder trace.Recorder

	log *logrus.Logger
}

// Option configures a Handle.
type Option func(*Handle)

// WithCommandTimeout overrides the default response wait budget.
func WithCommandTimeout(ticks uint64) Option {
	return func(h *Handle) {
		h.Timeout = ticks
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r trace.Recorder) Option {
	return func(h *Handle) {
		h.Recorder = r
	}
}

// NewHandle returns a controller handle, a nil logger disables logging.
func NewHandle(regs reg.Registers, ticks tick.Source, l *logrus.Logger, opts ...Option) *Handle {
	if l == nil {
		l = logrus.New()
		l.Out = io.Discard
	}

	h := &Handle{
		Registers: regs,
		Ticks:     ticks,
		Timeout:   CMD_TIMEOUT,
		log:       l,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handle) record(kind trace.Kind, index uint8, arg uint32, outcome ErrorCode) {
	if h.Recorder == nil {
		return
	}

	h.Recorder.Record(trace.Event{
		Kind:    kind,
		Index:   index,
		Arg:     arg,
		Outcome: uint32(outcome),
		Tick:    h.Ticks.Ticks(),
	})
}

// send writes the argument and then the command register.
func (h *Handle) send(index uint8, arg uint32, resp WaitResp) {
	h.Registers.Write(SDMMC_ARG, arg)

	cmd := h.Registers.Read(SDMMC_CMD)

	// ensure reset values in unused bits
	bits.Clear(&cmd, CMD_SDIOSUSPEND)
	bits.Clear(&cmd, CMD_WAITPEND)
	bits.Clear(&cmd, CMD_WAITINT)

	bits.SetN(&cmd, CMD_WAITRESP, 0b11, uint32(resp))
	bits.Set(&cmd, CMD_CPSMEN)
	bits.SetN(&cmd, CMD_CMDINDEX, 0x3f, uint32(index))

	h.Registers.Write(SDMMC_CMD, cmd)

	h.log.WithFields(logrus.Fields{
		"cmd": index,
		"arg": arg,
	}).Debug("command sent")

	h.record(trace.Command, index, arg, ERROR_NONE)
}
