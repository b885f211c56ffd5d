// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdmmc

import (
	"encoding/binary"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/crucible/util"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
	"github.com/f-secure-foundry/armory-sdmmc/internal/tick"
	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

func isSet(sta uint32, pos int) bool {
	return sta&(1<<pos) != 0
}

func (h *Handle) clearFlag(pos int) {
	reg.Write1C(h.Registers, SDMMC_ICR, pos)
}

func (h *Handle) clearStaticFlags() {
	h.Registers.Write(SDMMC_ICR, STATIC_FLAGS)
}

// commandMatches returns whether the response echoes the issued command
// index.
func (h *Handle) commandMatches(index uint8) bool {
	return h.CommandIndex() == index
}

// poll reads the status register until check reports a terminal condition
// or the budget expires, in which case ERROR_TIMEOUT is returned.
func (h *Handle) poll(budget uint64, check func(sta uint32) (ErrorCode, bool)) ErrorCode {
	deadline := tick.Deadline(h.Ticks, budget)

	for !tick.Expired(h.Ticks, deadline) {
		if code, done := check(h.Registers.Read(SDMMC_STA)); done {
			return code
		}

		runtime.Gosched()
	}

	return ERROR_TIMEOUT
}

func (h *Handle) done(response string, index uint8, code ErrorCode) ErrorCode {
	h.log.WithFields(logrus.Fields{
		"cmd":      index,
		"response": response,
		"outcome":  code.String(),
	}).Debug("response received")

	h.record(trace.Response, index, 0, code)

	return code
}

// cmdError waits for a command without response to be sent.
func (h *Handle) cmdError() ErrorCode {
	code := h.poll(h.Timeout, func(sta uint32) (ErrorCode, bool) {
		if isSet(sta, STA_CMDSENT) {
			h.clearFlag(STA_CMDSENT)
			return ERROR_NONE, true
		}

		return ERROR_NONE, false
	})

	return h.done("none", GO_IDLE_STATE, code)
}

// frame implements the checks shared by all response waits, in priority
// order: command timeout, CRC failure, response end.
func (h *Handle) frame(sta uint32) (code ErrorCode, done bool) {
	switch {
	case isSet(sta, STA_CTIMEOUT):
		h.clearFlag(STA_CTIMEOUT)
		return ERROR_CMD_RSP_TIMEOUT, true
	case isSet(sta, STA_CCRCFAIL):
		h.clearFlag(STA_CCRCFAIL)
		return ERROR_CMD_CRC_FAIL, true
	case isSet(sta, STA_CMDREND):
		return ERROR_NONE, true
	}

	return ERROR_NONE, false
}

// response1 waits for an R1 response and decodes the card status. A
// response echoing a different command index is reported as a CRC failure.
func (h *Handle) response1(index uint8, budget uint64) ErrorCode {
	code := h.poll(budget, func(sta uint32) (ErrorCode, bool) {
		code, done := h.frame(sta)

		if !done || code != ERROR_NONE {
			return code, done
		}

		if !h.commandMatches(index) {
			h.clearFlag(STA_CMDREND)
			return ERROR_CMD_CRC_FAIL, true
		}

		h.clearStaticFlags()

		return CheckOCRErrorBits(h.ShortResponse()), true
	})

	return h.done("R1", index, code)
}

// response2 waits for an R2 (CID/CSD) response, which carries no command
// index.
func (h *Handle) response2(index uint8) ErrorCode {
	code := h.poll(h.Timeout, func(sta uint32) (ErrorCode, bool) {
		code, done := h.frame(sta)

		if done && code == ERROR_NONE {
			h.clearStaticFlags()
		}

		return code, done
	})

	return h.done("R2", index, code)
}

// response3 waits for an R3 (OCR) response. R3 frames carry no valid CRC,
// therefore a CRC failure indicates a received response.
func (h *Handle) response3(index uint8) ErrorCode {
	code := h.poll(h.Timeout, func(sta uint32) (ErrorCode, bool) {
		switch {
		case isSet(sta, STA_CTIMEOUT):
			h.clearFlag(STA_CTIMEOUT)
			return ERROR_CMD_RSP_TIMEOUT, true
		case isSet(sta, STA_CCRCFAIL), isSet(sta, STA_CMDREND):
			h.clearStaticFlags()
			return ERROR_NONE, true
		}

		return ERROR_NONE, false
	})

	return h.done("R3", index, code)
}

// response6 waits for an R6 response and returns the published relative
// card address.
func (h *Handle) response6(index uint8) (rca uint16, code ErrorCode) {
	code = h.poll(h.Timeout, func(sta uint32) (ErrorCode, bool) {
		code, done := h.frame(sta)

		if !done || code != ERROR_NONE {
			return code, done
		}

		if !h.commandMatches(index) {
			h.clearFlag(STA_CMDREND)
			return ERROR_CMD_CRC_FAIL, true
		}

		h.clearStaticFlags()

		resp := h.ShortResponse()

		if code = CheckR6ErrorBits(resp); code == ERROR_NONE {
			rca = uint16(resp >> 16)
		}

		return code, true
	})

	return rca, h.done("R6", index, code)
}

// response7 waits for an R7 response to CMD8, either a CRC failure or a
// response end indicate a version 2 card.
func (h *Handle) response7() ErrorCode {
	code := h.poll(h.Timeout, func(sta uint32) (ErrorCode, bool) {
		switch {
		case isSet(sta, STA_CTIMEOUT):
			// version 1 card
			h.clearFlag(STA_CTIMEOUT)
			return ERROR_CMD_RSP_TIMEOUT, true
		case isSet(sta, STA_CCRCFAIL):
			h.clearFlag(STA_CCRCFAIL)
			return ERROR_NONE, true
		case isSet(sta, STA_CMDREND):
			h.clearFlag(STA_CMDREND)
			return ERROR_NONE, true
		}

		return ERROR_NONE, false
	})

	return h.done("R7", SEND_IF_COND, code)
}

// CommandIndex returns the command index echoed by the last response.
func (h *Handle) CommandIndex() uint8 {
	return uint8(reg.Get(h.Registers, SDMMC_RESPCMD, RESPCMD_RESPCMD, 0x3f))
}

// ShortResponse returns the card status of the last short response.
func (h *Handle) ShortResponse() uint32 {
	return h.Registers.Read(SDMMC_RESP1)
}

// Responses returns the content of all response registers.
func (h *Handle) Responses() (resp [4]uint32) {
	resp[0] = h.Registers.Read(SDMMC_RESP1)
	resp[1] = h.Registers.Read(SDMMC_RESP2)
	resp[2] = h.Registers.Read(SDMMC_RESP3)
	resp[3] = h.Registers.Read(SDMMC_RESP4)

	return
}

// LongResponse returns the 128-bit content of the last long response (CID or
// CSD) as a big-endian byte slice.
func (h *Handle) LongResponse() []byte {
	resp := h.Responses()
	buf := make([]byte, 16)

	// RESP4 holds the least significant word
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], resp[3-i])
	}

	return util.SwitchEndianness(buf)
}
