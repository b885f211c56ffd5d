// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdmmc

// SD commands (p46, 4.7.4 Detailed Command Description, SD Physical Layer
// Simplified Specification Version 6.00)
const (
	GO_IDLE_STATE      = 0
	ALL_SEND_CID       = 2
	SEND_RELATIVE_ADDR = 3
	SELECT_CARD        = 7
	SEND_IF_COND       = 8
	SEND_CSD           = 9
	APP_CMD            = 55

	// application specific commands
	SD_SEND_OP_COND = 41
)

const (
	// CMD8 argument: VHS 0x1 (2.7-3.6V), check pattern 0xaa
	IF_COND_ARG = 0x1aa
	// ACMD41 argument: busy bit and 3.2-3.3V window
	OP_COND_ARG = 0x80100000
)

// CardCapacity represents the host capacity support (HCS) bit of ACMD41.
type CardCapacity uint32

const (
	StandardCapacity CardCapacity = 0x00000000
	HighCapacity     CardCapacity = 0x40000000
)

// GoIdleState sends CMD0, which resets all cards to the idle state.
func (h *Handle) GoIdleState() ErrorCode {
	h.send(GO_IDLE_STATE, 0, NoResponse)
	return h.cmdError()
}

// AllSendCID sends CMD2, which asks all cards to send their CID.
func (h *Handle) AllSendCID() ErrorCode {
	// [31:0] stuff bits
	h.send(ALL_SEND_CID, 0, LongResponse)
	return h.response2(ALL_SEND_CID)
}

// SendRelativeAddr sends CMD3, which asks the card to publish a new relative
// address (RCA), and returns it.
func (h *Handle) SendRelativeAddr() (rca uint16, code ErrorCode) {
	// [31:0] stuff bits
	h.send(SEND_RELATIVE_ADDR, 0, ShortResponse)
	return h.response6(SEND_RELATIVE_ADDR)
}

// SelectDeselectCard sends CMD7, which toggles the card between the
// stand-by and transfer states.
func (h *Handle) SelectDeselectCard(rca uint32) ErrorCode {
	// [31:16] RCA, [15:0] stuff bits
	h.send(SELECT_CARD, rca<<16, ShortResponse)
	return h.response1(SELECT_CARD, h.Timeout)
}

// SendIfCond sends CMD8, which checks the card operating conditions. Only
// version 2 cards respond: ERROR_CMD_RSP_TIMEOUT identifies a version 1
// card rather than a fault.
func (h *Handle) SendIfCond() ErrorCode {
	// [31:12] reserved, [11:8] supply voltage, [7:0] check pattern
	h.send(SEND_IF_COND, IF_COND_ARG, ShortResponse)
	return h.response7()
}

// SendCSD sends CMD9, which asks the addressed card to send its CSD.
func (h *Handle) SendCSD(rca uint32) ErrorCode {
	// [31:16] RCA, [15:0] stuff bits
	h.send(SEND_CSD, rca<<16, LongResponse)
	return h.response2(SEND_CSD)
}

// AppCmd sends CMD55, which announces that the next command is an
// application specific one.
func (h *Handle) AppCmd(rca uint32) ErrorCode {
	// [31:16] RCA, [15:0] stuff bits
	h.send(APP_CMD, rca<<16, ShortResponse)
	return h.response1(APP_CMD, h.Timeout)
}

// SDSendOpCond sends ACMD41, which starts the card initialization and
// negotiates its operating conditions, it must be preceded by AppCmd.
func (h *Handle) SDSendOpCond(capacity CardCapacity) ErrorCode {
	// [30] HCS, [28] XPC, [24] S18R, [23:0] Vdd voltage window
	h.send(SD_SEND_OP_COND, OP_COND_ARG|uint32(capacity), ShortResponse)
	return h.response3(SD_SEND_OP_COND)
}
