// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdmmc

import (
	"fmt"
)

// ErrorCode represents the outcome of a command/response exchange, values
// match the STM32 HAL SD error codes.
type ErrorCode uint32

const (
	ERROR_NONE                   ErrorCode = 0x00000000
	ERROR_CMD_CRC_FAIL           ErrorCode = 0x00000001
	ERROR_DATA_CRC_FAIL          ErrorCode = 0x00000002
	ERROR_CMD_RSP_TIMEOUT        ErrorCode = 0x00000004
	ERROR_DATA_TIMEOUT           ErrorCode = 0x00000008
	ERROR_TX_UNDERRUN            ErrorCode = 0x00000010
	ERROR_RX_OVERRUN             ErrorCode = 0x00000020
	ERROR_ADDR_MISALIGNED        ErrorCode = 0x00000040
	ERROR_BLOCK_LEN_ERR          ErrorCode = 0x00000080
	ERROR_ERASE_SEQ_ERR          ErrorCode = 0x00000100
	ERROR_BAD_ERASE_PARAM        ErrorCode = 0x00000200
	ERROR_WRITE_PROT_VIOLATION   ErrorCode = 0x00000400
	ERROR_LOCK_UNLOCK_FAILED     ErrorCode = 0x00000800
	ERROR_COM_CRC_FAILED         ErrorCode = 0x00001000
	ERROR_ILLEGAL_CMD            ErrorCode = 0x00002000
	ERROR_CARD_ECC_FAILED        ErrorCode = 0x00004000
	ERROR_CC_ERR                 ErrorCode = 0x00008000
	ERROR_GENERAL_UNKNOWN_ERR    ErrorCode = 0x00010000
	ERROR_STREAM_READ_UNDERRUN   ErrorCode = 0x00020000
	ERROR_STREAM_WRITE_OVERRUN   ErrorCode = 0x00040000
	ERROR_CID_CSD_OVERWRITE      ErrorCode = 0x00080000
	ERROR_WP_ERASE_SKIP          ErrorCode = 0x00100000
	ERROR_CARD_ECC_DISABLED      ErrorCode = 0x00200000
	ERROR_ERASE_RESET            ErrorCode = 0x00400000
	ERROR_AKE_SEQ_ERR            ErrorCode = 0x00800000
	ERROR_INVALID_VOLTRANGE      ErrorCode = 0x01000000
	ERROR_ADDR_OUT_OF_RANGE      ErrorCode = 0x02000000
	ERROR_REQUEST_NOT_APPLICABLE ErrorCode = 0x04000000
	ERROR_UNSUPPORTED_FEATURE    ErrorCode = 0x10000000
	ERROR_BUSY                   ErrorCode = 0x20000000
	ERROR_TIMEOUT                ErrorCode = 0x80000000
)

var errorText = map[ErrorCode]string{
	ERROR_NONE:                   "no error",
	ERROR_CMD_CRC_FAIL:           "command response received, CRC check failed",
	ERROR_DATA_CRC_FAIL:          "data block sent/received, CRC check failed",
	ERROR_CMD_RSP_TIMEOUT:        "command response timeout",
	ERROR_DATA_TIMEOUT:           "data timeout",
	ERROR_TX_UNDERRUN:            "transmit FIFO underrun",
	ERROR_RX_OVERRUN:             "receive FIFO overrun",
	ERROR_ADDR_MISALIGNED:        "misaligned address",
	ERROR_BLOCK_LEN_ERR:          "invalid block length",
	ERROR_ERASE_SEQ_ERR:          "erase command sequence error",
	ERROR_BAD_ERASE_PARAM:        "invalid erase group selection",
	ERROR_WRITE_PROT_VIOLATION:   "write protect violation",
	ERROR_LOCK_UNLOCK_FAILED:     "lock/unlock failed",
	ERROR_COM_CRC_FAILED:         "previous command CRC check failed",
	ERROR_ILLEGAL_CMD:            "illegal command",
	ERROR_CARD_ECC_FAILED:        "card internal ECC failed",
	ERROR_CC_ERR:                 "card controller error",
	ERROR_GENERAL_UNKNOWN_ERR:    "general or unknown error",
	ERROR_STREAM_READ_UNDERRUN:   "stream read underrun",
	ERROR_STREAM_WRITE_OVERRUN:   "stream write overrun",
	ERROR_CID_CSD_OVERWRITE:      "CID/CSD overwrite",
	ERROR_WP_ERASE_SKIP:          "write protected blocks skipped on erase",
	ERROR_CARD_ECC_DISABLED:      "command executed without internal ECC",
	ERROR_ERASE_RESET:            "erase sequence cleared",
	ERROR_AKE_SEQ_ERR:            "authentication sequence error",
	ERROR_INVALID_VOLTRANGE:      "invalid voltage range",
	ERROR_ADDR_OUT_OF_RANGE:      "address out of range",
	ERROR_REQUEST_NOT_APPLICABLE: "request not applicable",
	ERROR_UNSUPPORTED_FEATURE:    "unsupported feature",
	ERROR_BUSY:                   "busy",
	ERROR_TIMEOUT:                "software timeout",
}

func (e ErrorCode) String() string {
	if s, ok := errorText[e]; ok {
		return s
	}

	return fmt.Sprintf("ErrorCode(%#08x)", uint32(e))
}

func (e ErrorCode) Error() string {
	return "sdmmc: " + e.String()
}

// Err returns nil on ERROR_NONE and the error code otherwise.
func (e ErrorCode) Err() error {
	if e == ERROR_NONE {
		return nil
	}

	return e
}

// card status error bits (p130, 4.10.1 Card Status, SD Physical Layer
// Simplified Specification Version 6.00)
const (
	OCR_ERRORBITS = 0xfdffe008

	R6_GENERAL_UNKNOWN_ERROR = 0x2000
	R6_ILLEGAL_CMD           = 0x4000
	R6_COM_CRC_FAILED        = 0x8000
)

var ocrErrors = []struct {
	mask uint32
	code ErrorCode
}{
	{0x80000000, ERROR_ADDR_OUT_OF_RANGE},
	{0x40000000, ERROR_ADDR_MISALIGNED},
	{0x20000000, ERROR_BLOCK_LEN_ERR},
	{0x10000000, ERROR_ERASE_SEQ_ERR},
	{0x08000000, ERROR_BAD_ERASE_PARAM},
	{0x04000000, ERROR_WRITE_PROT_VIOLATION},
	{0x01000000, ERROR_LOCK_UNLOCK_FAILED},
	{0x00800000, ERROR_COM_CRC_FAILED},
	{0x00400000, ERROR_ILLEGAL_CMD},
	{0x00200000, ERROR_CARD_ECC_FAILED},
	{0x00100000, ERROR_CC_ERR},
	{0x00040000, ERROR_STREAM_READ_UNDERRUN},
	{0x00020000, ERROR_STREAM_WRITE_OVERRUN},
	{0x00010000, ERROR_CID_CSD_OVERWRITE},
	{0x00008000, ERROR_WP_ERASE_SKIP},
	{0x00004000, ERROR_CARD_ECC_DISABLED},
	{0x00002000, ERROR_ERASE_RESET},
	{0x00000008, ERROR_AKE_SEQ_ERR},
}

// CheckOCRErrorBits decodes an R1 card status word, when multiple error
// bits are set the most significant one is reported.
func CheckOCRErrorBits(status uint32) ErrorCode {
	if status&OCR_ERRORBITS == 0 {
		return ERROR_NONE
	}

	for _, e := range ocrErrors {
		if status&e.mask != 0 {
			return e.code
		}
	}

	return ERROR_GENERAL_UNKNOWN_ERR
}

// CheckR6ErrorBits decodes the card status bits of an R6 response.
func CheckR6ErrorBits(resp uint32) ErrorCode {
	switch {
	case resp&R6_ILLEGAL_CMD != 0:
		return ERROR_ILLEGAL_CMD
	case resp&R6_COM_CRC_FAILED != 0:
		return ERROR_COM_CRC_FAILED
	case resp&R6_GENERAL_UNKNOWN_ERROR != 0:
		return ERROR_GENERAL_UNKNOWN_ERR
	}

	return ERROR_NONE
}
