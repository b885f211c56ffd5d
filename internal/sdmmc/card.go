// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdmmc

import (
	"github.com/sirupsen/logrus"
)

const (
	// OCR card power up status bit (busy)
	OCR_BUSY = 31
	// OCR card capacity status bit
	OCR_CCS = 30

	// default number of ACMD41 attempts
	MAX_VOLT_TRIAL = 0xffff
)

// Card holds the identification data gathered during bring-up, the CID and
// CSD registers are returned raw.
type Card struct {
	Version2     bool
	HighCapacity bool

	RCA uint16
	OCR uint32
	CID []byte
	CSD []byte
}

// Identify runs the card identification sequence (p27, 4.2 Card
// Identification Mode, SD Physical Layer Simplified Specification Version
// 6.00) and leaves the card selected in transfer state.
//
// ACMD41 is repeated at most trials times while the card reports busy.
func (h *Handle) Identify(capacity CardCapacity, trials int) (card *Card, code ErrorCode) {
	card = &Card{}

	if code = h.GoIdleState(); code != ERROR_NONE {
		return
	}

	switch code = h.SendIfCond(); code {
	case ERROR_NONE:
		card.Version2 = true
	case ERROR_CMD_RSP_TIMEOUT:
		// version 1 cards do not support high capacity
		capacity = StandardCapacity
	default:
		return
	}

	if trials <= 0 {
		trials = MAX_VOLT_TRIAL
	}

	for i := 0; ; i++ {
		if i == trials {
			return card, ERROR_INVALID_VOLTRANGE
		}

		if code = h.AppCmd(0); code != ERROR_NONE {
			return
		}

		if code = h.SDSendOpCond(capacity); code != ERROR_NONE {
			return
		}

		card.OCR = h.ShortResponse()

		if card.OCR&(1<<OCR_BUSY) != 0 {
			break
		}
	}

	card.HighCapacity = card.OCR&(1<<OCR_CCS) != 0

	if code = h.AllSendCID(); code != ERROR_NONE {
		return
	}

	card.CID = h.LongResponse()

	if card.RCA, code = h.SendRelativeAddr(); code != ERROR_NONE {
		return
	}

	if code = h.SendCSD(uint32(card.RCA)); code != ERROR_NONE {
		return
	}

	card.CSD = h.LongResponse()

	if code = h.SelectDeselectCard(uint32(card.RCA)); code != ERROR_NONE {
		return
	}

	h.log.WithFields(logrus.Fields{
		"rca":           card.RCA,
		"version2":      card.Version2,
		"high_capacity": card.HighCapacity,
	}).Info("card identified")

	return
}
