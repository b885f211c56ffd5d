// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"github.com/f-secure-foundry/tamago/bits"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
)

// card states (p131, Table 4-42 Card Status, SD Physical Layer Simplified
// Specification Version 6.00)
const (
	stateIdle  = 0
	stateReady = 1
	stateIdent = 2
	stateStby  = 3
	stateTran  = 4
)

const (
	statusAppCmd       = 1 << 5
	statusReadyForData = 1 << 8
	ocrVoltageWindow   = 0x00ff8000
)

// Card emulates an SD card attached to an SDMMC controller. Its fields must
// be set before issuing commands.
type Card struct {
	*reg.Memory

	// Version1 disables CMD8 support
	Version1 bool
	// HighCapacity reports SDHC/SDXC support in the OCR
	HighCapacity bool
	// Silent suppresses any controller status update
	Silent bool
	// CorruptIndex echoes a wrong command index in short responses
	CorruptIndex bool
	// CRCFail reports CRC failures instead of response ends
	CRCFail bool
	// Status is merged into R1 card status responses
	Status uint32
	// R6Status is merged into the R6 status bits
	R6Status uint32
	// Busy is the number of ACMD41 responses reporting power up in progress
	Busy int

	RCA uint16
	CID [4]uint32
	CSD [4]uint32

	// Commands lists the issued command indices.
	Commands []uint8

	state int
	app   bool
}

// NewCard returns an emulated version 2 high capacity card.
func NewCard() *Card {
	c := &Card{
		Memory:       reg.NewMemory(),
		HighCapacity: true,
		RCA:          0xb368,
		CID:          [4]uint32{0x03534453, 0x55333247, 0x80a4b2c1, 0x5d013c01},
		CSD:          [4]uint32{0x400e0032, 0x5b590000, 0x76b27f80, 0x0a404001},
	}

	c.OnWrite = c.write

	return c
}

func setFlag(bank reg.Bank, pos int) {
	v := bank[sdmmc.SDMMC_STA]
	bits.Set(&v, pos)
	bank[sdmmc.SDMMC_STA] = v
}

func (c *Card) status() uint32 {
	status := uint32(c.state)<<9 | statusReadyForData | c.Status

	if c.app {
		status |= statusAppCmd
	}

	return status
}

func (c *Card) short(bank reg.Bank, index uint8, resp uint32) {
	if c.CorruptIndex {
		index ^= 1
	}

	bank[sdmmc.SDMMC_RESPCMD] = uint32(index)
	bank[sdmmc.SDMMC_RESP1] = resp

	if c.CRCFail {
		setFlag(bank, sdmmc.STA_CCRCFAIL)
	} else {
		setFlag(bank, sdmmc.STA_CMDREND)
	}
}

func (c *Card) long(bank reg.Bank, resp [4]uint32) {
	bank[sdmmc.SDMMC_RESPCMD] = 0x3f
	bank[sdmmc.SDMMC_RESP1] = resp[0]
	bank[sdmmc.SDMMC_RESP2] = resp[1]
	bank[sdmmc.SDMMC_RESP3] = resp[2]
	bank[sdmmc.SDMMC_RESP4] = resp[3]

	if c.CRCFail {
		setFlag(bank, sdmmc.STA_CCRCFAIL)
	} else {
		setFlag(bank, sdmmc.STA_CMDREND)
	}
}

func (c *Card) write(bank reg.Bank, off uint32, old uint32, val uint32) uint32 {
	switch off {
	case sdmmc.SDMMC_ICR:
		bank[sdmmc.SDMMC_STA] &^= val
		return 0
	case sdmmc.SDMMC_CMD:
		if bits.Get(&val, sdmmc.CMD_CPSMEN, 1) == 1 {
			c.command(bank, val)
		}
	}

	return val
}

func (c *Card) command(bank reg.Bank, cmd uint32) {
	index := uint8(bits.Get(&cmd, sdmmc.CMD_CMDINDEX, 0x3f))
	resp := sdmmc.WaitResp(bits.Get(&cmd, sdmmc.CMD_WAITRESP, 0b11))
	arg := bank[sdmmc.SDMMC_ARG]

	c.Commands = append(c.Commands, index)

	if c.Silent {
		return
	}

	app := c.app
	c.app = false

	if resp == sdmmc.NoResponse || resp == sdmmc.NoResponseAlt {
		if index == sdmmc.GO_IDLE_STATE {
			c.state = stateIdle
		}

		setFlag(bank, sdmmc.STA_CMDSENT)
		return
	}

	switch {
	case index == sdmmc.SEND_IF_COND && !c.Version1:
		c.short(bank, index, arg&0xfff)
	case index == sdmmc.APP_CMD:
		c.app = true
		c.short(bank, index, c.status())
	case index == sdmmc.SD_SEND_OP_COND && app:
		ocr := uint32(ocrVoltageWindow)

		if c.Busy > 0 {
			c.Busy--
		} else {
			ocr |= 1 << sdmmc.OCR_BUSY
			c.state = stateReady

			if c.HighCapacity && !c.Version1 && arg&uint32(sdmmc.HighCapacity) != 0 {
				ocr |= 1 << sdmmc.OCR_CCS
			}
		}

		// R3 carries no CRC
		bank[sdmmc.SDMMC_RESPCMD] = 0x3f
		bank[sdmmc.SDMMC_RESP1] = ocr
		setFlag(bank, sdmmc.STA_CCRCFAIL)
	case index == sdmmc.ALL_SEND_CID:
		c.state = stateIdent
		c.long(bank, c.CID)
	case index == sdmmc.SEND_RELATIVE_ADDR:
		c.state = stateStby
		// R6 status bits: [15] COM_CRC_ERROR, [14] ILLEGAL_COMMAND,
		// [13] ERROR, [12:9] CURRENT_STATE
		c.short(bank, index, uint32(c.RCA)<<16|uint32(c.state)<<9|c.R6Status)
	case index == sdmmc.SEND_CSD:
		c.long(bank, c.CSD)
	case index == sdmmc.SELECT_CARD:
		status := c.status()

		if uint16(arg>>16) == c.RCA {
			c.state = stateTran
		} else {
			c.state = stateStby
		}

		c.short(bank, index, status)
	default:
		setFlag(bank, sdmmc.STA_CTIMEOUT)
	}
}
