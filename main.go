// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"

	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/armory-sdmmc/internal/config"
	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
	"github.com/f-secure-foundry/armory-sdmmc/internal/rcc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/tick"
	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

// number of retained driver events
const TRACE_SIZE = 256

func main() {
	board, err := config.Load(boardConfig)

	if err != nil {
		log.Fatal(err)
	}

	l, err := board.Logger()

	if err != nil {
		log.Fatal(err)
	}

	l.WithFields(logrus.Fields{
		"build":    Build,
		"revision": Revision,
	}).Info("armory-sdmmc")

	events := trace.NewLog(TRACE_SIZE, nil)

	clock := &rcc.RCC{
		Registers: &reg.Mapped{Base: board.RCC.Base},
	}

	m, err := dma.NewManager(board.DMA.Engine, clock, &reg.Mapped{Base: board.DMABase()}, l)

	if err != nil {
		log.Fatal(err)
	}

	m.Recorder = events

	if err = selfTest(m); err != nil {
		l.WithError(err).Error("dma self-test failed")
	} else {
		l.Info("dma self-test passed")
	}

	capacity, err := board.Capacity()

	if err != nil {
		log.Fatal(err)
	}

	h := sdmmc.NewHandle(&reg.Mapped{Base: board.SDMMC.Base}, tick.NewMonotonic(), l,
		sdmmc.WithCommandTimeout(board.SDMMC.CommandTimeout),
		sdmmc.WithRecorder(events),
	)

	card, code := h.Identify(capacity, sdmmc.MAX_VOLT_TRIAL)

	if code != sdmmc.ERROR_NONE {
		l.WithField("events", len(events.Events())).Fatalf("card identification failed, %v", code)
	}

	l.WithFields(logrus.Fields{
		"cid": card.CID,
		"csd": card.CSD,
	}).Info("card ready")
}
