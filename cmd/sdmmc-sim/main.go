// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rcrowley/go-metrics"
	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/armory-sdmmc/internal/config"
	"github.com/f-secure-foundry/armory-sdmmc/internal/dma"
	"github.com/f-secure-foundry/armory-sdmmc/internal/rcc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
	"github.com/f-secure-foundry/armory-sdmmc/internal/sim"
	"github.com/f-secure-foundry/armory-sdmmc/internal/tick"
	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

// emulated bus addresses of the self-test buffers
const (
	srcAddr = 0x20010000
	dstAddr = 0x20010400
	bufSize = 512
)

type Config struct {
	board    string
	version1 bool
	busy     int
	trace    string
	debug    bool
}

var conf *Config

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stdout)

	conf = &Config{}

	flag.Usage = func() {
		fmt.Print(usage + "\n")
	}

	flag.StringVar(&conf.board, "c", "", "board configuration")
	flag.BoolVar(&conf.version1, "v1", false, "version 1 card")
	flag.IntVar(&conf.busy, "busy", 3, "ACMD41 busy responses")
	flag.StringVar(&conf.trace, "trace", "", "trace output file")
	flag.BoolVar(&conf.debug, "d", false, "debug logging")
}

func loadBoard() (board *config.Board, err error) {
	if conf.board == "" {
		return config.Load(nil)
	}

	return config.LoadFile(conf.board)
}

func main() {
	flag.Parse()

	log.Print(welcome + "\n")

	board, err := loadBoard()

	if err != nil {
		log.Fatal(err)
	}

	if conf.debug {
		board.Logging.Level = "debug"
	}

	l, err := board.Logger()

	if err != nil {
		log.Fatal(err)
	}

	registry := metrics.NewRegistry()
	events := trace.NewLog(1024, registry)

	failed := false

	if err = copyTest(board, l, events); err != nil {
		failed = true
		log.Printf("dma self-test: FAIL (%v)", err)
	} else {
		log.Printf("dma self-test: PASS")
	}

	card := sim.NewCard()
	card.Version1 = conf.version1
	card.Busy = conf.busy

	capacity, err := board.Capacity()

	if err != nil {
		log.Fatal(err)
	}

	h := sdmmc.NewHandle(card, tick.NewMonotonic(), l,
		sdmmc.WithCommandTimeout(board.SDMMC.CommandTimeout),
		sdmmc.WithRecorder(events),
	)

	info, code := h.Identify(capacity, sdmmc.MAX_VOLT_TRIAL)

	if code != sdmmc.ERROR_NONE {
		failed = true
		log.Printf("card identification: FAIL (%v)", code)
	} else {
		log.Printf("card identification: PASS")
		log.Printf("  version 2:     %v", info.Version2)
		log.Printf("  high capacity: %v", info.HighCapacity)
		log.Printf("  RCA:           %#04x", info.RCA)
		log.Printf("  OCR:           %#08x", info.OCR)
		log.Printf("  CID:           %x", info.CID)
		log.Printf("  CSD:           %x", info.CSD)
	}

	registry.Each(func(name string, i interface{}) {
		if c, ok := i.(metrics.Counter); ok {
			log.Printf("  %-16s %d", name, c.Count())
		}
	})

	if conf.trace != "" {
		if err = os.WriteFile(conf.trace, events.Bytes(), 0600); err != nil {
			log.Fatal(err)
		}

		log.Printf("trace written to %s", conf.trace)
	}

	if failed {
		os.Exit(1)
	}
}

// copyTest runs a memory-to-memory transfer and a concurrent peripheral
// transfer on the emulated DMA engine.
func copyTest(board *config.Board, l *logrus.Logger, r trace.Recorder) (err error) {
	hw := sim.NewDMA()
	clock := &rcc.RCC{Registers: sim.NewRCC(4)}

	m, err := dma.NewManager(board.DMA.Engine, clock, hw, l)

	if err != nil {
		return
	}

	m.Recorder = r

	src := make([]byte, bufSize)
	dst := make([]byte, bufSize)

	for i := range src {
		src[i] = byte(i ^ 0x5a)
	}

	hw.Map(srcAddr, src)
	hw.Map(dstAddr, dst)

	node := dma.Node{
		Burst:     dma.Incremental4,
		Increment: dma.Increment,
		Width:     dma.Word,
	}

	source := node
	source.Address = srcAddr

	destination := node
	destination.Address = dstAddr

	cp := dma.NewTransfer(m, dma.S0, dma.C0, dma.MemoryToMemory, source, destination, bufSize/4)

	// SDMMC1 receive FIFO, served by DMA2 stream 3 channel 4
	fifo := dma.Node{
		Address: uintptr(board.SDMMC.Base) + 0x80,
		Burst:   dma.Incremental4,
		Width:   dma.Word,
	}

	rx := dma.NewTransfer(m, dma.S3, dma.C4, dma.PeripheralToMemory, fifo, destination, bufSize/4)
	rx.FlowController = dma.FlowPeripheral
	rx.Memory.Address = dstAddr + bufSize

	if err = dma.ExecuteAll(cp, rx); err != nil {
		return
	}

	if !bytes.Equal(src, dst) {
		return fmt.Errorf("data mismatch")
	}

	return
}
