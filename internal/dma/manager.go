// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package dma

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/f-secure-foundry/armory-sdmmc/internal/reg"
	"github.com/f-secure-foundry/armory-sdmmc/internal/trace"
)

// ClockController represents the clock gate of the DMA engines.
type ClockController interface {
	EnableDMA(engine int)
	DMAEnabled(engine int) bool
}

// Manager owns the controller of a single DMA engine, transfers hold a
// reference to it and serialize all register accesses through it.
type Manager struct {
	// Engine is the DMA engine index (1 or 2)
	Engine int

	// Recorder optionally receives transfer outcomes
	Recorder trace.Recorder

	mu         sync.Mutex
	controller *Controller
	log        *logrus.Logger
}

// NewManager enables the clock of the given DMA engine, waits until its
// readback confirms it and returns the engine owner.
//
// The wait is bounded only by the hardware.
func NewManager(engine int, clock ClockController, regs reg.Registers, l *logrus.Logger) (m *Manager, err error) {
	if engine != 1 && engine != 2 {
		return nil, fmt.Errorf("invalid DMA engine %d", engine)
	}

	if l == nil {
		l = logrus.New()
		l.Out = io.Discard
	}

	// enable DMAx clock and wait until it is up
	clock.EnableDMA(engine)

	for !clock.DMAEnabled(engine) {
		runtime.Gosched()
	}

	m = &Manager{
		Engine:     engine,
		controller: &Controller{Registers: regs},
		log:        l,
	}

	l.WithField("engine", engine).Debug("dma clock enabled")

	return
}

// do runs fn with exclusive access to the engine controller.
func (m *Manager) do(fn func(c *Controller)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn(m.controller)
}

func (m *Manager) record(e trace.Event) {
	if m.Recorder != nil {
		m.Recorder.Record(e)
	}
}
