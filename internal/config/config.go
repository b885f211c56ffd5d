// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package config implements the board configuration, which locates the
// peripherals used by the DMA and SD card drivers and sets up logging.
package config

import (
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
)

// STM32F7 peripheral base addresses (p76, 2.2.2 Memory map and register
// boundary addresses, RM0410)
const (
	DMA1_BASE   = 0x40026000
	DMA2_BASE   = 0x40026400
	RCC_BASE    = 0x40023800
	SDMMC1_BASE = 0x40012c00
)

type DMA struct {
	// Engine selects the DMA engine used by the driver (1 or 2)
	Engine int    `yaml:"engine"`
	Base1  uint32 `yaml:"base_dma1"`
	Base2  uint32 `yaml:"base_dma2"`
}

type RCC struct {
	Base uint32 `yaml:"base"`
}

type SDMMC struct {
	Base uint32 `yaml:"base"`
	// CommandTimeout is the response wait budget in ticks
	CommandTimeout uint64 `yaml:"command_timeout"`
	// Capacity is either "standard" or "high"
	Capacity string `yaml:"capacity"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Board represents the board configuration.
type Board struct {
	DMA     DMA     `yaml:"dma"`
	RCC     RCC     `yaml:"rcc"`
	SDMMC   SDMMC   `yaml:"sdmmc"`
	Logging Logging `yaml:"logging"`
}

// Default returns the configuration of an STM32F7 board.
func Default() *Board {
	return &Board{
		DMA: DMA{
			Engine: 2,
			Base1:  DMA1_BASE,
			Base2:  DMA2_BASE,
		},
		RCC: RCC{
			Base: RCC_BASE,
		},
		SDMMC: SDMMC{
			Base:           SDMMC1_BASE,
			CommandTimeout: sdmmc.CMD_TIMEOUT,
			Capacity:       "high",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load parses a YAML board configuration, unset fields take their default
// value.
func Load(buf []byte) (b *Board, err error) {
	b = &Board{}

	if err = yaml.Unmarshal(buf, b); err != nil {
		return nil, fmt.Errorf("invalid configuration, %w", err)
	}

	if err = mergo.Merge(b, Default()); err != nil {
		return nil, fmt.Errorf("could not apply defaults, %w", err)
	}

	if err = b.Validate(); err != nil {
		return nil, err
	}

	return
}

// LoadFile parses the YAML board configuration found at path.
func LoadFile(path string) (*Board, error) {
	buf, err := os.ReadFile(path)

	if err != nil {
		return nil, err
	}

	return Load(buf)
}

// Validate checks the configuration for unsupported values.
func (b *Board) Validate() error {
	if b.DMA.Engine != 1 && b.DMA.Engine != 2 {
		return fmt.Errorf("invalid DMA engine %d", b.DMA.Engine)
	}

	if _, err := b.Capacity(); err != nil {
		return err
	}

	return nil
}

// DMABase returns the register base of the selected DMA engine.
func (b *Board) DMABase() uint32 {
	if b.DMA.Engine == 1 {
		return b.DMA.Base1
	}

	return b.DMA.Base2
}

// Capacity returns the capacity support advertised to the card.
func (b *Board) Capacity() (sdmmc.CardCapacity, error) {
	switch strings.ToLower(b.SDMMC.Capacity) {
	case "standard":
		return sdmmc.StandardCapacity, nil
	case "high":
		return sdmmc.HighCapacity, nil
	}

	return 0, fmt.Errorf("unknown capacity `%s`, possible values: %s", b.SDMMC.Capacity, []string{"standard", "high"})
}

// Configure applies the logging settings to l.
func (b *Board) Configure(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(strings.ToLower(b.Logging.Level))

	if err != nil {
		return fmt.Errorf("%s; possible levels: %s", err, logrus.AllLevels)
	}

	l.SetLevel(level)

	switch strings.ToLower(b.Logging.Format) {
	case "text":
		l.Formatter = &logrus.TextFormatter{
			DisableTimestamp: true,
		}
	case "json":
		l.Formatter = &logrus.JSONFormatter{
			DisableTimestamp: true,
		}
	default:
		return fmt.Errorf("unknown log format `%s`, possible formats: %s", b.Logging.Format, []string{"text", "json"})
	}

	return nil
}

// Logger returns a new logger configured according to the logging settings.
func (b *Board) Logger() (*logrus.Logger, error) {
	l := logrus.New()

	if err := b.Configure(l); err != nil {
		return nil, err
	}

	return l, nil
}
