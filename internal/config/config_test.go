// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-secure-foundry/armory-sdmmc/internal/sdmmc"
)

func TestLoadDefaults(t *testing.T) {
	b, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, Default(), b)
	assert.Equal(t, uint32(DMA2_BASE), b.DMABase())

	capacity, err := b.Capacity()
	require.NoError(t, err)
	assert.Equal(t, sdmmc.HighCapacity, capacity)
}

func TestLoad(t *testing.T) {
	b, err := Load([]byte(`
dma:
  engine: 1
sdmmc:
  command_timeout: 100
  capacity: standard
logging:
  level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, 1, b.DMA.Engine)
	assert.Equal(t, uint32(DMA1_BASE), b.DMABase())
	assert.Equal(t, uint32(SDMMC1_BASE), b.SDMMC.Base)
	assert.Equal(t, uint64(100), b.SDMMC.CommandTimeout)
	assert.Equal(t, "text", b.Logging.Format)

	capacity, err := b.Capacity()
	require.NoError(t, err)
	assert.Equal(t, sdmmc.StandardCapacity, capacity)

	l, err := b.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load([]byte("dma: [1"))
	assert.Error(t, err)

	_, err = Load([]byte("dma:\n  engine: 3\n"))
	assert.EqualError(t, err, "invalid DMA engine 3")

	_, err = Load([]byte("sdmmc:\n  capacity: extended\n"))
	assert.EqualError(t, err, "unknown capacity `extended`, possible values: [standard high]")
}

func TestLogger(t *testing.T) {
	b := Default()
	b.Logging.Format = "json"

	l, err := b.Logger()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	b.Logging.Format = "xml"
	_, err = b.Logger()
	assert.Error(t, err)

	b.Logging.Format = "text"
	b.Logging.Level = "loud"
	_, err = b.Logger()
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rcc:\n  base: 0x58024400\n"), 0600))

	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x58024400), b.RCC.Base)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
