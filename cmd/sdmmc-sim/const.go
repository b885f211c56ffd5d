// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

const welcome = `
SD/MMC and DMA driver simulator
Copyright (c) F-Secure Corporation
`

const usage = `Usage: sdmmc-sim [OPTIONS]
  -c string
        board configuration (default: built-in STM32F7 layout)
  -v1
        emulate a version 1 standard capacity card
  -busy int
        ACMD41 responses reporting power up in progress (default 3)
  -trace string
        write the driver event trace to file
  -d    debug logging
`
