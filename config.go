// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	_ "embed"
)

// board configuration, unset fields take the STM32F7 defaults
//
//go:embed board.yaml
var boardConfig []byte
