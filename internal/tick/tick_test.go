// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package tick

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeadline(t *testing.T) {
	var now uint64 = 100
	src := Func(func() uint64 { return now })

	d := Deadline(src, 5000)
	assert.Equal(t, uint64(5100), d)
	assert.False(t, Expired(src, d))

	now = 5099
	assert.False(t, Expired(src, d))

	now = 5100
	assert.True(t, Expired(src, d))
}

func TestMonotonic(t *testing.T) {
	m := NewMonotonic()
	a := m.Ticks()

	time.Sleep(5 * time.Millisecond)

	assert.GreaterOrEqual(t, m.Ticks(), a+5)
}
