// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package trace records driver events (issued commands, response outcomes
// and DMA transfer results) for later inspection.
//
// Events are serialized in protocol buffer wire format, each event is a
// message with the following fields:
//
//	1: kind    (varint)
//	2: index   (varint) command index or DMA stream
//	3: arg     (fixed32) command argument or DMA engine
//	4: outcome (varint) error code, 0 on success
//	5: tick    (varint)
package trace

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

type Kind uint8

const (
	Command Kind = iota + 1
	Response
	Transfer
)

func (k Kind) String() string {
	switch k {
	case Command:
		return "command"
	case Response:
		return "response"
	case Transfer:
		return "transfer"
	}

	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event represents a single driver event.
type Event struct {
	Kind    Kind
	Index   uint8
	Arg     uint32
	Outcome uint32
	Tick    uint64
}

const (
	fieldKind    protowire.Number = 1
	fieldIndex   protowire.Number = 2
	fieldArg     protowire.Number = 3
	fieldOutcome protowire.Number = 4
	fieldTick    protowire.Number = 5
)

// Recorder represents an event sink.
type Recorder interface {
	Record(e Event)
}

// Marshal appends the wire encoding of an event to buf.
func (e *Event) Marshal(buf []byte) []byte {
	buf = protowire.AppendTag(buf, fieldKind, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Kind))
	buf = protowire.AppendTag(buf, fieldIndex, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(e.Index))
	buf = protowire.AppendTag(buf, fieldArg, protowire.Fixed32Type)
	buf = protowire.AppendFixed32(buf, e.Arg)

	if e.Outcome != 0 {
		buf = protowire.AppendTag(buf, fieldOutcome, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(e.Outcome))
	}

	buf = protowire.AppendTag(buf, fieldTick, protowire.VarintType)
	buf = protowire.AppendVarint(buf, e.Tick)

	return buf
}

// Unmarshal parses an event from its wire encoding, unknown fields are
// skipped.
func (e *Event) Unmarshal(buf []byte) error {
	*e = Event{}

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)

		if n < 0 {
			return fmt.Errorf("invalid tag, %w", protowire.ParseError(n))
		}

		buf = buf[n:]

		switch {
		case typ == protowire.VarintType && num != fieldArg:
			v, n := protowire.ConsumeVarint(buf)

			if n < 0 {
				return fmt.Errorf("invalid field %d, %w", num, protowire.ParseError(n))
			}

			buf = buf[n:]

			switch num {
			case fieldKind:
				e.Kind = Kind(v)
			case fieldIndex:
				e.Index = uint8(v)
			case fieldOutcome:
				e.Outcome = uint32(v)
			case fieldTick:
				e.Tick = v
			}
		case typ == protowire.Fixed32Type && num == fieldArg:
			v, n := protowire.ConsumeFixed32(buf)

			if n < 0 {
				return fmt.Errorf("invalid field %d, %w", num, protowire.ParseError(n))
			}

			buf = buf[n:]
			e.Arg = v
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)

			if n < 0 {
				return fmt.Errorf("invalid field %d, %w", num, protowire.ParseError(n))
			}

			buf = buf[n:]
		}
	}

	if e.Kind == 0 {
		return errors.New("missing event kind")
	}

	return nil
}
