// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package capture stores exchanged RTU frames in an append-only file.
//
// Record layout, all integers big-endian:
//   - Timestamp: 8 bytes, Unix nanoseconds
//   - Direction: 1 byte, 0 = sent, 1 = received
//   - Length:    2 bytes
//   - Frame:     Length bytes
package capture

import (
	"fmt"
	"time"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/rtu"
)

// Direction tells whether a frame was sent or received.
type Direction uint8

const (
	Tx Direction = iota
	Rx
)

func (d Direction) String() string {
	switch d {
	case Tx:
		return "tx"
	case Rx:
		return "rx"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// Record is one captured frame.
type Record struct {
	Time      time.Time
	Direction Direction
	Frame     []byte
}

const headerSize = 8 + 1 + 2

func validate(rec Record) error {
	if rec.Direction > Rx {
		return &modbus.InvalidFieldValueError{Field: "direction", Value: int(rec.Direction)}
	}
	if len(rec.Frame) > rtu.MaxSize {
		return &modbus.InvalidFieldValueError{Field: "length", Value: len(rec.Frame)}
	}
	return nil
}
