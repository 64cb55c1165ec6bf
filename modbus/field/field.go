// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package field encodes and decodes fixed-width numbers in an explicit byte
// order, either against a byte slice or through an io.Reader / io.Writer.
package field

import (
	"encoding/binary"
	"math"

	"github.com/ffutop/modbus-adu/modbus"
)

// Byte order presets for the remote end of a link. Modbus payload fields
// are big-endian on the wire.
var (
	RemoteBigEndian    binary.ByteOrder = binary.BigEndian
	RemoteLittleEndian binary.ByteOrder = binary.LittleEndian
)

// Number is the set of fixed-width values the codec knows how to lay out.
type Number interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// Size returns the encoded width of T in bytes.
func Size[T Number]() int {
	var v T
	switch any(v).(type) {
	case int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		return 8
	}
}

// Decode reads a T from the front of buf.
func Decode[T Number](buf []byte, order binary.ByteOrder) (T, error) {
	var v T
	size := Size[T]()
	if len(buf) < size {
		return v, &modbus.BufferTooSmallError{Need: size, Have: len(buf)}
	}
	var raw uint64
	switch size {
	case 1:
		raw = uint64(buf[0])
	case 2:
		raw = uint64(order.Uint16(buf))
	case 4:
		raw = uint64(order.Uint32(buf))
	default:
		raw = order.Uint64(buf)
	}
	return fromBits[T](raw), nil
}

// Encode writes v to the front of out. Nothing is written if out is short.
func Encode[T Number](v T, order binary.ByteOrder, out []byte) error {
	size := Size[T]()
	if len(out) < size {
		return &modbus.BufferTooSmallError{Need: size, Have: len(out)}
	}
	raw := toBits(v)
	switch size {
	case 1:
		out[0] = byte(raw)
	case 2:
		order.PutUint16(out, uint16(raw))
	case 4:
		order.PutUint32(out, uint32(raw))
	default:
		order.PutUint64(out, raw)
	}
	return nil
}

// toBits returns the two's complement or IEEE-754 bit pattern of v,
// truncated to its own width.
func toBits[T Number](v T) uint64 {
	switch x := any(v).(type) {
	case int8:
		return uint64(uint8(x))
	case uint8:
		return uint64(x)
	case int16:
		return uint64(uint16(x))
	case uint16:
		return uint64(x)
	case int32:
		return uint64(uint32(x))
	case uint32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	}
	return 0
}

func fromBits[T Number](raw uint64) T {
	var v T
	switch p := any(&v).(type) {
	case *int8:
		*p = int8(raw)
	case *uint8:
		*p = uint8(raw)
	case *int16:
		*p = int16(raw)
	case *uint16:
		*p = uint16(raw)
	case *int32:
		*p = int32(raw)
	case *uint32:
		*p = uint32(raw)
	case *int64:
		*p = int64(raw)
	case *uint64:
		*p = raw
	case *float32:
		*p = math.Float32frombits(uint32(raw))
	case *float64:
		*p = math.Float64frombits(raw)
	}
	return v
}
