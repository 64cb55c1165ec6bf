// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package field

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/google/go-cmp/cmp"
)

func TestSize(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"int8", Size[int8](), 1},
		{"uint8", Size[uint8](), 1},
		{"int16", Size[int16](), 2},
		{"uint16", Size[uint16](), 2},
		{"int32", Size[int32](), 4},
		{"uint32", Size[uint32](), 4},
		{"float32", Size[float32](), 4},
		{"int64", Size[int64](), 8},
		{"uint64", Size[uint64](), 8},
		{"float64", Size[float64](), 8},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("Size[%s]() = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	tests := []struct {
		name   string
		encode func([]byte) error
		want   []byte
	}{
		{"uint16 big", func(b []byte) error { return Encode[uint16](0x1234, RemoteBigEndian, b) }, []byte{0x12, 0x34}},
		{"uint16 little", func(b []byte) error { return Encode[uint16](0x1234, RemoteLittleEndian, b) }, []byte{0x34, 0x12}},
		{"int16 negative", func(b []byte) error { return Encode[int16](-2, RemoteBigEndian, b) }, []byte{0xFF, 0xFE}},
		{"uint32 big", func(b []byte) error { return Encode[uint32](0x01020304, RemoteBigEndian, b) }, []byte{0x01, 0x02, 0x03, 0x04}},
		{"int32 little", func(b []byte) error { return Encode[int32](-1, RemoteLittleEndian, b) }, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		{"float32 big", func(b []byte) error { return Encode[float32](1.0, RemoteBigEndian, b) }, []byte{0x3F, 0x80, 0x00, 0x00}},
		{"float64 little", func(b []byte) error { return Encode[float64](1.0, RemoteLittleEndian, b) }, []byte{0, 0, 0, 0, 0, 0, 0xF0, 0x3F}},
		{"uint64 big", func(b []byte) error { return Encode[uint64](0x0102030405060708, RemoteBigEndian, b) }, []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{"int8", func(b []byte) error { return Encode[int8](-128, RemoteBigEndian, b) }, []byte{0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, len(tt.want))
			if err := tt.encode(buf); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, buf); diff != "" {
				t.Errorf("encoded bytes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func roundTrip[T Number](t *testing.T, values []T) {
	t.Helper()
	for _, order := range []binary.ByteOrder{RemoteBigEndian, RemoteLittleEndian} {
		buf := make([]byte, Size[T]())
		for _, v := range values {
			if err := Encode(v, order, buf); err != nil {
				t.Fatalf("Encode(%v, %v) failed: %v", v, order, err)
			}
			got, err := Decode[T](buf, order)
			if err != nil {
				t.Fatalf("Decode(%v) failed: %v", order, err)
			}
			if got != v {
				t.Errorf("round trip %v with %v = %v", v, order, got)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	roundTrip(t, []int8{math.MinInt8, -1, 0, 1, math.MaxInt8})
	roundTrip(t, []uint8{0, 1, 0x7F, 0xFF})
	roundTrip(t, []int16{math.MinInt16, -1, 0, 0x1234, math.MaxInt16})
	roundTrip(t, []uint16{0, 0x0013, 0xFF00, math.MaxUint16})
	roundTrip(t, []int32{math.MinInt32, -70000, 0, math.MaxInt32})
	roundTrip(t, []uint32{0, 0xDEADBEEF, math.MaxUint32})
	roundTrip(t, []int64{math.MinInt64, -1, 0, math.MaxInt64})
	roundTrip(t, []uint64{0, 0x0102030405060708, math.MaxUint64})
	roundTrip(t, []float32{0, -1.5, math.MaxFloat32, math.SmallestNonzeroFloat32, float32(math.Inf(-1))})
	roundTrip(t, []float64{0, 3.141592653589793, -math.MaxFloat64, math.Inf(1)})
}

func TestDecodeUsesFrontOfBuffer(t *testing.T) {
	got, err := Decode[uint16]([]byte{0x00, 0x25, 0xAA, 0xBB}, RemoteBigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if got != 37 {
		t.Errorf("Decode = %d, want 37", got)
	}
}

func TestShortBuffer(t *testing.T) {
	if _, err := Decode[uint32]([]byte{1, 2, 3}, RemoteBigEndian); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("Decode short buffer error = %v, want ErrBufferTooSmall", err)
	}

	out := []byte{0xAA, 0xBB, 0xCC}
	err := Encode[uint32](0x01020304, RemoteBigEndian, out)
	var tooSmall *modbus.BufferTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("Encode short buffer error = %v, want *BufferTooSmallError", err)
	}
	if tooSmall.Need != 4 || tooSmall.Have != 3 {
		t.Errorf("BufferTooSmallError = %+v", tooSmall)
	}
	if diff := cmp.Diff([]byte{0xAA, 0xBB, 0xCC}, out); diff != "" {
		t.Errorf("short buffer was modified (-want +got):\n%s", diff)
	}
}

func TestStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Write[uint16](&buf, 0x0013, RemoteBigEndian); err != nil {
		t.Fatal(err)
	}
	if err := Write[float32](&buf, 2.5, RemoteLittleEndian); err != nil {
		t.Fatal(err)
	}
	if err := Write[int64](&buf, -42, RemoteBigEndian); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2+4+8 {
		t.Fatalf("stream length = %d, want 14", buf.Len())
	}

	r := bytes.NewReader(buf.Bytes())
	a, err := Read[uint16](r, RemoteBigEndian)
	if err != nil || a != 0x0013 {
		t.Fatalf("Read[uint16] = %v, %v", a, err)
	}
	f, err := Read[float32](r, RemoteLittleEndian)
	if err != nil || f != 2.5 {
		t.Fatalf("Read[float32] = %v, %v", f, err)
	}
	i, err := Read[int64](r, RemoteBigEndian)
	if err != nil || i != -42 {
		t.Fatalf("Read[int64] = %v, %v", i, err)
	}
}

func TestStreamTruncated(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		got   int
	}{
		{"Empty", nil, 0},
		{"Partial", []byte{0x01, 0x02, 0x03}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read[uint32](bytes.NewReader(tt.input), RemoteBigEndian)
			var truncated *modbus.TruncatedFrameError
			if !errors.As(err, &truncated) {
				t.Fatalf("Read error = %v, want *TruncatedFrameError", err)
			}
			if truncated.Need != 4 || truncated.Got != tt.got {
				t.Errorf("TruncatedFrameError = %+v", truncated)
			}
			if !errors.Is(err, modbus.ErrTruncatedFrame) {
				t.Error("error does not match ErrTruncatedFrame")
			}
		})
	}
}

type failingIO struct{}

func (failingIO) Read([]byte) (int, error)  { return 0, io.ErrClosedPipe }
func (failingIO) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestStreamErrorsAreWrapped(t *testing.T) {
	if _, err := Read[uint16](failingIO{}, RemoteBigEndian); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Read error = %v, want wrapped io.ErrClosedPipe", err)
	}
	if err := Write[uint16](failingIO{}, 1, RemoteBigEndian); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("Write error = %v, want wrapped io.ErrClosedPipe", err)
	}
}
