// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"testing"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/field"
	"github.com/google/go-cmp/cmp"
)

func TestMinimumFrame(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"Empty", 0, true},
		{"ThreeBytes", 3, true},
		{"FourBytes", 4, false},
		{"Larger", 256, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.size)
			_, rerr := NewReader(buf)
			_, werr := NewWriter(buf)
			if (rerr != nil) != tt.wantErr {
				t.Errorf("NewReader() error = %v, wantErr %v", rerr, tt.wantErr)
			}
			if (werr != nil) != tt.wantErr {
				t.Errorf("NewWriter() error = %v, wantErr %v", werr, tt.wantErr)
			}
			if tt.wantErr && (!errors.Is(rerr, modbus.ErrBufferTooSmall) || !errors.Is(werr, modbus.ErrBufferTooSmall)) {
				t.Errorf("errors = %v / %v, want ErrBufferTooSmall", rerr, werr)
			}
		})
	}
}

func TestEmptyPayloadFrame(t *testing.T) {
	buf := make([]byte, 4)
	w, err := NewWriter(buf)
	if err != nil {
		t.Fatal(err)
	}
	frame := w.WriteStationNumber(0x11).WriteFunctionCode(0x01).WriteCRC()
	// CRC16(11 01) = 0x20cc
	want := []byte{0x11, 0x01, 0x20, 0xCC}
	if diff := cmp.Diff(want, frame.Bytes()); diff != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", diff)
	}

	r, err := NewReader(frame.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if r.StationNumber() != 0x11 || r.FunctionCode() != 0x01 {
		t.Errorf("header = %02x %02x", r.StationNumber(), byte(r.FunctionCode()))
	}
	if !r.CheckCRC() {
		t.Error("CheckCRC() = false on a freshly written frame")
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestWriterFields(t *testing.T) {
	buf := make([]byte, 32)
	w, err := NewWriter(buf)
	if err != nil {
		t.Fatal(err)
	}
	w = w.WriteStationNumber(0x11).WriteFunctionCode(modbus.FuncCodeReadBits)
	if w, err = WriteField[uint16](w, 0x0013, field.RemoteBigEndian); err != nil {
		t.Fatal(err)
	}
	if w, err = WriteField[uint16](w, 0x0025, field.RemoteBigEndian); err != nil {
		t.Fatal(err)
	}
	if w.Position() != 4 {
		t.Errorf("Position() = %d, want 4", w.Position())
	}
	frame := w.WriteCRC()

	want := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x84, 0x0E}
	if diff := cmp.Diff(want, frame.Bytes()); diff != "" {
		t.Fatalf("frame mismatch (-want +got):\n%s", diff)
	}
	if frame.Len() != 8 || len(buf) != 32 {
		t.Errorf("frame length %d over a %d byte buffer", frame.Len(), len(buf))
	}
	if got := frame.HexString(); got != "11 01 00 13 00 25 84 0e" {
		t.Errorf("HexString() = %q", got)
	}
	if frame.String() != frame.HexString() {
		t.Error("String() differs from HexString()")
	}
}

func TestReaderFields(t *testing.T) {
	raw := []byte{0x11, 0x01, 0x00, 0x13, 0x00, 0x25, 0x84, 0x0E}
	r, err := NewReader(raw)
	if err != nil {
		t.Fatal(err)
	}
	start, r, err := ReadField[uint16](r, field.RemoteBigEndian)
	if err != nil {
		t.Fatal(err)
	}
	count, r, err := ReadField[uint16](r, field.RemoteBigEndian)
	if err != nil {
		t.Fatal(err)
	}
	if start != 19 || count != 37 {
		t.Errorf("fields = %d, %d, want 19, 37", start, count)
	}
	if !r.CheckCRC() {
		t.Error("CheckCRC() = false")
	}
	if diff := cmp.Diff(raw, r.Span()); diff != "" {
		t.Errorf("Span mismatch (-want +got):\n%s", diff)
	}
	// The payload is exhausted; the CRC bytes are not payload.
	if _, _, err := ReadField[uint8](r, field.RemoteBigEndian); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("read past payload error = %v, want ErrBufferTooSmall", err)
	}
}

func TestReaderIsValue(t *testing.T) {
	raw := []byte{0x01, 0x03, 0xAA, 0xBB, 0xCC, 0x00, 0x00}
	r, _ := NewReader(raw)
	dst := make([]byte, 2)
	next, err := r.ReadPayload(dst)
	if err != nil {
		t.Fatal(err)
	}
	if r.Position() != 0 || next.Position() != 2 {
		t.Errorf("positions = %d/%d, want 0/2", r.Position(), next.Position())
	}
	if diff := cmp.Diff([]byte{0xAA, 0xBB}, dst); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
	if _, err := next.ReadPayload(make([]byte, 2)); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("ReadPayload over CRC error = %v, want ErrBufferTooSmall", err)
	}
}

func TestCheckCRCDoesNotConsume(t *testing.T) {
	raw := []byte{0x01, 0x03, 0x02, 0x12, 0x34, 0x33, 0xB5}
	r, _ := NewReader(raw)
	r, err := r.ReadPayload(make([]byte, 3))
	if err != nil {
		t.Fatal(err)
	}
	if !r.CheckCRC() || !r.CheckCRC() {
		t.Fatal("CheckCRC() = false")
	}
	if r.Position() != 3 {
		t.Errorf("Position() = %d after CheckCRC, want 3", r.Position())
	}
}

func TestWriterOverflowWritesNothing(t *testing.T) {
	buf := make([]byte, 6)
	w, _ := NewWriter(buf)
	w = w.WriteStationNumber(0x01).WriteFunctionCode(0x10)
	w, err := w.WritePayload([]byte{0xAA})
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.WritePayload([]byte{0xBB, 0xCC})
	var tooSmall *modbus.BufferTooSmallError
	if !errors.As(err, &tooSmall) {
		t.Fatalf("WritePayload error = %v, want *BufferTooSmallError", err)
	}
	if tooSmall.Need != 7 || tooSmall.Have != 6 {
		t.Errorf("BufferTooSmallError = %+v", tooSmall)
	}
	if diff := cmp.Diff([]byte{0x01, 0x10, 0xAA, 0, 0, 0}, buf); diff != "" {
		t.Errorf("buffer modified by failed write (-want +got):\n%s", diff)
	}
	if _, err := WriteField[uint32](w, 1, field.RemoteBigEndian); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("WriteField error = %v, want ErrBufferTooSmall", err)
	}
	if w.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", w.Remaining())
	}
}

func TestCRCDetectsCorruption(t *testing.T) {
	msg := NewWriteRecordsRequest(0x11, 0x0001, []uint16{0x000A, 0x0102, 0xFFFF, 0x1234})
	buf := make([]byte, MaxSize)
	frame, err := msg.Encode(buf)
	if err != nil {
		t.Fatal(err)
	}
	raw := frame.Bytes()
	payloadEnd := len(raw) - CRCSize
	for i := HeaderSize; i < payloadEnd; i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), raw...)
			corrupt[i] ^= 1 << bit

			r, _ := NewReader(corrupt)
			r, err := r.ReadPayload(make([]byte, payloadEnd-HeaderSize))
			if err != nil {
				t.Fatal(err)
			}
			if r.CheckCRC() {
				t.Errorf("flipping bit %d of byte %d went undetected", bit, i)
			}
		}
	}
}

func TestHexStringEmpty(t *testing.T) {
	if got := (Frame{}).HexString(); got != "" {
		t.Errorf("HexString() = %q, want empty", got)
	}
}
