// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ffutop/modbus-adu/internal/capture"
	"github.com/ffutop/modbus-adu/modbus"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"ReadBits", []string{"encode", "read-bits", "-s", "17", "-a", "19", "-n", "37"}, "11 01 00 13 00 25 84 0e\n"},
		{"ReadRecords", []string{"encode", "read-records", "--station", "1", "--address", "0", "--count", "1"}, "01 03 00 00 00 01 0a 84\n"},
		{"ReadRecordsResponse", []string{"encode", "read-records", "--response", "-s", "1", "-r", "0x1234"}, "01 03 02 12 34 33 b5\n"},
		{"WriteBit", []string{"encode", "write-bit", "-s", "17", "-a", "172", "--value"}, "11 05 00 ac ff 00 8b 4e\n"},
		{"WriteBits", []string{"encode", "write-bits", "-s", "17", "-a", "19", "-b", "1,0,1,1,0,0,1,1,1,0"}, "11 0f 00 13 00 0a 02 cd 01 0b bf\n"},
		{"WriteRecords", []string{"encode", "write-records", "-s", "17", "-a", "1", "-r", "10,0x0102"}, "11 10 00 01 00 02 04 00 0a 01 02 f0 c6\n"},
		{"Exception", []string{"encode", "exception", "-s", "1", "-f", "read-records", "--code", "2"}, "01 83 02 f1 c0\n"},
		{"ExceptionNumeric", []string{"encode", "exception", "-s", "1", "-f", "0x03", "--code", "2"}, "01 83 02 f1 c0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	if _, err := runCLI(t, "encode", "read-records", "-n", "0"); !errors.Is(err, modbus.ErrInvalidFieldValue) {
		t.Errorf("zero count error = %v, want ErrInvalidFieldValue", err)
	}
	if _, err := runCLI(t, "encode", "read-records", "-n", "126"); !errors.Is(err, modbus.ErrInvalidFieldValue) {
		t.Errorf("oversized count error = %v, want ErrInvalidFieldValue", err)
	}
	if _, err := runCLI(t, "encode", "read-everything"); err == nil {
		t.Error("expected error for unknown message")
	}
	if _, err := runCLI(t, "encode", "exception"); err == nil {
		t.Error("expected error for exception without --function")
	}
	if _, err := runCLI(t, "encode", "write-bits", "-b", "1,maybe"); err == nil {
		t.Error("expected error for invalid bit")
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			"ReadBitsRequest",
			[]string{"decode", "11 01 00 13 00 25 84 0e"},
			[]string{"read-bits station=17 crc=ok", "start_address=19 bit_count=37"},
		},
		{
			"CompactHex",
			[]string{"decode", "110100130025840e"},
			[]string{"read-bits station=17 crc=ok"},
		},
		{
			"Exception",
			[]string{"decode", "--response", "01", "83", "02", "f1", "c0"},
			[]string{"read-records (exception) station=1 crc=ok", "code=0x02 (illegal data address)"},
		},
		{
			"ReadBitsResponse",
			[]string{"decode", "--response", "11 01 03 cd 6b 05 12 40"},
			[]string{"byte_count=3 bits=101100111101011010100000"},
		},
		{
			"Float",
			[]string{"decode", "--response", "--as", "float32", "01 03 04 3f c0 00 00 1b f6"},
			[]string{"byte_count=4 values=[1.5]"},
		},
		{
			"WriteRecords",
			[]string{"decode", "0x11,0x10,0x00,0x01,0x00,0x02,0x04,0x00,0x0a,0x01,0x02,0xf0,0xc6"},
			[]string{"write-records station=17 crc=ok", "values=[10 258]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("output %q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	out, err := runCLI(t, "decode", "11 01 00 13 00 25 0e 84")
	if !errors.Is(err, errCRC) {
		t.Errorf("swapped CRC error = %v, want errCRC", err)
	}
	if !strings.Contains(out, "crc=bad") {
		t.Errorf("output %q does not report the bad CRC", out)
	}

	if _, err := runCLI(t, "decode", "11 01 00"); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("short frame error = %v, want ErrBufferTooSmall", err)
	}
	if _, err := runCLI(t, "decode", "zz"); err == nil {
		t.Error("expected error for invalid hex")
	}
	if _, err := runCLI(t, "decode", "01 83 02 f1 c0"); !errors.Is(err, modbus.ErrUnexpectedFunctionCode) {
		t.Errorf("exception decoded as request error = %v", err)
	}
}

func TestDecodeStream(t *testing.T) {
	out, err := runCLI(t, "decode", "--stream",
		"11 01 00 13 00 25 84 0e",
		"11 10 00 01 00 02 04 00 0a 01 02 f0 c6",
		"11 05 00 ac ff 00 8b 4e")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{"read-bits station=17", "write-records station=17", "write-single-bit station=17", "value=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}

	if _, err := runCLI(t, "decode", "--stream", "11 01 00 13 00 25 84 0e 11 10 00"); !errors.Is(err, modbus.ErrTruncatedFrame) {
		t.Errorf("truncated stream error = %v, want ErrTruncatedFrame", err)
	}
}

func TestField(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"Float32Big", []string{"field", "-t", "float32", "1.5"}, "3f c0 00 00\n"},
		{"Float32Little", []string{"field", "-t", "float32", "--byte-order", "little", "1.5"}, "00 00 c0 3f\n"},
		{"Int16", []string{"field", "-t", "int16", "--", "-2"}, "ff fe\n"},
		{"Uint32Hex", []string{"field", "-t", "uint32", "0x01020304"}, "01 02 03 04\n"},
		{"DecodeInt16", []string{"field", "-t", "int16", "--decode", "ff fe"}, "-2\n"},
		{"DecodeUint16Little", []string{"field", "--byte-order", "little", "--decode", "34 12"}, "4660\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runCLI(t, tt.args...)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := runCLI(t, "field", "-t", "int8", "300"); err == nil {
		t.Error("expected range error")
	}
	if _, err := runCLI(t, "field", "-t", "int128", "1"); err == nil {
		t.Error("expected unknown type error")
	}
	if _, err := runCLI(t, "field", "-t", "uint32", "--decode", "01 02"); !errors.Is(err, modbus.ErrBufferTooSmall) {
		t.Errorf("short decode error = %v, want ErrBufferTooSmall", err)
	}
}

func TestReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.cap")
	w, err := capture.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	records := []capture.Record{
		{Time: now, Direction: capture.Tx, Frame: []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x0A, 0x84}},
		{Time: now, Direction: capture.Rx, Frame: []byte{0x01, 0x03, 0x02, 0x12, 0x34, 0x33, 0xB5}},
		{Time: now, Direction: capture.Rx, Frame: []byte{0x01, 0x03, 0x02, 0x12, 0x34, 0xB5, 0x33}},
		{Time: now, Direction: capture.Rx, Frame: []byte{0x01, 0x41, 0x00, 0x00}},
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "replay", path)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	for _, want := range []string{
		"tx 01 03 00 00 00 01 0a 84",
		"start_address=0 record_count=1",
		"rx 01 03 02 12 34 33 b5",
		"values=[4660]",
		"crc=bad",
		"error: modbus: unsupported function code 0x41",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}

	if _, err := runCLI(t, "replay"); err == nil {
		t.Error("expected error without a capture file")
	}
}

func TestSendRejectsResponse(t *testing.T) {
	if _, err := runCLI(t, "send", "read-records", "--response"); err == nil {
		t.Error("expected error sending a response")
	}
}

func TestUsage(t *testing.T) {
	out, err := runCLI(t)
	if !errors.Is(err, errUsage) {
		t.Errorf("error = %v, want errUsage", err)
	}
	for _, want := range []string{"encode <message>", "replay <capture-file>", "read-records"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage %q does not contain %q", out, want)
		}
	}
	if _, err := runCLI(t, "frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}
