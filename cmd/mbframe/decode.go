// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ffutop/modbus-adu/internal/capture"
	"github.com/ffutop/modbus-adu/modbus/rtu"
	"github.com/spf13/pflag"
)

var errCRC = errors.New("crc mismatch")

func decodeFlags(fs *pflag.FlagSet) {
	fs.Bool("response", false, "Decode as a response instead of a request.")
	fs.Bool("stream", false, "Split back-to-back requests and decode each one.")
	fs.String("as", "uint16", "Type used to render record data.")
}

// parseHex accepts bytes as "11 01 00 13", "11010013" or "0x11,0x01".
func parseHex(args []string) ([]byte, error) {
	s := strings.Join(args, " ")
	s = strings.NewReplacer("0x", " ", "0X", " ", ",", " ", ":", " ").Replace(s)
	s = strings.Join(strings.Fields(s), "")
	p, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex frame: %w", err)
	}
	return p, nil
}

// renderer formats record data for display.
type renderer struct {
	codec fieldCodec
	order binary.ByteOrder
}

func newRenderer(e *env) (renderer, error) {
	typ := "uint16"
	if f := e.flags.Lookup("as"); f != nil {
		typ = f.Value.String()
	}
	codec, err := lookupFieldType(typ)
	if err != nil {
		return renderer{}, err
	}
	order, err := e.cfg.Frame.Order()
	if err != nil {
		return renderer{}, err
	}
	return renderer{codec: codec, order: order}, nil
}

func (r renderer) values(data []byte) string {
	return "[" + strings.Join(r.codec.format(data, r.order), " ") + "]"
}

func bitString(bits []bool) string {
	var b strings.Builder
	for _, v := range bits {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// describe prints the header line and the fields of a decoded message.
func describe(w io.Writer, r renderer, station byte, msg rtu.Message, crcOK bool) {
	crc := "ok"
	if !crcOK {
		crc = "bad"
	}
	fmt.Fprintf(w, "%s station=%d crc=%s\n", msg.FunctionCode(), station, crc)

	switch m := msg.(type) {
	case rtu.ReadBitsRequest:
		fmt.Fprintf(w, "  start_address=%d bit_count=%d\n", m.StartAddress, m.BitCount)
	case rtu.ReadBitsResponse:
		fmt.Fprintf(w, "  byte_count=%d bits=%s\n", m.ByteCount(), bitString(m.Bits(8*m.ByteCount())))
	case rtu.ReadRecordsRequest:
		fmt.Fprintf(w, "  start_address=%d record_count=%d\n", m.StartAddress, m.RecordCount)
	case rtu.ReadRecordsResponse:
		fmt.Fprintf(w, "  byte_count=%d values=%s\n", m.ByteCount(), r.values(m.Data))
	case rtu.WriteSingleBitRequest:
		fmt.Fprintf(w, "  address=%d value=%t\n", m.Address, m.Value)
	case rtu.WriteBitsRequest:
		fmt.Fprintf(w, "  start_address=%d bit_count=%d byte_count=%d bits=%s\n", m.StartAddress, m.BitCount, len(m.Data), bitString(m.Bits()))
	case rtu.WriteBitsResponse:
		fmt.Fprintf(w, "  start_address=%d bit_count=%d\n", m.StartAddress, m.BitCount)
	case rtu.WriteRecordsRequest:
		fmt.Fprintf(w, "  start_address=%d record_count=%d byte_count=%d values=%s\n", m.StartAddress, m.RecordCount, len(m.Data), r.values(m.Data))
	case rtu.WriteRecordsResponse:
		fmt.Fprintf(w, "  start_address=%d record_count=%d\n", m.StartAddress, m.RecordCount)
	case rtu.ExceptionResponse:
		fmt.Fprintf(w, "  function=%s code=0x%02x (%s)\n", m.Function, byte(m.Code), m.Code)
	}
}

func decodeFrame(raw []byte, response bool) (rtu.Message, bool, error) {
	if response {
		return rtu.DecodeResponse(raw)
	}
	return rtu.DecodeRequest(raw)
}

func runDecode(_ context.Context, e *env, args []string) error {
	raw, err := parseHex(args)
	if err != nil {
		return err
	}
	r, err := newRenderer(e)
	if err != nil {
		return err
	}
	response, _ := e.flags.GetBool("response")

	if stream, _ := e.flags.GetBool("stream"); stream {
		return decodeStream(e.out, r, raw)
	}

	msg, ok, err := decodeFrame(raw, response)
	if err != nil {
		return err
	}
	describe(e.out, r, raw[0], msg, ok)
	if !ok {
		return errCRC
	}
	return nil
}

func decodeStream(w io.Writer, r renderer, raw []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Split(rtu.ScanRequests)

	bad := 0
	for sc.Scan() {
		frame := sc.Bytes()
		msg, ok, err := rtu.DecodeRequest(frame)
		if err != nil {
			return fmt.Errorf("frame % x: %w", frame, err)
		}
		describe(w, r, frame[0], msg, ok)
		if !ok {
			bad++
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if bad > 0 {
		return fmt.Errorf("%d frames: %w", bad, errCRC)
	}
	return nil
}

func runReplay(_ context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("replay: want one capture file")
	}
	r, err := newRenderer(e)
	if err != nil {
		return err
	}

	cr, err := capture.Open(args[0])
	if err != nil {
		return err
	}
	defer cr.Close()

	var records, crcErrors, decodeErrors int
	for {
		rec, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("replay: record %d: %w", records+1, err)
		}
		records++

		fmt.Fprintf(e.out, "%s %s % x\n", rec.Time.Format(time.RFC3339Nano), rec.Direction, rec.Frame)
		msg, ok, err := decodeFrame(rec.Frame, rec.Direction == capture.Rx)
		if err != nil {
			decodeErrors++
			fmt.Fprintf(e.out, "  error: %v\n", err)
			continue
		}
		if !ok {
			crcErrors++
		}
		describe(e.out, r, rec.Frame[0], msg, ok)
	}

	slog.Info("replayed capture", "file", args[0], "records", records, "crc_errors", crcErrors, "decode_errors", decodeErrors)
	return nil
}
