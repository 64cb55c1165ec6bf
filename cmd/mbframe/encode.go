// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ffutop/modbus-adu/internal/capture"
	"github.com/ffutop/modbus-adu/internal/link"
	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/rtu"
)

func encodeMessage(e *env, args []string) (rtu.Frame, error) {
	if len(args) != 1 {
		return rtu.Frame{}, fmt.Errorf("want one message (%s)", messageNames())
	}
	msg, err := buildMessage(args[0], e.cfg.Frame.Station, e.flags)
	if err != nil {
		return rtu.Frame{}, err
	}
	frame, err := msg.Encode(make([]byte, rtu.MaxSize))
	if err != nil {
		return rtu.Frame{}, fmt.Errorf("failed to encode %s: %w", args[0], err)
	}
	slog.Debug("encoded frame", "message", args[0], "function", msg.FunctionCode(), "frame", frame.HexString())
	return frame, nil
}

func runEncode(_ context.Context, e *env, args []string) error {
	frame, err := encodeMessage(e, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, frame.HexString())
	return nil
}

func runSend(ctx context.Context, e *env, args []string) error {
	if response, _ := e.flags.GetBool("response"); response {
		return fmt.Errorf("send: only requests can be sent")
	}
	request, err := encodeMessage(e, args)
	if err != nil {
		return err
	}
	r, err := newRenderer(e)
	if err != nil {
		return err
	}

	port := link.NewPort(e.cfg.Serial)
	defer port.Close()

	var resp []byte
	if path := e.cfg.Capture.Path; path != "" {
		w, err := capture.Create(path)
		if err != nil {
			return err
		}
		defer w.Close()
		resp, err = port.ExchangeRecorded(ctx, request, w)
		if err != nil {
			return err
		}
	} else if resp, err = port.Exchange(ctx, request); err != nil {
		return err
	}

	fmt.Fprintf(e.out, "> %s\n", request.HexString())
	if resp == nil {
		fmt.Fprintln(e.out, "broadcast, no response expected")
		return nil
	}
	fmt.Fprintf(e.out, "< % x\n", resp)

	msg, ok, err := rtu.DecodeResponse(resp)
	if err != nil {
		return err
	}
	describe(e.out, r, resp[0], msg, ok)
	if !ok {
		return errCRC
	}
	if want := modbus.FunctionCode(request.Bytes()[1]); !want.Matches(msg.FunctionCode()) {
		return &modbus.UnexpectedFunctionCodeError{Want: want, Got: msg.FunctionCode()}
	}
	if exc, isException := msg.(rtu.ExceptionResponse); isException {
		return exc.Err()
	}
	return nil
}
