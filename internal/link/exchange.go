// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ffutop/modbus-adu/internal/capture"
	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/rtu"
)

// Recorder receives every frame the Port sends or receives.
type Recorder interface {
	Write(rec capture.Record) error
}

// Exchange writes request, waits for the line to settle and reads the
// matching response. There is no retry. The returned slice is owned by the
// caller. A broadcast request (station 0) gets no answer and returns nil.
func (p *Port) Exchange(ctx context.Context, request rtu.Frame) ([]byte, error) {
	return p.exchange(ctx, request, nil)
}

// ExchangeRecorded is Exchange with both frames handed to rec.
func (p *Port) ExchangeRecorded(ctx context.Context, request rtu.Frame, rec Recorder) ([]byte, error) {
	return p.exchange(ctx, request, rec)
}

func (p *Port) exchange(ctx context.Context, request rtu.Frame, rec Recorder) (response []byte, err error) {
	aduRequest := request.Bytes()
	if len(aduRequest) < rtu.MinSize {
		return nil, &modbus.BufferTooSmallError{Need: rtu.MinSize, Have: len(aduRequest)}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err = p.ensureOpen(ctx); err != nil {
		return
	}
	p.touch()

	deadline := time.Now().Add(p.Config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if conn, ok := p.port.(deadliner); ok {
		if err = conn.SetDeadline(deadline.Add(p.calculateDelay(rtu.MaxSize))); err != nil {
			p.release()
			return nil, err
		}
	}

	slog.Debug("send to modbus slave", "device", p.Config.Address, "request", request.HexString())
	if _, err = p.port.Write(aduRequest); err != nil {
		// Force a reopen on the next exchange.
		p.release()
		return nil, fmt.Errorf("failed to write request: %w", err)
	}
	record(rec, capture.Tx, aduRequest)

	if aduRequest[0] == 0 {
		return nil, nil
	}

	bytesToRead := rtu.ResponseLength(aduRequest)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(p.calculateDelay(len(aduRequest) + bytesToRead)):
	}

	data, err := rtu.ReadResponse(aduRequest[0], modbus.FunctionCode(aduRequest[1]), p.port, deadline)
	if err != nil {
		if _, ok := p.port.(deadliner); ok {
			// A stream left mid-frame cannot be resynchronized.
			p.release()
		}
		return nil, err
	}
	slog.Debug("recv from modbus slave", "device", p.Config.Address, "response", fmt.Sprintf("% x", data))
	response = append([]byte(nil), data...)
	record(rec, capture.Rx, response)
	return response, nil
}

func record(rec Recorder, dir capture.Direction, frame []byte) {
	if rec == nil {
		return
	}
	if err := rec.Write(capture.Record{Time: time.Now(), Direction: dir, Frame: frame}); err != nil {
		slog.Error("failed to capture frame", "direction", dir, "err", err)
	}
}

// calculateDelay calculates the needed delay to separate frames.
func (p *Port) calculateDelay(chars int) time.Duration {
	var characterDelay, frameDelay int

	if p.BaudRate <= 0 || p.BaudRate > 19200 {
		characterDelay = 750
		frameDelay = 1750
	} else {
		characterDelay = 15000000 / p.BaudRate
		frameDelay = 35000000 / p.BaudRate
	}
	return time.Duration(characterDelay*chars+frameDelay) * time.Microsecond
}
