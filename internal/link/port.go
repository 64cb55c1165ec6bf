// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package link exchanges RTU frames over a serial line.
package link

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ffutop/modbus-adu/internal/config"
	"github.com/grid-x/serial"
)

const (
	// Default timeout
	serialTimeout     = 5 * time.Second
	serialIdleTimeout = 60 * time.Second
)

// Port has configuration and I/O controller.
type Port struct {
	// Serial port configuration.
	serial.Config

	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	lastActivity time.Time
	idle         *time.Timer
	open         opener
}

// NewPort maps cfg to a serial configuration. The device is opened on the
// first exchange. A device of the form tcp://host:port is dialed instead.
func NewPort(cfg config.SerialConfig) *Port {
	p := &Port{open: openerFor(cfg.Device)}

	p.Config.Address = cfg.Device
	p.Config.BaudRate = cfg.BaudRate
	p.Config.DataBits = cfg.DataBits
	p.Config.StopBits = cfg.StopBits
	p.Config.Parity = cfg.Parity
	p.Config.Timeout = cfg.Timeout
	if p.Config.Timeout <= 0 {
		p.Config.Timeout = serialTimeout
	}
	if cfg.RS485 {
		p.Config.RS485.Enabled = true
		p.Config.RS485.DelayRtsBeforeSend = cfg.DelayRtsBeforeSend
		p.Config.RS485.DelayRtsAfterSend = cfg.DelayRtsAfterSend
		p.Config.RS485.RtsHighDuringSend = cfg.RtsHighDuringSend
		p.Config.RS485.RtsHighAfterSend = cfg.RtsHighAfterSend
		p.Config.RS485.RxDuringTx = cfg.RxDuringTx
	}

	p.IdleTimeout = cfg.IdleTimeout
	if p.IdleTimeout == 0 {
		p.IdleTimeout = serialIdleTimeout
	}
	return p
}

// NewPortWith wraps an already open stream, such as a pseudo terminal or a
// test double. Closing the Port closes rwc.
func NewPortWith(rwc io.ReadWriteCloser, cfg config.SerialConfig) *Port {
	p := NewPort(cfg)
	p.port = rwc
	p.open = func(*serial.Config) (io.ReadWriteCloser, error) {
		return nil, fmt.Errorf("port %s is closed", cfg.Device)
	}
	return p
}

func openSerial(c *serial.Config) (io.ReadWriteCloser, error) {
	return serial.Open(c)
}

// Connect opens the device now instead of on the first exchange.
func (p *Port) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ensureOpen(ctx)
}

// ensureOpen opens the device unless a stream is already held. Caller must
// hold the mutex.
func (p *Port) ensureOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.port != nil {
		return nil
	}
	stream, err := p.open(&p.Config)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
	}
	p.port = stream
	return nil
}

// Close releases the device and stops the idle timer.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.idle != nil {
		p.idle.Stop()
	}
	return p.release()
}

// release drops the stream so the next exchange reopens the device. Caller
// must hold the mutex.
func (p *Port) release() error {
	stream := p.port
	p.port = nil
	if stream == nil {
		return nil
	}
	return stream.Close()
}

// touch records activity and rearms the idle timer. Caller must hold the
// mutex.
func (p *Port) touch() {
	p.lastActivity = time.Now()
	if p.IdleTimeout <= 0 {
		return
	}
	if p.idle == nil {
		p.idle = time.AfterFunc(p.IdleTimeout, p.expire)
		return
	}
	p.idle.Reset(p.IdleTimeout)
}

// expire runs on the idle timer. An exchange that raced the timer keeps the
// stream open.
func (p *Port) expire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil || p.IdleTimeout <= 0 {
		return
	}
	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		slog.Debug("closing idle device", "device", p.Config.Address, "idle", idle)
		p.release()
	}
}
