// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/ffutop/modbus-adu/modbus/field"
)

// Writer appends records. It is safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	w     *bufio.Writer
	close func() error
}

// Create opens path for appending, creating it if necessary.
func Create(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	w := NewWriter(f)
	w.close = f.Close
	return w, nil
}

// NewWriter returns a Writer appending to w. Close flushes but does not
// close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends rec and flushes it, so that a crash loses at most the
// record being written.
func (w *Writer) Write(rec Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := field.Write(w.w, uint64(rec.Time.UnixNano()), field.RemoteBigEndian); err != nil {
		return err
	}
	if err := field.Write(w.w, uint8(rec.Direction), field.RemoteBigEndian); err != nil {
		return err
	}
	if err := field.Write(w.w, uint16(len(rec.Frame)), field.RemoteBigEndian); err != nil {
		return err
	}
	if _, err := w.w.Write(rec.Frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush capture: %w", err)
	}
	slog.Debug("captured frame", "direction", rec.Direction, "length", len(rec.Frame))
	return nil
}

// Close flushes buffered data and closes the file opened by Create.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.w.Flush()
	if w.close != nil {
		if e := w.close(); e != nil && err == nil {
			err = e
		}
		w.close = nil
	}
	return err
}
