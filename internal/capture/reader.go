// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"
	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/field"
)

// Reader iterates the records of a capture file mapped into memory.
type Reader struct {
	file *os.File
	data mmap.MMap
	r    *bytes.Reader
}

// Open maps path read-only.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	cr := &Reader{file: f}
	// A zero length mapping is rejected by the OS.
	if fi.Size() > 0 {
		data, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("mmap failed: %w", err)
		}
		cr.data = data
	}
	cr.r = bytes.NewReader(cr.data)
	return cr, nil
}

// Next returns the next record, or io.EOF after the last one. A record cut
// short by the end of the file yields an error matching
// modbus.ErrTruncatedFrame. Frame is a copy and outlives Close.
func (cr *Reader) Next() (Record, error) {
	if cr.r.Len() == 0 {
		return Record{}, io.EOF
	}
	if cr.r.Len() < headerSize {
		return Record{}, &modbus.TruncatedFrameError{Need: headerSize, Got: cr.r.Len()}
	}

	ts, err := field.Read[uint64](cr.r, field.RemoteBigEndian)
	if err != nil {
		return Record{}, err
	}
	dir, err := field.Read[uint8](cr.r, field.RemoteBigEndian)
	if err != nil {
		return Record{}, err
	}
	length, err := field.Read[uint16](cr.r, field.RemoteBigEndian)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Time:      time.Unix(0, int64(ts)),
		Direction: Direction(dir),
		Frame:     make([]byte, length),
	}
	if n, err := io.ReadFull(cr.r, rec.Frame); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, &modbus.TruncatedFrameError{Need: int(length), Got: n}
		}
		return Record{}, err
	}
	if err := validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Close unmaps and closes the file. Next returns io.EOF afterwards.
func (cr *Reader) Close() error {
	var err error
	cr.r = bytes.NewReader(nil)
	if cr.data != nil {
		if e := cr.data.Unmap(); e != nil {
			err = e
		}
		cr.data = nil
	}
	if cr.file != nil {
		if e := cr.file.Close(); e != nil && err == nil {
			err = e
		}
		cr.file = nil
	}
	return err
}
