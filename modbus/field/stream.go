// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package field

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ffutop/modbus-adu/modbus"
)

// Read reads exactly Size[T]() bytes from r and decodes them. Running out of
// input, even before the first byte, is reported as a truncated frame.
func Read[T Number](r io.Reader, order binary.ByteOrder) (T, error) {
	var buf [8]byte
	size := Size[T]()
	n, err := io.ReadFull(r, buf[:size])
	if err != nil {
		var v T
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return v, &modbus.TruncatedFrameError{Need: size, Got: n}
		}
		return v, fmt.Errorf("field: read %d bytes: %w", size, err)
	}
	return Decode[T](buf[:size], order)
}

// Write encodes v and writes it to w.
func Write[T Number](w io.Writer, v T, order binary.ByteOrder) error {
	var buf [8]byte
	size := Size[T]()
	if err := Encode(v, order, buf[:size]); err != nil {
		return err
	}
	if _, err := w.Write(buf[:size]); err != nil {
		return fmt.Errorf("field: write %d bytes: %w", size, err)
	}
	return nil
}
