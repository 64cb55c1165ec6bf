// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/crc"
	"github.com/ffutop/modbus-adu/modbus/field"
)

// Reader overlays a received frame. It is a value: every read returns the
// advanced Reader and leaves the receiver untouched, so payload fields are
// consumed in protocol order. The buffer is never modified.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader over buf, which must hold at least a station
// number, a function code and a CRC. buf may be longer than the frame.
func NewReader(buf []byte) (Reader, error) {
	if len(buf) < MinSize {
		return Reader{}, &modbus.BufferTooSmallError{Need: MinSize, Have: len(buf)}
	}
	return Reader{buf: buf}, nil
}

func (r Reader) StationNumber() byte {
	return r.buf[0]
}

func (r Reader) FunctionCode() modbus.FunctionCode {
	return modbus.FunctionCode(r.buf[1])
}

// Position returns the number of payload bytes read so far.
func (r Reader) Position() int {
	return r.pos
}

// Remaining returns how many payload bytes can still be read while leaving
// room for the CRC.
func (r Reader) Remaining() int {
	return len(r.buf) - MinSize - r.pos
}

// Next returns the next n payload bytes without copying them.
func (r Reader) Next(n int) ([]byte, Reader, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r, &modbus.BufferTooSmallError{Need: MinSize + r.pos + n, Have: len(r.buf)}
	}
	start := HeaderSize + r.pos
	r.pos += n
	return r.buf[start : start+n : start+n], r, nil
}

// ReadPayload copies the next len(dst) payload bytes into dst.
func (r Reader) ReadPayload(dst []byte) (Reader, error) {
	p, next, err := r.Next(len(dst))
	if err != nil {
		return r, err
	}
	copy(dst, p)
	return next, nil
}

// ReadField decodes the next payload field.
func ReadField[T field.Number](r Reader, order binary.ByteOrder) (T, Reader, error) {
	var v T
	p, next, err := r.Next(field.Size[T]())
	if err != nil {
		return v, r, err
	}
	if v, err = field.Decode[T](p, order); err != nil {
		return v, r, err
	}
	return v, next, nil
}

// CheckCRC reports whether the two bytes after the payload read so far hold
// the CRC of everything before them. A mismatch is an expected outcome on a
// noisy line, so it is not an error.
func (r Reader) CheckCRC() bool {
	end := HeaderSize + r.pos
	received, err := field.Decode[uint16](r.buf[end:], field.RemoteBigEndian)
	if err != nil {
		return false
	}
	var c crc.CRC
	return c.Reset().PushBytes(r.buf[:end]).Value() == received
}

// Span returns the frame bytes up to and including the CRC that follows the
// payload read so far.
func (r Reader) Span() []byte {
	end := HeaderSize + r.pos + CRCSize
	return r.buf[:end:end]
}

// Writer builds a frame in a caller supplied buffer. Like Reader it is a
// value; each payload write returns the advanced Writer.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer over buf, which must be able to hold at least
// an empty frame.
func NewWriter(buf []byte) (Writer, error) {
	if len(buf) < MinSize {
		return Writer{}, &modbus.BufferTooSmallError{Need: MinSize, Have: len(buf)}
	}
	return Writer{buf: buf}, nil
}

func (w Writer) WriteStationNumber(b byte) Writer {
	w.buf[0] = b
	return w
}

func (w Writer) WriteFunctionCode(fc modbus.FunctionCode) Writer {
	w.buf[1] = byte(fc)
	return w
}

// Position returns the number of payload bytes written so far.
func (w Writer) Position() int {
	return w.pos
}

// Remaining returns how many payload bytes still fit in front of the CRC.
func (w Writer) Remaining() int {
	return len(w.buf) - MinSize - w.pos
}

// next reserves n payload bytes.
func (w Writer) next(n int) ([]byte, Writer, error) {
	if n < 0 || n > w.Remaining() {
		return nil, w, &modbus.BufferTooSmallError{Need: MinSize + w.pos + n, Have: len(w.buf)}
	}
	start := HeaderSize + w.pos
	w.pos += n
	return w.buf[start : start+n], w, nil
}

// WritePayload appends p to the payload.
func (w Writer) WritePayload(p []byte) (Writer, error) {
	dst, next, err := w.next(len(p))
	if err != nil {
		return w, err
	}
	copy(dst, p)
	return next, nil
}

// WriteField appends an encoded field to the payload.
func WriteField[T field.Number](w Writer, v T, order binary.ByteOrder) (Writer, error) {
	dst, next, err := w.next(field.Size[T]())
	if err != nil {
		return w, err
	}
	if err := field.Encode(v, order, dst); err != nil {
		return w, err
	}
	return next, nil
}

// WriteCRC appends the CRC, big-endian, and returns the finished frame. It
// must be the last write; the Writer has already reserved room for it.
func (w Writer) WriteCRC() Frame {
	end := HeaderSize + w.pos
	var c crc.CRC
	sum := c.Reset().PushBytes(w.buf[:end]).Value()
	// Cannot fail: NewWriter and next keep CRCSize bytes free.
	_ = field.Encode(sum, field.RemoteBigEndian, w.buf[end:])
	return Frame{b: w.buf[: end+CRCSize : end+CRCSize]}
}

// Frame is a finished frame: the exact bytes to hand to a transport. It
// aliases the Writer's buffer.
type Frame struct {
	b []byte
}

// Bytes returns the span for sending, which may be shorter than the backing
// buffer.
func (f Frame) Bytes() []byte {
	return f.b
}

func (f Frame) Len() int {
	return len(f.b)
}

// HexString renders the frame as lowercase two-digit hex pairs separated by
// single spaces, ready to paste into a serial terminal.
func (f Frame) HexString() string {
	return fmt.Sprintf("% x", f.b)
}

func (f Frame) String() string {
	return f.HexString()
}
