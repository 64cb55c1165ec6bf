// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"
)

var (
	ErrBufferTooSmall         = errors.New("modbus: buffer too small")
	ErrTruncatedFrame         = errors.New("modbus: truncated frame")
	ErrUnexpectedFunctionCode = errors.New("modbus: unexpected function code")
	ErrInvalidFieldValue      = errors.New("modbus: invalid field value")
)

// BufferTooSmallError is returned when a buffer cannot hold what an
// operation needs. It is always reported before anything is written.
type BufferTooSmallError struct {
	Need int
	Have int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("modbus: buffer too small: need %d bytes, have %d", e.Need, e.Have)
}

func (e *BufferTooSmallError) Is(target error) bool {
	return target == ErrBufferTooSmall
}

// TruncatedFrameError is returned by stream reads that ran out of input.
type TruncatedFrameError struct {
	Need int
	Got  int
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("modbus: truncated frame: need %d bytes, got %d", e.Need, e.Got)
}

func (e *TruncatedFrameError) Is(target error) bool {
	return target == ErrTruncatedFrame
}

// UnexpectedFunctionCodeError is returned by decoders that found another
// function code than the one they decode. Want is zero when no decoder
// knows Got.
type UnexpectedFunctionCodeError struct {
	Want FunctionCode
	Got  FunctionCode
}

func (e *UnexpectedFunctionCodeError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("modbus: unsupported function code 0x%02x", byte(e.Got))
	}
	return fmt.Sprintf("modbus: unexpected function code 0x%02x, want 0x%02x", byte(e.Got), byte(e.Want))
}

func (e *UnexpectedFunctionCodeError) Is(target error) bool {
	return target == ErrUnexpectedFunctionCode
}

// InvalidFieldValueError reports a decoded or supplied field that violates
// its domain rule, e.g. a single-bit write value other than 0xFF00 or 0x0000.
type InvalidFieldValueError struct {
	Field string
	Value int
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("modbus: invalid value %d (0x%x) for field %q", e.Value, e.Value, e.Field)
}

func (e *InvalidFieldValueError) Is(target error) bool {
	return target == ErrInvalidFieldValue
}

// ExceptionError is returned by response decoders that found an exception
// response in place of the expected message. BadCRC is set when the
// exception frame itself failed its checksum, so Code may be line noise.
type ExceptionError struct {
	Function FunctionCode
	Code     ExceptionCode
	BadCRC   bool
}

func (e *ExceptionError) Error() string {
	msg := fmt.Sprintf("modbus: exception response to %s: %s", e.Function.Base(), e.Code)
	if e.BadCRC {
		msg += " (crc mismatch)"
	}
	return msg
}
