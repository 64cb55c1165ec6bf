// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/field"
)

var ErrRequestTimedOut = errors.New("modbus: request timed out")

type InvalidLengthError struct {
	Length byte
}

func (e *InvalidLengthError) Error() string {
	return fmt.Sprintf("invalid length received: %d", e.Length)
}

// ResponseLength returns the expected length of the response to a request
// frame, or MinSize when it cannot be told from the request.
func ResponseLength(request []byte) int {
	length := MinSize
	if len(request) < HeaderSize+4 {
		return length
	}
	count, _ := field.Decode[uint16](request[4:], field.RemoteBigEndian)
	switch modbus.FunctionCode(request[1]) {
	case modbus.FuncCodeReadBits,
		modbus.FuncCodeReadDiscreteInputs:
		length += 1 + (int(count)+7)/8
	case modbus.FuncCodeReadRecords,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeReadWriteRecords:
		length += 1 + int(count)*2
	case modbus.FuncCodeWriteSingleBit,
		modbus.FuncCodeWriteBits,
		modbus.FuncCodeWriteSingleRecord,
		modbus.FuncCodeWriteRecords:
		length += 4
	case modbus.FuncCodeMaskWriteRegister:
		length += 6
	default:
		// undetermined
	}
	return length
}

// RequestLength returns the expected total length of a request frame from
// its first bytes. The write-multiple functions need 7 bytes to reach the
// byte count.
func RequestLength(fc modbus.FunctionCode, header []byte) (int, error) {
	switch fc {
	case modbus.FuncCodeReadBits,
		modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadRecords,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeWriteSingleBit,
		modbus.FuncCodeWriteSingleRecord:
		// [Station, Func, Addr(2), Val(2), CRC(2)]
		return 8, nil
	case modbus.FuncCodeWriteBits,
		modbus.FuncCodeWriteRecords:
		// [Station, Func, Addr(2), Quant(2), ByteCount(1), Data(N), CRC(2)]
		if len(header) < 7 {
			return 0, fmt.Errorf("need 7 bytes to determine length for 0x%02X, got %d", byte(fc), len(header))
		}
		return 7 + int(header[6]) + CRCSize, nil
	default:
		return 0, fmt.Errorf("unsupported function code: 0x%02X", byte(fc))
	}
}

// ScanRequests is a bufio.SplitFunc yielding whole request frames from a
// stream of back-to-back requests.
func ScanRequests(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) < HeaderSize {
		if atEOF && len(data) > 0 {
			return 0, nil, &modbus.TruncatedFrameError{Need: MinSize, Got: len(data)}
		}
		return 0, nil, nil
	}
	fc := modbus.FunctionCode(data[1])
	if (fc == modbus.FuncCodeWriteBits || fc == modbus.FuncCodeWriteRecords) && len(data) < 7 {
		if atEOF {
			return 0, nil, &modbus.TruncatedFrameError{Need: 7, Got: len(data)}
		}
		return 0, nil, nil
	}
	length, err := RequestLength(fc, data)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < length {
		if atEOF {
			return 0, nil, &modbus.TruncatedFrameError{Need: length, Got: len(data)}
		}
		return 0, nil, nil
	}
	return length, data[:length], nil
}

// responseShape returns how the payload of a response to fc is sized:
// either a fixed number of bytes, or a byte count followed by that many.
func responseShape(fc modbus.FunctionCode) (fixed int, counted bool, err error) {
	switch fc {
	case modbus.FuncCodeReadBits,
		modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadRecords,
		modbus.FuncCodeReadInputRegisters,
		modbus.FuncCodeReadWriteRecords:
		return 0, true, nil
	case modbus.FuncCodeWriteSingleBit,
		modbus.FuncCodeWriteSingleRecord,
		modbus.FuncCodeWriteBits,
		modbus.FuncCodeWriteRecords:
		return 4, false, nil
	case modbus.FuncCodeMaskWriteRegister:
		return 6, false, nil
	default:
		return 0, false, &modbus.UnexpectedFunctionCodeError{Got: fc}
	}
}

// readFull fills buf from r unless deadline has passed.
func readFull(r io.Reader, buf []byte, deadline time.Time) error {
	if time.Now().After(deadline) {
		return ErrRequestTimedOut
	}
	_, err := io.ReadFull(r, buf)
	return err
}

// ReadResponse reads one response frame from r. Bytes are dropped until
// station is followed by fc or its exception variant; the rest of the frame
// is then read in full, its size taken from the function code or the byte
// count. The CRC is not checked.
func ReadResponse(station byte, fc modbus.FunctionCode, r io.Reader, deadline time.Time) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("reader is nil")
	}
	fixed, counted, err := responseShape(fc)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, MaxSize)
	if err := readFull(r, frame[:HeaderSize], deadline); err != nil {
		return nil, err
	}
	for {
		if got := modbus.FunctionCode(frame[1]); frame[0] == station && (got == fc || got == fc.Exception()) {
			break
		}
		// Slide by one byte so a repeated station number is not lost.
		frame[0] = frame[1]
		if err := readFull(r, frame[1:HeaderSize], deadline); err != nil {
			return nil, err
		}
	}

	n := HeaderSize
	switch {
	case modbus.FunctionCode(frame[1]).IsException():
		fixed = ExceptionSize - HeaderSize - CRCSize
	case counted:
		if err := readFull(r, frame[n:n+1], deadline); err != nil {
			return nil, err
		}
		length := frame[n]
		n++
		if length == 0 || int(length) > MaxSize-5 {
			return nil, &InvalidLengthError{Length: length}
		}
		fixed = int(length)
	}

	end := n + fixed + CRCSize
	if err := readFull(r, frame[n:end], deadline); err != nil {
		return nil, err
	}
	return frame[:end], nil
}
