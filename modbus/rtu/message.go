// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/field"
)

// Message is implemented by every typed message. Encode writes the whole
// frame, fields in protocol order followed by the CRC, into buf.
type Message interface {
	FunctionCode() modbus.FunctionCode
	Encode(buf []byte) (Frame, error)
}

// View is a decoded message together with the Reader positioned right
// after its payload. Byte slices in Message alias the decoded buffer.
type View[M any] struct {
	Message M
	reader  Reader
}

func (v View[M]) StationNumber() byte {
	return v.reader.StationNumber()
}

// CheckCRC validates the CRC following the message payload.
func (v View[M]) CheckCRC() bool {
	return v.reader.CheckCRC()
}

// Span returns the frame bytes including the CRC.
func (v View[M]) Span() []byte {
	return v.reader.Span()
}

// decode checks the function code and reads the payload. Response decoders
// turn the exception variant of fc into an *modbus.ExceptionError, flagged
// when its CRC does not match.
func decode[M any](buf []byte, fc modbus.FunctionCode, response bool, read func(Reader) (M, Reader, error)) (View[M], error) {
	r, err := NewReader(buf)
	if err != nil {
		return View[M]{}, err
	}
	got := r.FunctionCode()
	if response && got == fc.Exception() {
		exc, err := readException(r)
		if err != nil {
			return View[M]{}, err
		}
		return View[M]{}, &modbus.ExceptionError{
			Function: exc.Message.Function,
			Code:     exc.Message.Code,
			BadCRC:   !exc.CheckCRC(),
		}
	}
	if got != fc {
		return View[M]{}, &modbus.UnexpectedFunctionCodeError{Want: fc, Got: got}
	}
	m, r, err := read(r)
	if err != nil {
		return View[M]{}, err
	}
	return View[M]{Message: m, reader: r}, nil
}

// encode checks that the frame fits before writing a single byte, then
// writes the header, the payload and the CRC.
func encode(buf []byte, station byte, fc modbus.FunctionCode, size int, write func(Writer) (Writer, error)) (Frame, error) {
	if need := MinSize + size; len(buf) < need {
		return Frame{}, &modbus.BufferTooSmallError{Need: need, Have: len(buf)}
	}
	w, err := NewWriter(buf)
	if err != nil {
		return Frame{}, err
	}
	w = w.WriteStationNumber(station).WriteFunctionCode(fc)
	if w, err = write(w); err != nil {
		return Frame{}, err
	}
	return w.WriteCRC(), nil
}

// writeUint16s appends big-endian 16-bit fields.
func writeUint16s(w Writer, vs ...uint16) (Writer, error) {
	var err error
	for _, v := range vs {
		if w, err = WriteField(w, v, field.RemoteBigEndian); err != nil {
			return w, err
		}
	}
	return w, nil
}

// readUint16s reads big-endian 16-bit fields into ps.
func readUint16s(r Reader, ps ...*uint16) (Reader, error) {
	var err error
	for _, p := range ps {
		if *p, r, err = ReadField[uint16](r, field.RemoteBigEndian); err != nil {
			return r, err
		}
	}
	return r, nil
}

// writeCounted appends a byte count followed by data.
func writeCounted(w Writer, data []byte) (Writer, error) {
	w, err := WriteField(w, uint8(len(data)), field.RemoteBigEndian)
	if err != nil {
		return w, err
	}
	return w.WritePayload(data)
}

// readCounted reads a byte count followed by that many bytes.
func readCounted(r Reader) ([]byte, Reader, error) {
	n, r, err := ReadField[uint8](r, field.RemoteBigEndian)
	if err != nil {
		return nil, r, err
	}
	return r.Next(int(n))
}

func checkByteCount(name string, data []byte) error {
	if len(data) > 0xFF {
		return &modbus.InvalidFieldValueError{Field: name, Value: len(data)}
	}
	return nil
}

// DecodeRequest decodes a request frame by its function code. The boolean
// reports the CRC check.
func DecodeRequest(buf []byte) (Message, bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, false, err
	}
	switch fc := r.FunctionCode(); fc {
	case modbus.FuncCodeReadBits:
		return unwrap(DecodeReadBitsRequest(buf))
	case modbus.FuncCodeReadRecords:
		return unwrap(DecodeReadRecordsRequest(buf))
	case modbus.FuncCodeWriteSingleBit:
		return unwrap(DecodeWriteSingleBitRequest(buf))
	case modbus.FuncCodeWriteBits:
		return unwrap(DecodeWriteBitsRequest(buf))
	case modbus.FuncCodeWriteRecords:
		return unwrap(DecodeWriteRecordsRequest(buf))
	default:
		return nil, false, &modbus.UnexpectedFunctionCodeError{Got: fc}
	}
}

// DecodeResponse decodes a response frame by its function code. Exception
// responses decode to ExceptionResponse rather than an error.
func DecodeResponse(buf []byte) (Message, bool, error) {
	r, err := NewReader(buf)
	if err != nil {
		return nil, false, err
	}
	fc := r.FunctionCode()
	if fc.IsException() {
		return unwrap(DecodeExceptionResponse(buf))
	}
	switch fc {
	case modbus.FuncCodeReadBits:
		return unwrap(DecodeReadBitsResponse(buf))
	case modbus.FuncCodeReadRecords:
		return unwrap(DecodeReadRecordsResponse(buf))
	case modbus.FuncCodeWriteSingleBit:
		return unwrap(DecodeWriteSingleBitResponse(buf))
	case modbus.FuncCodeWriteBits:
		return unwrap(DecodeWriteBitsResponse(buf))
	case modbus.FuncCodeWriteRecords:
		return unwrap(DecodeWriteRecordsResponse(buf))
	default:
		return nil, false, &modbus.UnexpectedFunctionCodeError{Got: fc}
	}
}

func unwrap[M Message](v View[M], err error) (Message, bool, error) {
	if err != nil {
		return nil, false, err
	}
	return v.Message, v.CheckCRC(), nil
}
