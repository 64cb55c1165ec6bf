// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import "github.com/ffutop/modbus-adu/modbus"

// PackBits packs values LSB-first, eight per byte. Unused high bits of the
// last byte are zero.
func PackBits(values []bool) []byte {
	packed := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v {
			packed[i/8] |= 1 << uint(i%8)
		}
	}
	return packed
}

// UnpackBits returns the first n bits of data. Padding bits past n are
// ignored; n is clamped to the bits available.
func UnpackBits(data []byte, n int) []bool {
	if avail := len(data) * 8; n > avail {
		n = avail
	}
	if n < 0 {
		n = 0
	}
	values := make([]bool, n)
	for i := range values {
		values[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return values
}

// ReadBitsRequest asks for BitCount bits starting at StartAddress.
type ReadBitsRequest struct {
	Station      byte
	StartAddress uint16
	BitCount     uint16
}

func (ReadBitsRequest) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeReadBits }

func (m ReadBitsRequest) Encode(buf []byte) (Frame, error) {
	return encode(buf, m.Station, modbus.FuncCodeReadBits, 4, func(w Writer) (Writer, error) {
		return writeUint16s(w, m.StartAddress, m.BitCount)
	})
}

func DecodeReadBitsRequest(buf []byte) (View[ReadBitsRequest], error) {
	return decode(buf, modbus.FuncCodeReadBits, false, func(r Reader) (m ReadBitsRequest, _ Reader, err error) {
		m.Station = r.StationNumber()
		r, err = readUint16s(r, &m.StartAddress, &m.BitCount)
		return m, r, err
	})
}

// ReadBitsResponse carries packed bits, LSB-first within each byte.
type ReadBitsResponse struct {
	Station byte
	Data    []byte
}

// NewReadBitsResponse packs values into a response.
func NewReadBitsResponse(station byte, values []bool) ReadBitsResponse {
	return ReadBitsResponse{Station: station, Data: PackBits(values)}
}

func (ReadBitsResponse) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeReadBits }

// ByteCount is the value of the byte count field.
func (m ReadBitsResponse) ByteCount() int {
	return len(m.Data)
}

// Bits returns the first n bits; callers pass the bit count they requested.
func (m ReadBitsResponse) Bits(n int) []bool {
	return UnpackBits(m.Data, n)
}

func (m ReadBitsResponse) Encode(buf []byte) (Frame, error) {
	if err := checkByteCount("byte count", m.Data); err != nil {
		return Frame{}, err
	}
	return encode(buf, m.Station, modbus.FuncCodeReadBits, 1+len(m.Data), func(w Writer) (Writer, error) {
		return writeCounted(w, m.Data)
	})
}

func DecodeReadBitsResponse(buf []byte) (View[ReadBitsResponse], error) {
	return decode(buf, modbus.FuncCodeReadBits, true, func(r Reader) (m ReadBitsResponse, _ Reader, err error) {
		m.Station = r.StationNumber()
		m.Data, r, err = readCounted(r)
		return m, r, err
	})
}

// WriteSingleBitRequest sets one bit. On the wire true is 0xFF00 and false
// is 0x0000.
type WriteSingleBitRequest struct {
	Station byte
	Address uint16
	Value   bool
}

// WriteSingleBitResponse echoes the request.
type WriteSingleBitResponse = WriteSingleBitRequest

func (WriteSingleBitRequest) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeWriteSingleBit }

func (m WriteSingleBitRequest) Encode(buf []byte) (Frame, error) {
	value := bitOff
	if m.Value {
		value = bitOn
	}
	return encode(buf, m.Station, modbus.FuncCodeWriteSingleBit, 4, func(w Writer) (Writer, error) {
		return writeUint16s(w, m.Address, value)
	})
}

func readSingleBit(r Reader) (m WriteSingleBitRequest, _ Reader, err error) {
	m.Station = r.StationNumber()
	var value uint16
	if r, err = readUint16s(r, &m.Address, &value); err != nil {
		return m, r, err
	}
	switch value {
	case bitOn:
		m.Value = true
	case bitOff:
		m.Value = false
	default:
		return m, r, &modbus.InvalidFieldValueError{Field: "value", Value: int(value)}
	}
	return m, r, nil
}

func DecodeWriteSingleBitRequest(buf []byte) (View[WriteSingleBitRequest], error) {
	return decode(buf, modbus.FuncCodeWriteSingleBit, false, readSingleBit)
}

func DecodeWriteSingleBitResponse(buf []byte) (View[WriteSingleBitResponse], error) {
	return decode(buf, modbus.FuncCodeWriteSingleBit, true, readSingleBit)
}

// WriteBitsRequest writes BitCount packed bits starting at StartAddress.
// The byte count field is len(Data).
type WriteBitsRequest struct {
	Station      byte
	StartAddress uint16
	BitCount     uint16
	Data         []byte
}

// NewWriteBitsRequest packs values into a request.
func NewWriteBitsRequest(station byte, startAddress uint16, values []bool) WriteBitsRequest {
	return WriteBitsRequest{
		Station:      station,
		StartAddress: startAddress,
		BitCount:     uint16(len(values)),
		Data:         PackBits(values),
	}
}

func (WriteBitsRequest) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeWriteBits }

func (m WriteBitsRequest) Bits() []bool {
	return UnpackBits(m.Data, int(m.BitCount))
}

func (m WriteBitsRequest) Encode(buf []byte) (Frame, error) {
	if err := checkByteCount("byte count", m.Data); err != nil {
		return Frame{}, err
	}
	return encode(buf, m.Station, modbus.FuncCodeWriteBits, 5+len(m.Data), func(w Writer) (Writer, error) {
		w, err := writeUint16s(w, m.StartAddress, m.BitCount)
		if err != nil {
			return w, err
		}
		return writeCounted(w, m.Data)
	})
}

func DecodeWriteBitsRequest(buf []byte) (View[WriteBitsRequest], error) {
	return decode(buf, modbus.FuncCodeWriteBits, false, func(r Reader) (m WriteBitsRequest, _ Reader, err error) {
		m.Station = r.StationNumber()
		if r, err = readUint16s(r, &m.StartAddress, &m.BitCount); err != nil {
			return m, r, err
		}
		if m.Data, r, err = readCounted(r); err != nil {
			return m, r, err
		}
		if want := (int(m.BitCount) + 7) / 8; len(m.Data) != want {
			return m, r, &modbus.InvalidFieldValueError{Field: "byte count", Value: len(m.Data)}
		}
		return m, r, nil
	})
}

// WriteBitsResponse acknowledges a WriteBitsRequest. It has no byte count
// and echoes no data.
type WriteBitsResponse struct {
	Station      byte
	StartAddress uint16
	BitCount     uint16
}

func (WriteBitsResponse) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeWriteBits }

func (m WriteBitsResponse) Encode(buf []byte) (Frame, error) {
	return encode(buf, m.Station, modbus.FuncCodeWriteBits, 4, func(w Writer) (Writer, error) {
		return writeUint16s(w, m.StartAddress, m.BitCount)
	})
}

func DecodeWriteBitsResponse(buf []byte) (View[WriteBitsResponse], error) {
	return decode(buf, modbus.FuncCodeWriteBits, true, func(r Reader) (m WriteBitsResponse, _ Reader, err error) {
		m.Station = r.StationNumber()
		r, err = readUint16s(r, &m.StartAddress, &m.BitCount)
		return m, r, err
	})
}
