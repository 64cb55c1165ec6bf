// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"encoding/binary"

	"github.com/ffutop/modbus-adu/modbus"
)

// PackRecords lays out records big-endian, two bytes each.
func PackRecords(records []uint16) []byte {
	data := make([]byte, 2*len(records))
	for i, v := range records {
		binary.BigEndian.PutUint16(data[2*i:], v)
	}
	return data
}

// UnpackRecords splits data into big-endian records. A trailing odd byte is
// ignored.
func UnpackRecords(data []byte) []uint16 {
	records := make([]uint16, len(data)/2)
	for i := range records {
		records[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return records
}

// ReadRecordsRequest asks for RecordCount records starting at StartAddress.
type ReadRecordsRequest struct {
	Station      byte
	StartAddress uint16
	RecordCount  uint16
}

func (ReadRecordsRequest) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeReadRecords }

func (m ReadRecordsRequest) Encode(buf []byte) (Frame, error) {
	return encode(buf, m.Station, modbus.FuncCodeReadRecords, 4, func(w Writer) (Writer, error) {
		return writeUint16s(w, m.StartAddress, m.RecordCount)
	})
}

func DecodeReadRecordsRequest(buf []byte) (View[ReadRecordsRequest], error) {
	return decode(buf, modbus.FuncCodeReadRecords, false, func(r Reader) (m ReadRecordsRequest, _ Reader, err error) {
		m.Station = r.StationNumber()
		r, err = readUint16s(r, &m.StartAddress, &m.RecordCount)
		return m, r, err
	})
}

// ReadRecordsResponse carries record data, two bytes per record.
type ReadRecordsResponse struct {
	Station byte
	Data    []byte
}

// NewReadRecordsResponse lays out records into a response.
func NewReadRecordsResponse(station byte, records []uint16) ReadRecordsResponse {
	return ReadRecordsResponse{Station: station, Data: PackRecords(records)}
}

func (ReadRecordsResponse) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeReadRecords }

func (m ReadRecordsResponse) ByteCount() int {
	return len(m.Data)
}

func (m ReadRecordsResponse) Records() []uint16 {
	return UnpackRecords(m.Data)
}

func (m ReadRecordsResponse) Encode(buf []byte) (Frame, error) {
	if err := checkByteCount("byte count", m.Data); err != nil {
		return Frame{}, err
	}
	return encode(buf, m.Station, modbus.FuncCodeReadRecords, 1+len(m.Data), func(w Writer) (Writer, error) {
		return writeCounted(w, m.Data)
	})
}

func DecodeReadRecordsResponse(buf []byte) (View[ReadRecordsResponse], error) {
	return decode(buf, modbus.FuncCodeReadRecords, true, func(r Reader) (m ReadRecordsResponse, _ Reader, err error) {
		m.Station = r.StationNumber()
		if m.Data, r, err = readCounted(r); err != nil {
			return m, r, err
		}
		if len(m.Data)%2 != 0 {
			return m, r, &modbus.InvalidFieldValueError{Field: "byte count", Value: len(m.Data)}
		}
		return m, r, nil
	})
}

// WriteRecordsRequest writes RecordCount records starting at StartAddress.
// The byte count field is len(Data).
type WriteRecordsRequest struct {
	Station      byte
	StartAddress uint16
	RecordCount  uint16
	Data         []byte
}

// NewWriteRecordsRequest lays out records into a request.
func NewWriteRecordsRequest(station byte, startAddress uint16, records []uint16) WriteRecordsRequest {
	return WriteRecordsRequest{
		Station:      station,
		StartAddress: startAddress,
		RecordCount:  uint16(len(records)),
		Data:         PackRecords(records),
	}
}

func (WriteRecordsRequest) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeWriteRecords }

func (m WriteRecordsRequest) Records() []uint16 {
	return UnpackRecords(m.Data)
}

func (m WriteRecordsRequest) Encode(buf []byte) (Frame, error) {
	if err := checkByteCount("byte count", m.Data); err != nil {
		return Frame{}, err
	}
	return encode(buf, m.Station, modbus.FuncCodeWriteRecords, 5+len(m.Data), func(w Writer) (Writer, error) {
		w, err := writeUint16s(w, m.StartAddress, m.RecordCount)
		if err != nil {
			return w, err
		}
		return writeCounted(w, m.Data)
	})
}

func DecodeWriteRecordsRequest(buf []byte) (View[WriteRecordsRequest], error) {
	return decode(buf, modbus.FuncCodeWriteRecords, false, func(r Reader) (m WriteRecordsRequest, _ Reader, err error) {
		m.Station = r.StationNumber()
		if r, err = readUint16s(r, &m.StartAddress, &m.RecordCount); err != nil {
			return m, r, err
		}
		if m.Data, r, err = readCounted(r); err != nil {
			return m, r, err
		}
		if len(m.Data) != 2*int(m.RecordCount) {
			return m, r, &modbus.InvalidFieldValueError{Field: "byte count", Value: len(m.Data)}
		}
		return m, r, nil
	})
}

// WriteRecordsResponse acknowledges a WriteRecordsRequest.
type WriteRecordsResponse struct {
	Station      byte
	StartAddress uint16
	RecordCount  uint16
}

func (WriteRecordsResponse) FunctionCode() modbus.FunctionCode { return modbus.FuncCodeWriteRecords }

func (m WriteRecordsResponse) Encode(buf []byte) (Frame, error) {
	return encode(buf, m.Station, modbus.FuncCodeWriteRecords, 4, func(w Writer) (Writer, error) {
		return writeUint16s(w, m.StartAddress, m.RecordCount)
	})
}

func DecodeWriteRecordsResponse(buf []byte) (View[WriteRecordsResponse], error) {
	return decode(buf, modbus.FuncCodeWriteRecords, true, func(r Reader) (m WriteRecordsResponse, _ Reader, err error) {
		m.Station = r.StationNumber()
		r, err = readUint16s(r, &m.StartAddress, &m.RecordCount)
		return m, r, err
	})
}
