// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/rtu"
	"github.com/spf13/pflag"
)

func messageFlags(fs *pflag.FlagSet) {
	fs.Uint16P("address", "a", 0, "Start address.")
	fs.Uint16P("count", "n", 1, "Number of bits or records to read.")
	fs.StringSliceP("bits", "b", nil, "Bit values, e.g. 1,0,1.")
	fs.StringSliceP("records", "r", nil, "Record values, e.g. 10,0x0102.")
	fs.Bool("value", false, "Value of a single bit write.")
	fs.StringP("function", "f", "", "Function code answered by an exception, e.g. 0x03 or read-records.")
	fs.Uint8("code", uint8(modbus.ExceptionCodeIllegalFunction), "Exception code.")
	fs.Bool("response", false, "Build the response instead of the request.")
}

type messageBuilder func(station byte, fs *pflag.FlagSet, response bool) (rtu.Message, error)

var messages = map[string]messageBuilder{
	"read-bits":     buildReadBits,
	"read-records":  buildReadRecords,
	"write-bit":     buildWriteBit,
	"write-bits":    buildWriteBits,
	"write-records": buildWriteRecords,
	"exception":     buildException,
}

func messageNames() string {
	names := make([]string, 0, len(messages))
	for name := range messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func buildMessage(name string, station byte, fs *pflag.FlagSet) (rtu.Message, error) {
	build, ok := messages[name]
	if !ok {
		return nil, fmt.Errorf("unknown message %q (want one of %s)", name, messageNames())
	}
	response, err := fs.GetBool("response")
	if err != nil {
		return nil, err
	}
	return build(station, fs, response)
}

func checkCount(name string, n, limit int) error {
	if n < 1 || n > limit {
		return &modbus.InvalidFieldValueError{Field: name, Value: n}
	}
	return nil
}

func buildReadBits(station byte, fs *pflag.FlagSet, response bool) (rtu.Message, error) {
	if response {
		bits, err := bitsFlag(fs)
		if err != nil {
			return nil, err
		}
		return rtu.NewReadBitsResponse(station, bits), nil
	}
	address, _ := fs.GetUint16("address")
	count, _ := fs.GetUint16("count")
	if err := checkCount("bit count", int(count), rtu.MaxReadBits); err != nil {
		return nil, err
	}
	return rtu.ReadBitsRequest{Station: station, StartAddress: address, BitCount: count}, nil
}

func buildReadRecords(station byte, fs *pflag.FlagSet, response bool) (rtu.Message, error) {
	if response {
		records, err := recordsFlag(fs)
		if err != nil {
			return nil, err
		}
		return rtu.NewReadRecordsResponse(station, records), nil
	}
	address, _ := fs.GetUint16("address")
	count, _ := fs.GetUint16("count")
	if err := checkCount("record count", int(count), rtu.MaxReadRecords); err != nil {
		return nil, err
	}
	return rtu.ReadRecordsRequest{Station: station, StartAddress: address, RecordCount: count}, nil
}

func buildWriteBit(station byte, fs *pflag.FlagSet, _ bool) (rtu.Message, error) {
	address, _ := fs.GetUint16("address")
	value, _ := fs.GetBool("value")
	return rtu.WriteSingleBitRequest{Station: station, Address: address, Value: value}, nil
}

func buildWriteBits(station byte, fs *pflag.FlagSet, response bool) (rtu.Message, error) {
	address, _ := fs.GetUint16("address")
	if response {
		count, _ := fs.GetUint16("count")
		return rtu.WriteBitsResponse{Station: station, StartAddress: address, BitCount: count}, nil
	}
	bits, err := bitsFlag(fs)
	if err != nil {
		return nil, err
	}
	if err := checkCount("bit count", len(bits), rtu.MaxWriteBits); err != nil {
		return nil, err
	}
	return rtu.NewWriteBitsRequest(station, address, bits), nil
}

func buildWriteRecords(station byte, fs *pflag.FlagSet, response bool) (rtu.Message, error) {
	address, _ := fs.GetUint16("address")
	if response {
		count, _ := fs.GetUint16("count")
		return rtu.WriteRecordsResponse{Station: station, StartAddress: address, RecordCount: count}, nil
	}
	records, err := recordsFlag(fs)
	if err != nil {
		return nil, err
	}
	if err := checkCount("record count", len(records), rtu.MaxWriteRecords); err != nil {
		return nil, err
	}
	return rtu.NewWriteRecordsRequest(station, address, records), nil
}

func buildException(station byte, fs *pflag.FlagSet, _ bool) (rtu.Message, error) {
	name, _ := fs.GetString("function")
	fc, err := parseFunction(name)
	if err != nil {
		return nil, err
	}
	code, _ := fs.GetUint8("code")
	return rtu.ExceptionResponse{Station: station, Function: fc.Base(), Code: modbus.ExceptionCode(code)}, nil
}

// parseFunction accepts a number or a function name such as read-records.
func parseFunction(s string) (modbus.FunctionCode, error) {
	if s == "" {
		return 0, fmt.Errorf("missing --function")
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		return modbus.FunctionCode(n), nil
	}
	for fc := 1; fc < int(modbus.ExceptionFlag); fc++ {
		if modbus.FunctionCode(fc).String() == s {
			return modbus.FunctionCode(fc), nil
		}
	}
	return 0, fmt.Errorf("unknown function %q", s)
}

func bitsFlag(fs *pflag.FlagSet) ([]bool, error) {
	raw, _ := fs.GetStringSlice("bits")
	bits := make([]bool, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("invalid bit %q: %w", s, err)
		}
		bits[i] = v
	}
	return bits, nil
}

func recordsFlag(fs *pflag.FlagSet) ([]uint16, error) {
	raw, _ := fs.GetStringSlice("records")
	records := make([]uint16, len(raw))
	for i, s := range raw {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid record %q: %w", s, err)
		}
		records[i] = uint16(v)
	}
	return records, nil
}
