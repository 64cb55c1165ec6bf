// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus holds the vocabulary shared by the frame codecs: function
// codes, exception codes and the codec error taxonomy.
package modbus

import "fmt"

// ExceptionFlag is set in the function code of an exception response.
const ExceptionFlag = 0x80

// FunctionCode selects the operation of a frame. The set is open: vendors
// define their own codes, so any byte is a valid FunctionCode.
type FunctionCode byte

// Function Codes
const (
	FuncCodeReadBits             FunctionCode = 0x01
	FuncCodeReadDiscreteInputs   FunctionCode = 0x02
	FuncCodeReadRecords          FunctionCode = 0x03
	FuncCodeReadInputRegisters   FunctionCode = 0x04
	FuncCodeWriteSingleBit       FunctionCode = 0x05
	FuncCodeWriteSingleRecord    FunctionCode = 0x06
	FuncCodeWriteBits            FunctionCode = 0x0F
	FuncCodeWriteRecords         FunctionCode = 0x10
	FuncCodeMaskWriteRegister    FunctionCode = 0x16
	FuncCodeReadWriteRecords     FunctionCode = 0x17
	FuncCodeReadFIFOQueue        FunctionCode = 0x18
	FuncCodeReadDeviceIdentifier FunctionCode = 0x2B
)

var functionNames = map[FunctionCode]string{
	FuncCodeReadBits:             "read-bits",
	FuncCodeReadDiscreteInputs:   "read-discrete-inputs",
	FuncCodeReadRecords:          "read-records",
	FuncCodeReadInputRegisters:   "read-input-registers",
	FuncCodeWriteSingleBit:       "write-single-bit",
	FuncCodeWriteSingleRecord:    "write-single-record",
	FuncCodeWriteBits:            "write-bits",
	FuncCodeWriteRecords:         "write-records",
	FuncCodeMaskWriteRegister:    "mask-write-register",
	FuncCodeReadWriteRecords:     "read-write-records",
	FuncCodeReadFIFOQueue:        "read-fifo-queue",
	FuncCodeReadDeviceIdentifier: "read-device-identification",
}

// IsException reports whether bit 7 is set.
func (fc FunctionCode) IsException() bool {
	return fc&ExceptionFlag != 0
}

// Exception returns the exception variant of fc.
func (fc FunctionCode) Exception() FunctionCode {
	return fc | ExceptionFlag
}

// Base returns fc with the exception flag cleared.
func (fc FunctionCode) Base() FunctionCode {
	return fc &^ ExceptionFlag
}

// Matches reports whether got is fc or its exception variant.
func (fc FunctionCode) Matches(got FunctionCode) bool {
	return got.Base() == fc.Base()
}

func (fc FunctionCode) String() string {
	name, ok := functionNames[fc.Base()]
	if !ok {
		name = fmt.Sprintf("function 0x%02x", byte(fc.Base()))
	}
	if fc.IsException() {
		return name + " (exception)"
	}
	return name
}

// ExceptionCode is the single payload byte of an exception response. Like
// FunctionCode the set is open for extension.
type ExceptionCode byte

// Exception Codes
const (
	ExceptionCodeIllegalFunction                    ExceptionCode = 0x01
	ExceptionCodeIllegalDataAddress                 ExceptionCode = 0x02
	ExceptionCodeIllegalDataValue                   ExceptionCode = 0x03
	ExceptionCodeServerDeviceFailure                ExceptionCode = 0x04
	ExceptionCodeAcknowledge                        ExceptionCode = 0x05
	ExceptionCodeServerDeviceBusy                   ExceptionCode = 0x06
	ExceptionCodeMemoryParityError                  ExceptionCode = 0x08
	ExceptionCodeGatewayPathUnavailable             ExceptionCode = 0x0A
	ExceptionCodeGatewayTargetDeviceFailedToRespond ExceptionCode = 0x0B
)

var exceptionNames = map[ExceptionCode]string{
	ExceptionCodeIllegalFunction:                    "illegal function",
	ExceptionCodeIllegalDataAddress:                 "illegal data address",
	ExceptionCodeIllegalDataValue:                   "illegal data value",
	ExceptionCodeServerDeviceFailure:                "server device failure",
	ExceptionCodeAcknowledge:                        "acknowledge",
	ExceptionCodeServerDeviceBusy:                   "server device busy",
	ExceptionCodeMemoryParityError:                  "memory parity error",
	ExceptionCodeGatewayPathUnavailable:             "gateway path unavailable",
	ExceptionCodeGatewayTargetDeviceFailedToRespond: "gateway target device failed to respond",
}

func (ec ExceptionCode) String() string {
	if name, ok := exceptionNames[ec]; ok {
		return name
	}
	return fmt.Sprintf("exception 0x%02x", byte(ec))
}
