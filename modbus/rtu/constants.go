// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

// Frame layout:
//
//	Station Number  : 1 byte
//	Function        : 1 byte
//	Payload         : 0 up to 252 bytes
//	CRC             : 2 bytes, big-endian
const (
	HeaderSize = 2
	CRCSize    = 2

	MinSize        = HeaderSize + CRCSize
	MaxSize        = 256
	MaxPayloadSize = MaxSize - MinSize

	ExceptionSize = MinSize + 1
)

// Quantity limits of the Modbus application protocol.
const (
	MaxReadBits     = 2000
	MaxReadRecords  = 125
	MaxWriteBits    = 1968
	MaxWriteRecords = 123
)

const (
	bitOn  uint16 = 0xFF00
	bitOff uint16 = 0x0000
)
