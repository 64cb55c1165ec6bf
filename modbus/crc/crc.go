// Copyright (c) 2014 Quoc-Viet Nguyen. All rights reserved.
// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package crc implements the Modbus CRC16 checksum.
package crc

import (
	"math/bits"
	"sync"

	"github.com/sigurn/crc16"
)

// DefaultPolynomial is the Modbus polynomial in its reflected (LSB-first) form.
const DefaultPolynomial = 0xA001

const initial = 0xFFFF

var tables sync.Map // polynomial -> *crc16.Table

// table returns the lookup table for a reflected polynomial. The register is
// processed LSB-first, which crc16 expresses as the bit-reversed polynomial
// with reflected input and output.
func table(poly uint16) *crc16.Table {
	if t, ok := tables.Load(poly); ok {
		return t.(*crc16.Table)
	}
	t := crc16.MakeTable(crc16.Params{
		Poly:   bits.Reverse16(poly),
		Init:   initial,
		RefIn:  true,
		RefOut: true,
		XorOut: 0x0000,
	})
	actual, _ := tables.LoadOrStore(poly, t)
	return actual.(*crc16.Table)
}

// CRC is a running CRC16 register.
//
// Reset must be called before each independent checksum; Add never resets
// the register on its own. The zero value uses DefaultPolynomial once Reset.
type CRC struct {
	poly  uint16
	table *crc16.Table
	state uint16
}

// New returns a CRC for the reflected polynomial poly with the register
// already reset.
func New(poly uint16) *CRC {
	c := &CRC{poly: poly}
	return c.Reset()
}

// Reset sets the register back to 0xFFFF.
func (c *CRC) Reset() *CRC {
	c.init()
	c.state = crc16.Init(c.table)
	return c
}

func (c *CRC) init() {
	if c.poly == 0 {
		c.poly = DefaultPolynomial
	}
	if c.table == nil {
		c.table = table(c.poly)
	}
}

// Add folds one byte into the register.
func (c *CRC) Add(b byte) {
	c.init()
	c.state = crc16.Update(c.state, []byte{b}, c.table)
}

// AddAll folds p into the register in order.
func (c *CRC) AddAll(p []byte) {
	c.init()
	c.state = crc16.Update(c.state, p, c.table)
}

// PushBytes is AddAll returning c for chaining after Reset.
func (c *CRC) PushBytes(p []byte) *CRC {
	c.AddAll(p)
	return c
}

// Value returns the register.
func (c *CRC) Value() uint16 {
	c.init()
	return crc16.Complete(c.state, c.table)
}

// HighByte returns the upper 8 bits of the register.
func (c *CRC) HighByte() byte {
	return byte(c.Value() >> 8)
}

// LowByte returns the lower 8 bits of the register.
func (c *CRC) LowByte() byte {
	return byte(c.Value())
}

// Polynomial returns the reflected polynomial in use.
func (c *CRC) Polynomial() uint16 {
	c.init()
	return c.poly
}

// Checksum returns the CRC16 of p with the default polynomial.
func Checksum(p []byte) uint16 {
	var c CRC
	return c.Reset().PushBytes(p).Value()
}
