// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package rtu

import (
	"github.com/ffutop/modbus-adu/modbus"
	"github.com/ffutop/modbus-adu/modbus/field"
)

// ExceptionResponse reports that a request for Function failed with Code.
// Function is kept without the exception flag; Encode sets it on the wire.
type ExceptionResponse struct {
	Station  byte
	Function modbus.FunctionCode
	Code     modbus.ExceptionCode
}

func (m ExceptionResponse) FunctionCode() modbus.FunctionCode {
	return m.Function.Exception()
}

// Err returns the exception as an error.
func (m ExceptionResponse) Err() error {
	return &modbus.ExceptionError{Function: m.Function.Base(), Code: m.Code}
}

func (m ExceptionResponse) Encode(buf []byte) (Frame, error) {
	return encode(buf, m.Station, m.Function.Exception(), 1, func(w Writer) (Writer, error) {
		return WriteField(w, uint8(m.Code), field.RemoteBigEndian)
	})
}

// DecodeExceptionResponse decodes any frame whose function code has the
// exception flag set.
func DecodeExceptionResponse(buf []byte) (View[ExceptionResponse], error) {
	r, err := NewReader(buf)
	if err != nil {
		return View[ExceptionResponse]{}, err
	}
	if got := r.FunctionCode(); !got.IsException() {
		return View[ExceptionResponse]{}, &modbus.UnexpectedFunctionCodeError{Want: got.Exception(), Got: got}
	}
	return readException(r)
}

func readException(r Reader) (View[ExceptionResponse], error) {
	m := ExceptionResponse{
		Station:  r.StationNumber(),
		Function: r.FunctionCode().Base(),
	}
	code, r, err := ReadField[uint8](r, field.RemoteBigEndian)
	if err != nil {
		return View[ExceptionResponse]{}, err
	}
	m.Code = modbus.ExceptionCode(code)
	return View[ExceptionResponse]{Message: m, reader: r}, nil
}
