// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ffutop/modbus-adu/modbus/field"
	"github.com/spf13/pflag"
)

// fieldCodec converts between text and the wire bytes of one number type.
type fieldCodec struct {
	encode func(s string, order binary.ByteOrder) ([]byte, error)
	decode func(p []byte, order binary.ByteOrder) (string, error)
	format func(data []byte, order binary.ByteOrder) []string
}

var fieldTypes = map[string]fieldCodec{
	"int8":    numberCodec[int8](),
	"uint8":   numberCodec[uint8](),
	"int16":   numberCodec[int16](),
	"uint16":  numberCodec[uint16](),
	"int32":   numberCodec[int32](),
	"uint32":  numberCodec[uint32](),
	"int64":   numberCodec[int64](),
	"uint64":  numberCodec[uint64](),
	"float32": numberCodec[float32](),
	"float64": numberCodec[float64](),
}

func numberCodec[T field.Number]() fieldCodec {
	return fieldCodec{
		encode: func(s string, order binary.ByteOrder) ([]byte, error) {
			v, err := parseNumber[T](s)
			if err != nil {
				return nil, err
			}
			p := make([]byte, field.Size[T]())
			if err := field.Encode(v, order, p); err != nil {
				return nil, err
			}
			return p, nil
		},
		decode: func(p []byte, order binary.ByteOrder) (string, error) {
			v, err := field.Decode[T](p, order)
			if err != nil {
				return "", err
			}
			return fmt.Sprint(v), nil
		},
		format: formatValues[T],
	}
}

func parseNumber[T field.Number](s string) (T, error) {
	var zero T
	bits := field.Size[T]() * 8
	switch any(zero).(type) {
	case float32, float64:
		f, err := strconv.ParseFloat(s, bits)
		return T(f), err
	case uint8, uint16, uint32, uint64:
		n, err := strconv.ParseUint(s, 0, bits)
		return T(n), err
	default:
		n, err := strconv.ParseInt(s, 0, bits)
		return T(n), err
	}
}

// formatValues renders data as consecutive values of T. A trailing partial
// value is dropped.
func formatValues[T field.Number](data []byte, order binary.ByteOrder) []string {
	size := field.Size[T]()
	var out []string
	for len(data) >= size {
		v, err := field.Decode[T](data, order)
		if err != nil {
			break
		}
		out = append(out, fmt.Sprint(v))
		data = data[size:]
	}
	return out
}

func lookupFieldType(name string) (fieldCodec, error) {
	c, ok := fieldTypes[name]
	if !ok {
		return fieldCodec{}, fmt.Errorf("unknown field type %q", name)
	}
	return c, nil
}

func fieldFlags(fs *pflag.FlagSet) {
	fs.StringP("type", "t", "uint16", "Field type (int8..uint64, float32, float64).")
	fs.BoolP("decode", "d", false, "Decode hex bytes instead of encoding a value.")
}

func runField(_ context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("field: missing value")
	}
	typ, _ := e.flags.GetString("type")
	codec, err := lookupFieldType(typ)
	if err != nil {
		return err
	}
	order, err := e.cfg.Frame.Order()
	if err != nil {
		return err
	}

	if decode, _ := e.flags.GetBool("decode"); decode {
		p, err := parseHex(args)
		if err != nil {
			return err
		}
		s, err := codec.decode(p, order)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, s)
		return nil
	}

	p, err := codec.encode(strings.Join(args, ""), order)
	if err != nil {
		return fmt.Errorf("field: %w", err)
	}
	fmt.Fprintf(e.out, "% x\n", p)
	return nil
}
