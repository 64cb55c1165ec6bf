// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package link

import (
	"io"
	"net"
	"strings"
	"time"

	"github.com/grid-x/serial"
)

const (
	tcpTimeout = 10 * time.Second

	// TCPPrefix marks a device that is an RTU-over-TCP endpoint, such as a
	// serial device server, instead of a local serial port.
	TCPPrefix = "tcp://"
)

type opener func(*serial.Config) (io.ReadWriteCloser, error)

// openerFor picks how to open device. RTU over TCP carries the same frames
// as the serial line, CRC included.
func openerFor(device string) opener {
	if address, ok := strings.CutPrefix(device, TCPPrefix); ok {
		return func(c *serial.Config) (io.ReadWriteCloser, error) {
			timeout := c.Timeout
			if timeout <= 0 {
				timeout = tcpTimeout
			}
			return net.DialTimeout("tcp", address, timeout)
		}
	}
	return openSerial
}

// deadliner is implemented by streams that support I/O deadlines, such as
// net.Conn.
type deadliner interface {
	SetDeadline(t time.Time) error
}
