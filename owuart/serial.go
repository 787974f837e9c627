// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuart

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialOpts contains options to pass to OpenSerial.
type SerialOpts struct {
	// ReadTimeout bounds the wait for an echo. A reset takes about 1ms and a
	// time slot 87µs, anything longer means the line is not wired back.
	ReadTimeout time.Duration
}

// DefaultSerialOpts is the recommended default options.
var DefaultSerialOpts = SerialOpts{
	ReadTimeout: 50 * time.Millisecond,
}

// Serial is a Transport on a host serial port, typically an USB adapter whose
// TX and RX are tied together to the 1-wire data line through a diode or an
// open-drain buffer (see Maxim application note 214).
type Serial struct {
	name string
	port serial.Port
	mode serial.Mode
}

// OpenSerial opens the serial port name, for example "/dev/ttyUSB0" or
// "COM3", 8N1 at the reset speed.
func OpenSerial(name string, opts *SerialOpts) (*Serial, error) {
	if opts == nil {
		opts = &DefaultSerialOpts
	}
	s := &Serial{
		name: name,
		mode: serial.Mode{
			BaudRate: Baud9600,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	p, err := openPort(name, &s.mode)
	if err != nil {
		return nil, fmt.Errorf("owuart: opening %s: %w", name, err)
	}
	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("owuart: setting read timeout on %s: %w", name, err)
	}
	s.port = p
	return s, nil
}

func (s *Serial) String() string {
	return s.name
}

// SetBaud implements Transport.
//
// Changing the speed may put a spurious character in the receive buffer, it
// is discarded.
func (s *Serial) SetBaud(baud int) error {
	if s.mode.BaudRate == baud {
		return nil
	}
	s.mode.BaudRate = baud
	if err := s.port.SetMode(&s.mode); err != nil {
		return err
	}
	return s.port.ResetInputBuffer()
}

// TxReady implements Transport. It blocks until the output buffer is drained.
func (s *Serial) TxReady() (bool, error) {
	if err := s.port.Drain(); err != nil {
		return false, err
	}
	return true, nil
}

// WriteByte implements Transport.
func (s *Serial) WriteByte(c byte) error {
	n, err := s.port.Write([]byte{c})
	if err != nil {
		return err
	}
	if n != 1 {
		return errors.New("short write")
	}
	return nil
}

// ReadByte implements Transport.
func (s *Serial) ReadByte() (byte, error) {
	var buf [1]byte
	n, err := s.port.Read(buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errReadTimeout
	}
	return buf[0], nil
}

// Close closes the port.
func (s *Serial) Close() error {
	return s.port.Close()
}

// errReadTimeout is returned when no echo came back: the adapter's RX is not
// connected to the data line or the line is stuck.
var errReadTimeout = errors.New("timeout waiting for echo")

var openPort = serial.Open
