// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuart

import "io"

// Baud rates used on the 1-wire bus. They are dictated by the 1-wire timings
// and must not be changed.
const (
	// Baud9600 is used for the reset pulse and presence detection.
	Baud9600 = 9600
	// Baud115200 is used for read and write time slots.
	Baud115200 = 115200
)

// Transport is the UART the bus master drives.
//
// Every character written to the transport is reflected back on its receive
// line because TX and RX are wired to the same open-drain 1-wire data line.
// WriteByte must return once the character is queued; ReadByte blocks until
// a character is received and must return an error on timeout rather than
// block forever.
type Transport interface {
	io.ByteWriter
	io.ByteReader
	// SetBaud changes the line speed. It must only be called while the
	// transmit buffer is empty, which TxReady reports.
	SetBaud(baud int) error
	// TxReady returns true when the transmit buffer can accept a character
	// without disturbing one still being shifted out.
	TxReady() (bool, error)
}
