// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuarttest

import "periph.io/x/conn/v3/gpio"

const (
	resetBaud = 9600
	slotBaud  = 115200

	resetPulse byte = 0xf0
	// PresenceEcho is the echo of a reset pulse with a device on the bus: the
	// presence pulse clears the high nibble.
	PresenceEcho byte = 0xe0
	// ZeroEcho is the echo of a read slot in which the device held the line
	// low. Any value but 0xff reads as 0; a typical device clears the low
	// order bits only.
	ZeroEcho byte = 0xf8
)

// Reset returns the exchange of a reset pulse, answered with a presence pulse
// if present is true.
func Reset(present bool) []IO {
	if present {
		return ResetEcho(PresenceEcho)
	}
	return ResetEcho(resetPulse)
}

// ResetEcho returns the exchange of a reset pulse that echoes echo.
func ResetEcho(echo byte) []IO {
	return []IO{{Baud: resetBaud, W: resetPulse, R: echo}}
}

// WriteByte returns the eight write slots that send b.
func WriteByte(b byte) []IO {
	ops := make([]IO, 0, 8)
	for i := 0; i < 8; i++ {
		ops = append(ops, WriteBit(gpio.Level(b&1 != 0))...)
		b >>= 1
	}
	return ops
}

// ReadByte returns the eight read slots a device answers with b.
func ReadByte(b byte) []IO {
	ops := make([]IO, 0, 8)
	for i := 0; i < 8; i++ {
		ops = append(ops, ReadBit(gpio.Level(b&1 != 0))...)
		b >>= 1
	}
	return ops
}

// WriteBytes returns the write slots that send every byte of b.
func WriteBytes(b ...byte) []IO {
	var ops []IO
	for _, c := range b {
		ops = append(ops, WriteByte(c)...)
	}
	return ops
}

// ReadBytes returns the read slots a device answers with b.
func ReadBytes(b ...byte) []IO {
	var ops []IO
	for _, c := range b {
		ops = append(ops, ReadByte(c)...)
	}
	return ops
}

// WriteBit returns a write slot for l, echoed unchanged.
func WriteBit(l gpio.Level) []IO {
	c := byte(0x00)
	if l == gpio.High {
		c = 0xff
	}
	return []IO{{Baud: slotBaud, W: c, R: c}}
}

// ReadBit returns a read slot the device answers with l.
func ReadBit(l gpio.Level) []IO {
	r := ZeroEcho
	if l == gpio.High {
		r = 0xff
	}
	return []IO{{Baud: slotBaud, W: 0xff, R: r}}
}

// Concat joins scripts.
func Concat(scripts ...[]IO) []IO {
	var ops []IO
	for _, s := range scripts {
		ops = append(ops, s...)
	}
	return ops
}
