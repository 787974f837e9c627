// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuart

import "periph.io/x/conn/v3/gpio"

// At 115200 bauds a character lasts 86.8µs. The start bit alone is the 8.7µs
// low pulse that opens a time slot; the data bits decide how long the master
// keeps the line low.
const (
	slotHigh byte = 0xff // write 1 / read slot: only the start bit is low
	slotLow  byte = 0x00 // write 0: the line is held low for the whole slot
)

// encodeBit returns the character that produces a time slot for l.
func encodeBit(l gpio.Level) byte {
	if l == gpio.High {
		return slotHigh
	}
	return slotLow
}

// decodeBit returns the level seen on the line during a read slot.
//
// A device answering 0 holds the line low for 15µs to 60µs after the master's
// start bit, which clears a varying number of the character's low order bits.
// Only an untouched 0xFF echo is a 1.
func decodeBit(echo byte) gpio.Level {
	return gpio.Level(echo == slotHigh)
}
