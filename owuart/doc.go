// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owuart is a 1-wire bus master built on a plain UART.
//
// The UART TX and RX pins are tied to the 1-wire data line, so every
// character sent is read back as it appeared on the line. A reset is the
// character 0xF0 sent at 9600 bauds: a device answering with a presence pulse
// alters the echo. Each time slot is one character at 115200 bauds: 0xFF for
// a write 1 or a read slot, 0x00 for a write 0. A read slot echoes 0xFF only
// when the device left the line high.
//
// The bus master only handles a single device; the ROM search algorithm and
// strong pull-up are not available.
//
// # More details
//
// https://www.analog.com/en/technical-articles/using-a-uart-to-implement-a-1wire-bus-master.html
package owuart
