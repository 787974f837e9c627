// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuart

import (
	"fmt"

	"periph.io/x/conn/v3/onewire"
)

// ErrNoDevice is returned by Reset when the reset pulse came back unchanged,
// meaning no device pulled the line low to signal its presence.
const ErrNoDevice = noDevicesError("owuart: no device present")

// ErrNotReset is returned when a bit or byte exchange is attempted without a
// successful Reset first, or after a failure ended the previous transaction.
// It indicates a programming error in the caller.
const ErrNotReset = busError("owuart: bus not reset")

// TransportError reports a failure of the underlying UART. The bus is left in
// an undefined state and the next transaction must start with Reset.
type TransportError struct {
	Op  string // "baud", "send", "receive" or "drain"
	Err error
}

func (e *TransportError) Error() string {
	return "owuart: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error  { return e.Err }
func (e *TransportError) BusError() bool { return true }

// LineError reports a write time slot whose echo differs from the byte that
// was sent: another device drove the line, or the line is noisy.
type LineError struct {
	Sent byte
	Echo byte
}

func (e *LineError) Error() string {
	return fmt.Sprintf("owuart: line error: sent 0x%02x, echo 0x%02x", e.Sent, e.Echo)
}

func (e *LineError) BusError() bool { return true }

// noDevicesError implements error and onewire.NoDevicesError.
type noDevicesError string

func (e noDevicesError) Error() string   { return string(e) }
func (e noDevicesError) NoDevices() bool { return true }
func (e noDevicesError) BusError() bool  { return true }

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

var _ onewire.NoDevicesError = ErrNoDevice
var _ onewire.BusError = ErrNotReset
var _ onewire.BusError = &TransportError{}
var _ onewire.BusError = &LineError{}
