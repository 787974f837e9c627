// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18s20

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/onewire"
)

// ErrBusy is returned by PollRead while the device is still converting. It is
// a status, the caller is expected to poll again.
var ErrBusy = errors.New("ds18s20: conversion in progress")

// ChecksumError is returned when a block read from the device does not match
// its trailing CRC-8.
type ChecksumError struct {
	Block []byte // block as received, CRC included
	Got   byte   // CRC computed over the block
	Want  byte   // CRC sent by the device
}

func (e *ChecksumError) Error() string {
	for _, b := range e.Block {
		if b != 0xff {
			return fmt.Sprintf("ds18s20: incorrect CRC on % x: computed 0x%02x, received 0x%02x", e.Block, e.Got, e.Want)
		}
	}
	return "ds18s20: device did not respond"
}

// BusError implements onewire.BusError.
func (e *ChecksumError) BusError() bool { return true }

var _ onewire.BusError = &ChecksumError{}
