// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18s20

import (
	"fmt"

	"github.com/GermanBionicSystems/uart1wire/common"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Family code of the specific device type.
type Family byte

const (
	DS18S20 Family = 0x10
	DS1822  Family = 0x22
	DS18B20 Family = 0x28
)

func (f Family) String() string {
	switch f {
	case DS18S20:
		return "DS18S20"
	case DS1822:
		return "DS1822"
	case DS18B20:
		return "DS18B20"
	default:
		return "unknown"
	}
}

// SerialNumber is the 64 bits ROM code of a device as sent on the wire: the
// family code, 6 bytes of serial number and the CRC-8 of the first 7 bytes.
type SerialNumber [8]byte

// Family returns the family code.
func (s SerialNumber) Family() Family {
	return Family(s[0])
}

// Address returns the serial number as a periph 1-wire address.
func (s SerialNumber) Address() onewire.Address {
	var a onewire.Address
	for i := len(s) - 1; i >= 0; i-- {
		a = a<<8 | onewire.Address(s[i])
	}
	return a
}

// String returns the family code and the serial, for example
// "10-0008019e3f5b".
func (s SerialNumber) String() string {
	return fmt.Sprintf("%02x-%x", s[0], s[1:7])
}

// Scratchpad is the device memory returned by Read Scratchpad.
type Scratchpad [9]byte

// TH returns the high alarm trigger register.
func (s *Scratchpad) TH() int8 { return int8(s[2]) }

// TL returns the low alarm trigger register.
func (s *Scratchpad) TL() int8 { return int8(s[3]) }

// Temperature decodes the temperature register, refined with COUNT_REMAIN
// and COUNT_PER_C (datasheet p.3):
//
//	TEMPERATURE = TEMP_READ - 0.25 + (COUNT_PER_C - COUNT_REMAIN) / COUNT_PER_C
//
// TEMP_READ is the register with its 0.5°C bit truncated. When COUNT_PER_C
// reads 0, the 0.5°C resolution value is returned.
func (s *Scratchpad) Temperature() physic.Temperature {
	raw := uint16(s[0])
	if s[1] != 0 {
		raw |= 0x100
	}
	half := physic.Temperature(signExtend(raw, 9))
	perC := physic.Temperature(s[7])
	if perC == 0 {
		return half*physic.Kelvin/2 + physic.ZeroCelsius
	}
	remain := physic.Temperature(s[6])
	read := half >> 1
	return read*physic.Kelvin - physic.Kelvin/4 + (perC-remain)*physic.Kelvin/perC + physic.ZeroCelsius
}

func (s *Scratchpad) check() error {
	return checkCRC(s[:])
}

// checkCRC verifies that the last byte of block is the CRC-8 of the others.
func checkCRC(block []byte) error {
	if common.CheckCRC8Maxim(block) {
		return nil
	}
	n := len(block) - 1
	return &ChecksumError{
		Block: append([]byte(nil), block...),
		Got:   common.CRC8Maxim(block[:n]),
		Want:  block[n],
	}
}

// signExtend returns v with its bit number bits-1 copied to the upper bits.
func signExtend(v uint16, bits uint) int16 {
	shift := 16 - bits
	return int16(v<<shift) >> shift
}
