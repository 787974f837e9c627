// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC-8 that protects every data block a 1-wire device sends.
package common

// crc8MaximPoly is x^8 + x^5 + x^4 + 1 in bit-reflected form.
const crc8MaximPoly = 0x8c

// CRC8Maxim calculates the Dallas/Maxim 8-bit CRC of the byte slice parameter
// and returns the calculated value. 1-wire devices append it to their ROM code
// and to their scratchpad.
//
// The CRC of an empty slice is 0.
func CRC8Maxim(bytes []byte) byte {
	var crc byte
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if (crc & 0x01) == 0 {
				crc >>= 1
			} else {
				crc = (crc >> 1) ^ crc8MaximPoly
			}
		}
	}
	return crc
}

// CheckCRC8Maxim returns true if the block, which must end with its own CRC
// byte, is intact. The CRC over such a block is zero.
func CheckCRC8Maxim(block []byte) bool {
	return len(block) != 0 && CRC8Maxim(block) == 0
}
