// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package uart1wire is a container for a 1-wire bus master built on a plain
// UART and for the drivers that run on top of it.
//
// The bus master lives in owuart, the DS18S20 temperature sensor driver in
// ds18s20 and the Dallas/Maxim CRC-8 shared by both in common. The owtemp
// command under cmd/ ties them together.
package uart1wire
