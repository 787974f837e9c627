// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18s20

import "fmt"

// Command is a 1-wire ROM or function command understood by the device.
type Command byte

// ROM commands, datasheet p.10.
const (
	ReadROM     Command = 0x33
	MatchROM    Command = 0x55
	SkipROM     Command = 0xcc
	SearchROM   Command = 0xf0
	AlarmSearch Command = 0xec
)

// Function commands, datasheet p.11.
const (
	ConvertT        Command = 0x44
	WriteScratchpad Command = 0x4e
	ReadScratchpad  Command = 0xbe
	CopyScratchpad  Command = 0x48
	RecallE2        Command = 0xb8
	ReadPowerSupply Command = 0xb4
)

func (c Command) String() string {
	switch c {
	case ReadROM:
		return "ReadROM"
	case MatchROM:
		return "MatchROM"
	case SkipROM:
		return "SkipROM"
	case SearchROM:
		return "SearchROM"
	case AlarmSearch:
		return "AlarmSearch"
	case ConvertT:
		return "ConvertT"
	case WriteScratchpad:
		return "WriteScratchpad"
	case ReadScratchpad:
		return "ReadScratchpad"
	case CopyScratchpad:
		return "CopyScratchpad"
	case RecallE2:
		return "RecallE2"
	case ReadPowerSupply:
		return "ReadPowerSupply"
	default:
		return fmt.Sprintf("Command(0x%02x)", byte(c))
	}
}
