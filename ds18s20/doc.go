// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18s20 controls a Maxim DS18S20 temperature sensor alone on a
// 1-wire bus.
//
// The device is always addressed with Skip ROM, so it must be the only device
// on the bus. A temperature is obtained in two steps: RequestConversion starts
// a conversion, then PollRead reports ErrBusy until the conversion completes
// and returns the temperature afterward. BlockingRead does both.
//
// Readings use the COUNT_REMAIN and COUNT_PER_C registers to go past the
// native 0.5°C resolution.
//
// # Datasheet
//
// https://www.analog.com/media/en/technical-documentation/data-sheets/DS18S20.pdf
package ds18s20
