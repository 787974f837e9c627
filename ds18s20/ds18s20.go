// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18s20

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Bus is the set of 1-wire primitives the driver is built on.
//
// It is implemented by owuart.Dev. Every transaction starts with Reset, which
// returns an error when no device answers.
type Bus interface {
	Reset() error
	WriteByte(b byte) error
	ReadByte() (byte, error)
	WriteBit(l gpio.Level) error
	ReadBit() (gpio.Level, error)
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// PollInterval is the wait between two polls of a conversion in
	// SenseContinuous. BlockingRead never waits.
	PollInterval time.Duration
	// RecallPolls bounds how many read slots RecallAlarms waits for the
	// EEPROM recall to complete.
	RecallPolls int
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	PollInterval: 10 * time.Millisecond,
	RecallPolls:  1000,
}

// New returns a driver for the DS18S20 alone on the bus b.
//
// It fails if no device answers a reset.
func New(b Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := b.Reset(); err != nil {
		return nil, err
	}
	return &Dev{b: b, opts: *opts}, nil
}

// Dev is a handle to a DS18S20 temperature sensor.
type Dev struct {
	mu   sync.Mutex // serializes bus transactions
	b    Bus
	opts Opts

	stop chan struct{}
	wg   sync.WaitGroup
}

func (d *Dev) String() string {
	if s, ok := d.b.(fmt.Stringer); ok {
		return "DS18S20{" + s.String() + "}"
	}
	return "DS18S20"
}

// SerialNumber reads the ROM code of the device.
func (d *Dev) SerialNumber() (SerialNumber, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s SerialNumber
	if err := d.b.Reset(); err != nil {
		return s, err
	}
	if err := d.b.WriteByte(byte(ReadROM)); err != nil {
		return s, err
	}
	for i := range s {
		b, err := d.b.ReadByte()
		if err != nil {
			return s, err
		}
		s[i] = b
	}
	if err := checkCRC(s[:]); err != nil {
		return s, err
	}
	return s, nil
}

// RequestConversion starts a temperature conversion and returns immediately.
//
// The conversion takes up to 750ms; use PollRead to fetch the result.
func (d *Dev) RequestConversion() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requestConversion()
}

// PollRead returns ErrBusy while the conversion started by RequestConversion
// is in progress, and the temperature once it completed.
//
// Polling uses a single read time slot and nothing else is sent on the bus
// while the device is busy.
func (d *Dev) PollRead() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pollRead()
}

// BlockingRead starts a conversion and polls the device until it completes.
//
// It does not sleep between polls.
func (d *Dev) BlockingRead() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requestConversion(); err != nil {
		return 0, err
	}
	for {
		t, err := d.pollRead()
		if err != ErrBusy {
			return t, err
		}
	}
}

// PowerSupply reports whether the device is parasite powered.
func (d *Dev) PowerSupply() (parasitic bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(ReadPowerSupply); err != nil {
		return false, err
	}
	l, err := d.b.ReadBit()
	if err != nil {
		return false, err
	}
	return l == gpio.Low, nil
}

// Alarms returns the high and low alarm triggers from the scratchpad, in °C.
func (d *Dev) Alarms() (th, tl int8, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, err := d.readScratchpad()
	if err != nil {
		return 0, 0, err
	}
	return s.TH(), s.TL(), nil
}

// SetAlarms writes the high and low alarm triggers, in °C, and copies them to
// the EEPROM.
func (d *Dev) SetAlarms(th, tl int8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(WriteScratchpad); err != nil {
		return err
	}
	for _, b := range []byte{byte(th), byte(tl)} {
		if err := d.b.WriteByte(b); err != nil {
			return err
		}
	}
	if err := d.begin(CopyScratchpad); err != nil {
		return err
	}
	// Wait for the EEPROM write to complete, datasheet p.12.
	sleep(10 * time.Millisecond)
	return nil
}

// RecallAlarms reloads the alarm triggers from the EEPROM to the scratchpad.
func (d *Dev) RecallAlarms() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.begin(RecallE2); err != nil {
		return err
	}
	for i := 0; i < d.opts.RecallPolls; i++ {
		l, err := d.b.ReadBit()
		if err != nil {
			return err
		}
		if l == gpio.High {
			return nil
		}
	}
	return errors.New("ds18s20: EEPROM recall did not complete")
}

// Sense implements physic.SenseEnv.
func (d *Dev) Sense(e *physic.Env) error {
	t, err := d.BlockingRead()
	if err != nil {
		return err
	}
	e.Temperature = t
	return nil
}

// SenseContinuous implements physic.SenseEnv. It starts a conversion every
// interval and polls it every Opts.PollInterval. Failed readings are skipped.
// The bus stays locked from the conversion request to the scratchpad read,
// so other calls wait for the reading in progress.
//
// It is the caller's responsibility to call Halt() when done.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval <= 0 {
		return nil, errors.New("ds18s20: invalid interval")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("ds18s20: already sensing continuously")
	}
	stop := make(chan struct{})
	d.stop = stop
	sensing := make(chan physic.Env)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(sensing)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			var e physic.Env
			if err := d.senseUntil(&e, stop); err == nil {
				select {
				case <-stop:
					return
				case sensing <- e:
				}
			} else if err == errHalted {
				return
			}
			select {
			case <-stop:
				return
			case <-t.C:
			}
		}
	}()
	return sensing, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Kelvin / 16
}

// Halt implements conn.Resource. It stops SenseContinuous, waiting for a
// reading in progress to complete.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

//

// begin resets the bus and sends Skip ROM followed by c.
func (d *Dev) begin(c Command) error {
	if err := d.b.Reset(); err != nil {
		return err
	}
	if err := d.b.WriteByte(byte(SkipROM)); err != nil {
		return err
	}
	return d.b.WriteByte(byte(c))
}

func (d *Dev) requestConversion() error {
	return d.begin(ConvertT)
}

func (d *Dev) pollRead() (physic.Temperature, error) {
	l, err := d.b.ReadBit()
	if err != nil {
		return 0, err
	}
	if l == gpio.Low {
		return 0, ErrBusy
	}
	s, err := d.readScratchpad()
	if err != nil {
		return 0, err
	}
	return s.Temperature(), nil
}

func (d *Dev) readScratchpad() (*Scratchpad, error) {
	if err := d.begin(ReadScratchpad); err != nil {
		return nil, err
	}
	var s Scratchpad
	for i := range s {
		b, err := d.b.ReadByte()
		if err != nil {
			return nil, err
		}
		s[i] = b
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	return &s, nil
}

// senseUntil runs a conversion, polling it until it completes or stop is
// closed. The bus is held for the whole conversion.
func (d *Dev) senseUntil(e *physic.Env, stop <-chan struct{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.requestConversion(); err != nil {
		return err
	}
	for {
		select {
		case <-stop:
			return errHalted
		default:
		}
		t, err := d.pollRead()
		if err == nil {
			e.Temperature = t
			return nil
		}
		if err != ErrBusy {
			return err
		}
		sleep(d.opts.PollInterval)
	}
}

var errHalted = errors.New("ds18s20: halted")

var sleep = time.Sleep

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
