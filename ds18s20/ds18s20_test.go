// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18s20

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GermanBionicSystems/uart1wire/common"
	"github.com/GermanBionicSystems/uart1wire/owuart"
	"github.com/GermanBionicSystems/uart1wire/owuart/owuarttest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// withCRC appends the CRC-8 of b to b.
func withCRC(b ...byte) []byte {
	return append(b, common.CRC8Maxim(b))
}

// begin is the script of a Skip ROM transaction sending c.
func begin(c Command) []owuarttest.IO {
	return owuarttest.Concat(owuarttest.Reset(true), owuarttest.WriteBytes(byte(SkipROM), byte(c)))
}

// readScratchpad is the script of reading spad.
func readScratchpad(spad []byte) []owuarttest.IO {
	return owuarttest.Concat(begin(ReadScratchpad), owuarttest.ReadBytes(spad...))
}

// newDev returns a Dev on a scripted UART. The scripts for the bus master and
// driver initial resets are prepended to ops.
func newDev(t *testing.T, ops ...[]owuarttest.IO) (*Dev, *owuarttest.Playback) {
	all := append([][]owuarttest.IO{owuarttest.Reset(true), owuarttest.Reset(true)}, ops...)
	bus := &owuarttest.Playback{Ops: owuarttest.Concat(all...), DontPanic: true}
	m, err := owuart.New(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d, bus
}

func TestNew_noDevice(t *testing.T) {
	bus := &owuarttest.Playback{Ops: owuarttest.Concat(owuarttest.Reset(false), owuarttest.Reset(false))}
	m, err := owuart.New(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d, err := New(m, nil); d != nil || !errors.Is(err, owuart.ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestString(t *testing.T) {
	d, _ := newDev(t)
	if s := d.String(); s != "DS18S20{owuart{playback}}" {
		t.Fatal(s)
	}
}

func TestSerialNumber(t *testing.T) {
	rom := withCRC(0x10, 0x5b, 0x3f, 0x9e, 0x01, 0x08, 0x00)
	d, bus := newDev(t, owuarttest.Reset(true), owuarttest.WriteByte(byte(ReadROM)), owuarttest.ReadBytes(rom...))
	s, err := d.SerialNumber()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s[:], rom); diff != "" {
		t.Errorf("Unexpected serial number (-got +want):\n%s", diff)
	}
	if f := s.Family(); f != DS18S20 {
		t.Fatalf("unexpected family %s", f)
	}
	if str := s.String(); str != "10-5b3f9e010800" {
		t.Fatal(str)
	}
	if a := s.Address(); a != onewire.Address(rom[7])<<56|0x000801_9e3f5b10 {
		t.Fatalf("unexpected address %#016x", a)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSerialNumber_checksum(t *testing.T) {
	rom := withCRC(0x10, 0x5b, 0x3f, 0x9e, 0x01, 0x08, 0x00)
	rom[3] ^= 0x04
	d, bus := newDev(t, owuarttest.Reset(true), owuarttest.WriteByte(byte(ReadROM)), owuarttest.ReadBytes(rom...))
	_, err := d.SerialNumber()
	var ce *ChecksumError
	if !errors.As(err, &ce) {
		t.Fatalf("expected a ChecksumError, got %v", err)
	}
	if ce.Want != rom[7] || ce.Got != common.CRC8Maxim(rom[:7]) {
		t.Fatalf("unexpected %#v", ce)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSerialNumber_noDevice(t *testing.T) {
	d, bus := newDev(t, owuarttest.Reset(false))
	if _, err := d.SerialNumber(); err != owuart.ErrNoDevice {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRequestConversion(t *testing.T) {
	d, bus := newDev(t, begin(ConvertT))
	if err := d.RequestConversion(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollRead_busy(t *testing.T) {
	d, bus := newDev(t, begin(ConvertT), owuarttest.ReadBit(gpio.Low))
	if err := d.RequestConversion(); err != nil {
		t.Fatal(err)
	}
	before := bus.Count
	if _, err := d.PollRead(); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if n := bus.Count - before; n != 1 {
		t.Fatalf("expected a single read slot, got %d exchanges", n)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollRead(t *testing.T) {
	spad := withCRC(0x50, 0x00, 0x4b, 0x46, 0xff, 0xff, 0x04, 0x0c)
	d, bus := newDev(t, begin(ConvertT), owuarttest.ReadBit(gpio.High), readScratchpad(spad))
	if err := d.RequestConversion(); err != nil {
		t.Fatal(err)
	}
	temp, err := d.PollRead()
	if err != nil {
		t.Fatal(err)
	}
	want := 40 - 0.25 + 8.0/12
	if diff := cmp.Diff(temp.Celsius(), want, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("Unexpected temperature (-got +want):\n%s", diff)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollRead_checksum(t *testing.T) {
	good := withCRC(0x50, 0x00, 0x4b, 0x46, 0xff, 0xff, 0x04, 0x0c)
	for i := 0; i < 8; i++ {
		for bit := 0; bit < 8; bit++ {
			spad := append([]byte(nil), good...)
			spad[i] ^= 1 << bit
			d, bus := newDev(t, owuarttest.ReadBit(gpio.High), readScratchpad(spad))
			// The bus master was reset by the driver constructor.
			temp, err := d.PollRead()
			var ce *ChecksumError
			if !errors.As(err, &ce) {
				t.Fatalf("byte %d bit %d: expected a ChecksumError, got %s, %v", i, bit, temp, err)
			}
			if err := bus.Close(); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestPollRead_noResponse(t *testing.T) {
	spad := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	d, bus := newDev(t, owuarttest.ReadBit(gpio.High), readScratchpad(spad))
	_, err := d.PollRead()
	if err == nil || err.Error() != "ds18s20: device did not respond" {
		t.Fatalf("unexpected error %v", err)
	}
	var be onewire.BusError
	if !errors.As(err, &be) || !be.BusError() {
		t.Fatal("expected a onewire.BusError")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPollRead_fail_io(t *testing.T) {
	ops := owuarttest.ReadBit(gpio.High)
	ops[0].Err = errors.New("timeout")
	d, bus := newDev(t, ops)
	_, err := d.PollRead()
	var te *owuart.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected a TransportError, got %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestBlockingRead(t *testing.T) {
	spad := withCRC(0x32, 0x00, 0x4b, 0x46, 0xff, 0xff, 0x0b, 0x10)
	for busy := 0; busy < 4; busy++ {
		t.Run(fmt.Sprintf("busy%d", busy), func(t *testing.T) {
			ops := [][]owuarttest.IO{begin(ConvertT)}
			for i := 0; i < busy; i++ {
				ops = append(ops, owuarttest.ReadBit(gpio.Low))
			}
			ops = append(ops, owuarttest.ReadBit(gpio.High), readScratchpad(spad))
			d, bus := newDev(t, ops...)
			temp, err := d.BlockingRead()
			if err != nil {
				t.Fatal(err)
			}
			if c := temp.Celsius(); c != 25.0625 {
				t.Fatalf("expected 25.0625°C, got %f", c)
			}
			// Every scripted poll was consumed, and nothing more.
			if err := bus.Close(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestBlockingRead_fail(t *testing.T) {
	d, bus := newDev(t, owuarttest.Reset(false))
	if _, err := d.BlockingRead(); err != owuart.ErrNoDevice {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSense(t *testing.T) {
	spad := withCRC(0xce, 0xff, 0x4b, 0x46, 0xff, 0xff, 0x0d, 0x10)
	d, bus := newDev(t, begin(ConvertT), owuarttest.ReadBit(gpio.High), readScratchpad(spad))
	e := physic.Env{}
	if err := d.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if expected := physic.ZeroCelsius - 25062500*physic.MicroKelvin; e.Temperature != expected {
		t.Errorf("expected %s, got %s", expected, e.Temperature)
	}
	p := physic.Env{}
	d.Precision(&p)
	if p.Temperature != 62500*physic.MicroKelvin {
		t.Fatalf("unexpected precision %s", p.Temperature)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSenseContinuous(t *testing.T) {
	spad := withCRC(0x14, 0x00, 0x4b, 0x46, 0xff, 0xff, 0x0a, 0x10)
	d, bus := newDev(t,
		begin(ConvertT),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.High),
		readScratchpad(spad))
	var sleeps []time.Duration
	sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	defer func() { sleep = func(time.Duration) {} }()

	c, err := d.SenseContinuous(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.SenseContinuous(time.Hour); err == nil {
		t.Fatal("expected an error while already sensing")
	}
	e := <-c
	if c := e.Temperature.Celsius(); c != 10.125 {
		t.Fatalf("expected 10.125°C, got %f", c)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-c; ok {
		t.Fatal("expected the channel to be closed")
	}
	if diff := cmp.Diff(sleeps, []time.Duration{DefaultOpts.PollInterval, DefaultOpts.PollInterval}); diff != "" {
		t.Errorf("Unexpected sleeps (-got +want):\n%s", diff)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPowerSupply(t *testing.T) {
	for _, parasitic := range []bool{false, true} {
		d, bus := newDev(t, begin(ReadPowerSupply), owuarttest.ReadBit(gpio.Level(!parasitic)))
		got, err := d.PowerSupply()
		if err != nil {
			t.Fatal(err)
		}
		if got != parasitic {
			t.Fatalf("expected parasitic=%t", parasitic)
		}
		if err := bus.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestAlarms(t *testing.T) {
	spad := withCRC(0x32, 0x00, 0x4b, 0xf6, 0xff, 0xff, 0x0c, 0x10)
	d, bus := newDev(t, readScratchpad(spad))
	th, tl, err := d.Alarms()
	if err != nil {
		t.Fatal(err)
	}
	if th != 75 || tl != -10 {
		t.Fatalf("unexpected alarms %d %d", th, tl)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSetAlarms(t *testing.T) {
	d, bus := newDev(t,
		begin(WriteScratchpad),
		owuarttest.WriteBytes(0x1e, 0xfb),
		begin(CopyScratchpad))
	var sleeps []time.Duration
	sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	defer func() { sleep = func(time.Duration) {} }()
	if err := d.SetAlarms(30, -5); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sleeps, []time.Duration{10 * time.Millisecond}); diff != "" {
		t.Errorf("expected the EEPROM write to be waited for (-got +want):\n%s", diff)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRecallAlarms(t *testing.T) {
	d, bus := newDev(t,
		begin(RecallE2),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.High))
	if err := d.RecallAlarms(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRecallAlarms_stuck(t *testing.T) {
	bus := &owuarttest.Playback{Ops: owuarttest.Concat(
		owuarttest.Reset(true),
		owuarttest.Reset(true),
		begin(RecallE2),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.Low))}
	m, err := owuart.New(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(m, &Opts{RecallPolls: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.RecallAlarms(); err == nil {
		t.Fatal("expected the recall to time out")
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestScratchpad_Temperature(t *testing.T) {
	var testData = []struct {
		scratchpad   Scratchpad
		expectedTemp float64
	}{
		{Scratchpad{0xFA, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, 125},
		{Scratchpad{0xAA, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, 85},
		{Scratchpad{0x32, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0B, 0x10}, 25.0625},
		{Scratchpad{0x32, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, 25},
		{Scratchpad{0x14, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0A, 0x10}, 10.125},
		{Scratchpad{0x01, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x04, 0x10}, 0.5},
		{Scratchpad{0x00, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, 0},
		{Scratchpad{0xFF, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x04, 0x10}, -0.5},
		{Scratchpad{0xEC, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x0E, 0x10}, -10.125},
		{Scratchpad{0xCE, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, -25},
		{Scratchpad{0xCE, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x0D, 0x10}, -25.0625},
		{Scratchpad{0x92, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x10}, -55},
		// COUNT_PER_C not set: half degree resolution.
		{Scratchpad{0x33, 0x00, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x00}, 25.5},
		{Scratchpad{0xFF, 0xFF, 0x00, 0x00, 0x00, 0xFF, 0x0C, 0x00}, -0.5},
	}
	for _, entry := range testData {
		t.Run(fmt.Sprintf("%f", entry.expectedTemp), func(st *testing.T) {
			c := entry.scratchpad.Temperature()
			if c.Celsius() != entry.expectedTemp {
				st.Errorf("expected %f, got %f", entry.expectedTemp, c.Celsius())
			}
		})
	}
}

func TestScratchpad_Temperature_counts(t *testing.T) {
	// Any COUNT_PER_C, not only the 16 counts all devices report.
	s := Scratchpad{0x50, 0x00, 0x00, 0x00, 0xff, 0xff, 0x04, 0x0c}
	want := 40 - 0.25 + float64(0x0c-0x04)/0x0c
	if diff := cmp.Diff(s.Temperature().Celsius(), want, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("Unexpected temperature (-got +want):\n%s", diff)
	}
}

func TestSignExtend(t *testing.T) {
	var data = []struct {
		v    uint16
		want int16
	}{
		{0x000, 0},
		{0x0ff, 255},
		{0x100, -256},
		{0x1ff, -1},
		{0x192, -110},
	}
	for _, line := range data {
		if got := signExtend(line.v, 9); got != line.want {
			t.Errorf("signExtend(%#03x, 9) = %d, want %d", line.v, got, line.want)
		}
	}
}

func TestCommand_String(t *testing.T) {
	if s := SkipROM.String(); s != "SkipROM" {
		t.Fatal(s)
	}
	if s := ReadScratchpad.String(); s != "ReadScratchpad" {
		t.Fatal(s)
	}
	if s := Command(0x01).String(); s != "Command(0x01)" {
		t.Fatal(s)
	}
}

func TestFamily_String(t *testing.T) {
	for f, want := range map[Family]string{DS18S20: "DS18S20", DS18B20: "DS18B20", DS1822: "DS1822", 0x01: "unknown"} {
		if s := f.String(); s != want {
			t.Errorf("0x%02x: %s != %s", byte(f), s, want)
		}
	}
}

func init() {
	sleep = func(time.Duration) {}
}

func TestSenseContinuous_interval(t *testing.T) {
	d, bus := newDev(t)
	for _, interval := range []time.Duration{0, -time.Second} {
		if c, err := d.SenseContinuous(interval); c != nil || err == nil {
			t.Fatalf("%s: expected an error", interval)
		}
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// lockedBus records whether the driver lock was held during read slots.
type lockedBus struct {
	Bus
	d    *Dev
	free int // read slots performed while the driver lock was free
}

func (l *lockedBus) ReadBit() (gpio.Level, error) {
	if l.d.mu.TryLock() {
		l.d.mu.Unlock()
		l.free++
	}
	return l.Bus.ReadBit()
}

func TestSenseContinuous_locked(t *testing.T) {
	spad := withCRC(0x14, 0x00, 0x4b, 0x46, 0xff, 0xff, 0x0a, 0x10)
	bus := &owuarttest.Playback{Ops: owuarttest.Concat(
		owuarttest.Reset(true),
		owuarttest.Reset(true),
		begin(ConvertT),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.Low),
		owuarttest.ReadBit(gpio.High),
		readScratchpad(spad))}
	m, err := owuart.New(bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	lb := &lockedBus{Bus: m}
	d, err := New(lb, nil)
	if err != nil {
		t.Fatal(err)
	}
	lb.d = d
	c, err := d.SenseContinuous(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	e := <-c
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	if c := e.Temperature.Celsius(); c != 10.125 {
		t.Fatalf("expected 10.125°C, got %f", c)
	}
	// No other transaction may run between the conversion and its result.
	if lb.free != 0 {
		t.Fatalf("the bus was released during %d polls", lb.free)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// plainBus is a Bus without a name.
type plainBus struct {
	Bus
}

func TestString_unnamedBus(t *testing.T) {
	d := &Dev{b: plainBus{}}
	if s := d.String(); s != "DS18S20" {
		t.Fatal(s)
	}
}
