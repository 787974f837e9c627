// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owuart

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GermanBionicSystems/uart1wire/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// Opts contains options to pass to the constructor.
type Opts struct {
	// MaxTxPolls bounds how many times TxReady is polled before a time slot
	// or a baud change. 0 means no bound.
	MaxTxPolls int
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	MaxTxPolls: 1000,
}

// New returns a bus master that drives a 1-wire bus through the UART t.
//
// The transport is configured for the reset speed and a first reset is
// issued to bring the bus to a known state. Whether a device answered that
// reset is not checked, but a failing transport is reported.
//
// The returned object implements onewire.BusCloser so it can be handed to any
// periph 1-wire device driver that works on a single-drop bus.
func New(t Transport, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{t: t, opts: *opts}
	if err := t.SetBaud(Baud9600); err != nil {
		return nil, &TransportError{Op: "baud", Err: err}
	}
	d.baud = Baud9600
	if err := d.Reset(); err != nil && !errors.Is(err, ErrNoDevice) {
		return nil, err
	}
	return d, nil
}

// Dev is a 1-wire bus master built on a UART.
//
// Reset, WriteByte, ReadByte, WriteBit and ReadBit are the raw transaction
// primitives. They keep no state between transactions besides whether the
// bus is addressed: every transaction must begin with Reset, and after any
// error the bus must be Reset again before the next exchange.
//
// The primitives do not lock. Callers sharing a Dev across goroutines must
// hold its lock for the whole transaction; Tx and Search do so themselves.
type Dev struct {
	sync.Mutex           // lock for the bus while a transaction is in progress
	t          Transport // UART wired to the 1-wire data line
	opts       Opts
	baud       int  // speed currently configured on t
	addressed  bool // a presence pulse was seen and no exchange failed since
}

func (d *Dev) String() string {
	if s, ok := d.t.(fmt.Stringer); ok {
		return "owuart{" + s.String() + "}"
	}
	return "owuart"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

// Close closes the transport if it can be closed.
func (d *Dev) Close() error {
	d.Lock()
	defer d.Unlock()
	d.addressed = false
	if c, ok := d.t.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Reset issues a reset pulse on the bus and listens for a presence pulse.
//
// It returns ErrNoDevice if no device answered. On success the bus is
// addressed and ready for a ROM command.
func (d *Dev) Reset() error {
	d.addressed = false
	if err := d.setBaud(Baud9600); err != nil {
		return err
	}
	echo, err := d.exchange(resetPulse)
	if err != nil {
		return err
	}
	if echo == resetPulse {
		return ErrNoDevice
	}
	d.addressed = true
	return nil
}

// WriteByte writes b on the bus, least significant bit first.
//
// The first failing time slot aborts the byte; the remaining bits are not
// sent and the bus must be Reset.
func (d *Dev) WriteByte(b byte) error {
	if err := d.begin(); err != nil {
		return err
	}
	for i := 0; i < 8; i++ {
		if err := d.writeSlot(gpio.Level(b&1 != 0)); err != nil {
			return err
		}
		b >>= 1
	}
	return nil
}

// ReadByte reads one byte from the bus, least significant bit first.
//
// The first failing time slot aborts the byte and the bus must be Reset.
func (d *Dev) ReadByte() (byte, error) {
	if err := d.begin(); err != nil {
		return 0, err
	}
	var v byte
	for i := 0; i < 8; i++ {
		l, err := d.readSlot()
		if err != nil {
			return 0, err
		}
		v >>= 1
		if l == gpio.High {
			v |= 0x80
		}
	}
	return v, nil
}

// WriteBit performs a single write time slot.
func (d *Dev) WriteBit(l gpio.Level) error {
	if err := d.begin(); err != nil {
		return err
	}
	return d.writeSlot(l)
}

// ReadBit performs a single read time slot and returns the level the device
// left on the line.
func (d *Dev) ReadBit() (gpio.Level, error) {
	if err := d.begin(); err != nil {
		return gpio.Low, err
	}
	return d.readSlot()
}

// Tx performs a bus transaction: reset, write w, then read len(r) bytes.
//
// The UART cannot provide a strong pull-up, the line is only held high by its
// pull-up resistor between characters. power is accepted for compatibility
// with onewire.Bus; parasite powered devices need a low value resistor.
func (d *Dev) Tx(w, r []byte, power onewire.Pullup) error {
	d.Lock()
	defer d.Unlock()

	if err := d.Reset(); err != nil {
		return err
	}
	for _, b := range w {
		if err := d.WriteByte(b); err != nil {
			return err
		}
	}
	for i := range r {
		b, err := d.ReadByte()
		if err != nil {
			return err
		}
		r[i] = b
	}
	return nil
}

// Search returns the address of the device on the bus.
//
// The bus master only supports single-drop buses: the address is obtained
// with a Read ROM command, which garbles the answer when more than one device
// is present; the CRC check catches that case. An empty bus returns no
// address and no error. Alarm search is not supported.
func (d *Dev) Search(alarmOnly bool) ([]onewire.Address, error) {
	if alarmOnly {
		return nil, errors.New("owuart: alarm search is not supported on a single-drop bus")
	}
	d.Lock()
	defer d.Unlock()

	if err := d.Reset(); err != nil {
		if errors.Is(err, ErrNoDevice) {
			return nil, nil
		}
		return nil, err
	}
	if err := d.WriteByte(cmdReadROM); err != nil {
		return nil, err
	}
	var rom [8]byte
	for i := range rom {
		b, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		rom[i] = b
	}
	if !common.CheckCRC8Maxim(rom[:]) {
		return nil, busError("owuart: incorrect ROM CRC, more than one device on the bus?")
	}
	var a onewire.Address
	for i := len(rom) - 1; i >= 0; i-- {
		a = a<<8 | onewire.Address(rom[i])
	}
	return []onewire.Address{a}, nil
}

//

// begin checks that the bus was reset and switches to the time slot speed.
func (d *Dev) begin() error {
	if !d.addressed {
		return ErrNotReset
	}
	return d.setBaud(Baud115200)
}

func (d *Dev) writeSlot(l gpio.Level) error {
	c := encodeBit(l)
	echo, err := d.exchange(c)
	if err != nil {
		return err
	}
	if echo != c {
		d.addressed = false
		return &LineError{Sent: c, Echo: echo}
	}
	return nil
}

func (d *Dev) readSlot() (gpio.Level, error) {
	echo, err := d.exchange(slotHigh)
	if err != nil {
		return gpio.Low, err
	}
	return decodeBit(echo), nil
}

// exchange sends c once the transmit buffer has room and returns the
// character reflected by the line.
func (d *Dev) exchange(c byte) (byte, error) {
	if err := d.waitTx(); err != nil {
		return 0, err
	}
	if err := d.t.WriteByte(c); err != nil {
		return 0, d.fail("send", err)
	}
	echo, err := d.t.ReadByte()
	if err != nil {
		return 0, d.fail("receive", err)
	}
	return echo, nil
}

// setBaud switches speed, waiting first for the transmit buffer to empty so
// no character in flight is garbled.
func (d *Dev) setBaud(baud int) error {
	if d.baud == baud {
		return nil
	}
	if err := d.waitTx(); err != nil {
		return err
	}
	if err := d.t.SetBaud(baud); err != nil {
		d.baud = 0
		return d.fail("baud", err)
	}
	d.baud = baud
	return nil
}

func (d *Dev) waitTx() error {
	for i := 0; d.opts.MaxTxPolls <= 0 || i < d.opts.MaxTxPolls; i++ {
		ok, err := d.t.TxReady()
		if err != nil {
			return d.fail("drain", err)
		}
		if ok {
			return nil
		}
	}
	return d.fail("drain", errors.New("transmit buffer never emptied"))
}

// fail ends the current transaction.
func (d *Dev) fail(op string, err error) error {
	d.addressed = false
	return &TransportError{Op: op, Err: err}
}

const (
	resetPulse byte = 0xf0 // at 9600 bauds: 520µs low, then released
	cmdReadROM byte = 0x33
)

var _ conn.Resource = &Dev{}
var _ onewire.BusCloser = &Dev{}
var _ Transport = (*Serial)(nil)
