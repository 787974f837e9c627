// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owuarttest is meant to be used to test the UART 1-wire bus master
// and the drivers built on it over a fake UART.
package owuarttest

import (
	"sync"

	"periph.io/x/conn/v3/conntest"
)

// IO is one character sent on the UART and the echo read back.
type IO struct {
	Baud int   // speed the character is expected at
	W    byte  // character expected to be written
	R    byte  // echo returned by ReadByte
	Err  error // if set, ReadByte fails with it instead of returning R
}

// Playback implements owuart.Transport and plays back a scripted flow of
// characters.
//
// Set DontPanic to true to return an error instead of panicking, which is the
// default.
type Playback struct {
	sync.Mutex
	Ops       []IO
	Count     int   // number of echoes consumed
	Bauds     []int // every speed set, in order
	TxBusy    int   // number of TxReady calls that report a full buffer
	DontPanic bool

	baud    int
	pending bool // a character was written and its echo not read yet
}

func (p *Playback) String() string {
	return "playback"
}

// Close verifies that the whole script was played.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) != p.Count {
		return errorf(p.DontPanic, "owuarttest: expected playback to be empty: I/O count %d; expected %d", p.Count, len(p.Ops))
	}
	return nil
}

// SetBaud implements owuart.Transport.
func (p *Playback) SetBaud(baud int) error {
	p.Lock()
	defer p.Unlock()
	if p.pending {
		return errorf(p.DontPanic, "owuarttest: speed changed to %d with a character in flight (count #%d)", baud, p.Count)
	}
	p.baud = baud
	p.Bauds = append(p.Bauds, baud)
	return nil
}

// TxReady implements owuart.Transport.
func (p *Playback) TxReady() (bool, error) {
	p.Lock()
	defer p.Unlock()
	if p.TxBusy > 0 {
		p.TxBusy--
		return false, nil
	}
	return true, nil
}

// WriteByte implements owuart.Transport.
func (p *Playback) WriteByte(c byte) error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) <= p.Count {
		return errorf(p.DontPanic, "owuarttest: unexpected write (count #%d) 0x%02x", p.Count, c)
	}
	if p.pending {
		return errorf(p.DontPanic, "owuarttest: write before the previous echo was read (count #%d)", p.Count)
	}
	op := p.Ops[p.Count]
	if op.W != c {
		return errorf(p.DontPanic, "owuarttest: unexpected write (count #%d) 0x%02x != 0x%02x", p.Count, c, op.W)
	}
	if op.Baud != p.baud {
		return errorf(p.DontPanic, "owuarttest: unexpected speed (count #%d) %d != %d", p.Count, p.baud, op.Baud)
	}
	p.pending = true
	return nil
}

// ReadByte implements owuart.Transport.
func (p *Playback) ReadByte() (byte, error) {
	p.Lock()
	defer p.Unlock()
	if !p.pending {
		return 0, errorf(p.DontPanic, "owuarttest: read without a character sent (count #%d)", p.Count)
	}
	op := p.Ops[p.Count]
	p.Count++
	p.pending = false
	if op.Err != nil {
		return 0, op.Err
	}
	return op.R, nil
}

// errorf is the internal implementation that optionally panic.
//
// If dontPanic is false, it panics instead.
func errorf(dontPanic bool, format string, a ...interface{}) error {
	err := conntest.Errorf(format, a...)
	if !dontPanic {
		panic(err)
	}
	return err
}
