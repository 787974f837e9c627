// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/physic"
)

// Color scale bounds.
const (
	coldC = 0.
	hotC  = 40.
)

// useColor resolves the -color flag for the terminal fd.
func useColor(mode string, fd uintptr) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("invalid -color %q, want auto, always or never", mode)
	}
}

// tempColor grades t from blue at coldC and below to red at hotC and above.
func tempColor(t physic.Temperature) color.NRGBA {
	f := (t.Celsius() - coldC) / (hotC - coldC)
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	r := byte(255*f + 0.5)
	return color.NRGBA{R: r, B: 255 - r, A: 255}
}

// printer writes one line per reading.
type printer struct {
	w       io.Writer
	palette *ansi256.Palette // nil when not colorized
	buf     bytes.Buffer
}

func newPrinter(w io.Writer, colored bool) *printer {
	p := &printer{w: w}
	if colored {
		p.palette = ansi256.Default
	}
	return p
}

func (p *printer) print(r reading) error {
	p.buf.Reset()
	if p.palette != nil {
		_, _ = io.WriteString(&p.buf, p.palette.Block(tempColor(r.Temp)))
		_, _ = p.buf.WriteString("\033[0m ")
	}
	fmt.Fprintf(&p.buf, "%s %s %s\n", r.Timestamp.Format(time.RFC3339), r.Serial, r.Temp)
	_, err := p.buf.WriteTo(p.w)
	return err
}
