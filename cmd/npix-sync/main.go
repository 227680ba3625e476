// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// npix-sync extracts the sync channel of SpikeGLX recordings and
// displays the times of the rising and falling edges of each of its lines.
//
// Usage: npix-sync [OPTIONS] FILE1.bin [FILE2.bin [FILE3.bin ...]]
//
// Example:
//
//  $> npix-sync ./run1_g0_t0.imec0.ap.bin
//  === run1_g0_t0.imec0.ap.bin ===
//  line 0:
//    onsets:  [0.5 1.5 2.5]
//    offsets: [1 2 3]
//  line 6:
//    onsets:  [12.5]
package main // import "github.com/go-lpc/npix/cmd/npix-sync"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/npix/spikeglx"
	"github.com/go-lpc/npix/syncchan"
)

const usage = `npix-sync extracts the sync channel of SpikeGLX recordings and
displays the times of the rising and falling edges of each of its lines.

Usage: npix-sync [OPTIONS] FILE1.bin [FILE2.bin [FILE3.bin ...]]

Example:

 $> npix-sync ./run1_g0_t0.imec0.ap.bin
 === run1_g0_t0.imec0.ap.bin ===
 line 0:
   onsets:  [0.5 1.5 2.5]
   offsets: [1 2 3]
 line 6:
   onsets:  [12.5]

 $> npix-sync -binary -bits 8 ./run1_g0_t0.nidq.bin
 === run1_g0_t0.nidq.bin ===
 0 00000000
 1 10000000
 [...]

 $> npix-sync -steps ./run1_g0_t0.nidq.bin
 === run1_g0_t0.nidq.bin ===
   sample wheel left right reward         us
    10231     1    0     0      0          0
    10262     1    0     0      0       1240
 [...]

Options:
`

type config struct {
	bits   int
	ch     int
	srate  float64
	binary bool
	invert bool
	cache  bool
	steps  bool
}

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("npix-sync: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("npix-sync", flag.ExitOnError)

		bits   = fset.Int("bits", syncchan.DefaultBits, "number of lines of the sync channel")
		ch     = fset.Int("chan", -1, "index of the sync channel (default: last saved channel)")
		srate  = fset.Float64("fs", 0, "sampling rate in Hz (default: from .meta file)")
		binary = fset.Bool("binary", false, "display the bits of each sample instead of the edges")
		invert = fset.Bool("invert", false, "swap rising and falling edges")
		cache  = fset.Bool("cache", false, "load/save the sync channel from/to a .npy file")
		steps  = fset.Bool("steps", false, "display the wheel, left, right and reward steps of the behaviour rig")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() == 0 {
		fset.Usage()
		log.Fatalf("missing path to input binary file")
	}

	cfg := config{
		bits:   *bits,
		ch:     *ch,
		srate:  *srate,
		binary: *binary,
		invert: *invert,
		cache:  *cache,
		steps:  *steps,
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, cfg)
		if err != nil {
			log.Fatalf("could not process file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, cfg config) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	rec, meta, err := spikeglx.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load recording: %w", err)
	}
	defer rec.Close()

	srate := cfg.srate
	if srate <= 0 {
		srate, err = meta.SampleRate()
		if err != nil {
			return fmt.Errorf("could not find sampling rate: %w", err)
		}
	}

	ch := cfg.ch
	if ch < 0 {
		ch, err = meta.SyncChan()
		if err != nil {
			return fmt.Errorf("could not find sync channel: %w", err)
		}
	}

	samples, err := rec.SyncSamples(ch, cfg.cache)
	if err != nil {
		return fmt.Errorf("could not extract sync channel: %w", err)
	}

	opts := []syncchan.Option{syncchan.WithBits(cfg.bits)}
	if cfg.binary || cfg.steps {
		opts = append(opts, syncchan.WithBinary())
	}
	if cfg.invert {
		opts = append(opts, syncchan.WithInverted())
	}

	evts, tr, err := syncchan.Decode(samples, srate, opts...)
	if err != nil {
		return fmt.Errorf("could not decode sync channel: %w", err)
	}

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	if cfg.steps {
		steps, err := syncchan.Steps(tr, srate)
		if err != nil {
			return fmt.Errorf("could not decode steps: %w", err)
		}
		fmt.Fprintf(wbuf, "%8s %5s %4s %5s %6s %10s\n", "sample", "wheel", "left", "right", "reward", "us")
		for _, st := range steps {
			fmt.Fprintf(
				wbuf, "%8d %5d %4d %5d %6d %10g\n",
				st.Sample, st.Wheel, st.Left, st.Right, st.Reward, st.Delta,
			)
		}
		return nil
	}

	if cfg.binary {
		row := make([]byte, tr.Bits())
		for i := 0; i < tr.Len(); i++ {
			for b, bit := range tr.Row(i) {
				row[b] = '0' + bit
			}
			fmt.Fprintf(wbuf, "%d %s\n", i, row)
		}
		return nil
	}

	for _, line := range evts.Channels() {
		fmt.Fprintf(wbuf, "line %d:\n", line)
		if vs, ok := evts.Onsets[line]; ok {
			fmt.Fprintf(wbuf, "  onsets:  %v\n", vs)
		}
		if vs, ok := evts.Offsets[line]; ok {
			fmt.Fprintf(wbuf, "  offsets: %v\n", vs)
		}
	}

	return nil
}
