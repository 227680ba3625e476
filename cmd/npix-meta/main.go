// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// npix-meta displays the content of SpikeGLX .meta files.
//
// Usage: npix-meta [OPTIONS] FILE1 [FILE2 [FILE3 ...]]
//
// Example:
//
//  $> npix-meta ./run1_g0_t0.imec0.ap.meta
//  === run1_g0_t0.imec0.ap.meta ===
//  imSampRate  = 30000
//  nSavedChans = 385
//  typeThis    = imec
//  [...]
//  --- stream: imec
//  sample rate:   30000 Hz
//  channels:        385
//  sync channel:    384
package main // import "github.com/go-lpc/npix/cmd/npix-meta"

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-lpc/npix/spikeglx"
)

const usage = `npix-meta displays the content of SpikeGLX .meta files.

Usage: npix-meta [OPTIONS] FILE1 [FILE2 [FILE3 ...]]

Example:

 $> npix-meta ./run1_g0_t0.imec0.ap.meta
 === run1_g0_t0.imec0.ap.meta ===
 imSampRate  = 30000
 nSavedChans = 385
 typeThis    = imec
 [...]
 --- stream: imec
 sample rate:   30000 Hz
 channels:        385
 sync channel:    384

Options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("npix-meta: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("npix-meta", flag.ExitOnError)

		lists = fset.Bool("lists", false, "split the values of list keys (~key)")
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
		log.Fatalf("missing path to input meta file")
	}

	for _, fname := range fset.Args() {
		err := process(w, fname, *lists)
		if err != nil {
			log.Fatalf("could not dump file %q: %+v", fname, err)
		}
	}
}

func process(w io.Writer, fname string, lists bool) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	meta, err := spikeglx.OpenMeta(fname)
	if err != nil {
		return fmt.Errorf("could not read meta file: %w", err)
	}

	keys := meta.Keys()
	width := 0
	for _, k := range keys {
		if len(k) > width {
			width = len(k)
		}
	}

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	for _, k := range keys {
		if lists && strings.Contains(k, "~") {
			vs, err := meta.List(k)
			if err != nil {
				return fmt.Errorf("could not read list %q: %w", k, err)
			}
			fmt.Fprintf(wbuf, "%-*s = [%d items]\n", width, k, len(vs))
			for i, v := range vs {
				fmt.Fprintf(wbuf, "  %4d: %s\n", i, v)
			}
			continue
		}
		v, err := meta.String(k)
		if err != nil {
			return fmt.Errorf("could not read key %q: %w", k, err)
		}
		fmt.Fprintf(wbuf, "%-*s = %s\n", width, k, v)
	}

	typ, err := meta.Type()
	if err != nil {
		return fmt.Errorf("could not find stream type: %w", err)
	}
	srate, err := meta.SampleRate()
	if err != nil {
		return fmt.Errorf("could not find sampling rate: %w", err)
	}
	nchans, err := meta.NSavedChans()
	if err != nil {
		return fmt.Errorf("could not find number of saved channels: %w", err)
	}

	fmt.Fprintf(wbuf, "--- stream: %s\n", typ)
	fmt.Fprintf(wbuf, "sample rate:  % 6g Hz\n", srate)
	fmt.Fprintf(wbuf, "channels:     % 6d\n", nchans)
	fmt.Fprintf(wbuf, "sync channel: % 6d\n", nchans-1)
	if meta.Has("fileTimeSecs") {
		dur, err := meta.Duration()
		if err != nil {
			return fmt.Errorf("could not read recording duration: %w", err)
		}
		fmt.Fprintf(wbuf, "duration:     % 6g s\n", dur)
	}

	return nil
}
