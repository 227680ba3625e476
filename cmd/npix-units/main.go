// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// npix-units lists the sorted units of phy directories.
//
// Usage: npix-units [OPTIONS] DIR1 [DIR2 [DIR3 ...]]
//
// Example:
//
//  $> npix-units -quality good -chans 0,100 ./kilosort
//  === kilosort ===
//  +------+-------+---------+
//  | UNIT | GROUP | CHANNEL |
//  +------+-------+---------+
//  |   12 | good  |       3 |
//  |    4 | good  |      57 |
//  +------+-------+---------+
package main // import "github.com/go-lpc/npix/cmd/npix-units"

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-lpc/npix/phy"
	"github.com/olekukonko/tablewriter"
)

const usage = `npix-units lists the sorted units of phy directories.

Usage: npix-units [OPTIONS] DIR1 [DIR2 [DIR3 ...]]

Example:

 $> npix-units -quality good -chans 0,100 ./kilosort
 $> npix-units ./prophyler_run1_run2

Options:
`

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("npix-units: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("npix-units", flag.ExitOnError)

		quality = fset.String("quality", phy.All, "quality of units to list (all, good, mua, noise)")
		chans   = fset.String("chans", "", "only list units whose peak channel is in lo,hi")
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
		log.Fatalf("missing path to input phy directory")
	}

	rng, err := parseRange(*chans)
	if err != nil {
		fset.Usage()
		log.Fatalf("invalid channel range %q: %+v", *chans, err)
	}

	for _, dir := range fset.Args() {
		err := process(w, dir, *quality, rng)
		if err != nil {
			log.Fatalf("could not list units of %q: %+v", dir, err)
		}
	}
}

func parseRange(s string) (*phy.ChanRange, error) {
	if s == "" {
		return nil, nil
	}
	lo, hi, ok := strings.Cut(s, ",")
	if !ok {
		return nil, fmt.Errorf("expected lo,hi")
	}
	var (
		rng phy.ChanRange
		err error
	)
	rng.Lo, err = strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("could not parse lower channel: %w", err)
	}
	rng.Hi, err = strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return nil, fmt.Errorf("could not parse upper channel: %w", err)
	}
	if rng.Hi < rng.Lo {
		return nil, fmt.Errorf("invalid channel range [%d, %d]", rng.Lo, rng.Hi)
	}
	return &rng, nil
}

func process(w io.Writer, dir, quality string, chans *phy.ChanRange) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	units, err := phy.Units(dir, quality, chans)
	if err != nil {
		return fmt.Errorf("could not load units: %w", err)
	}

	qs, err := phy.LoadQualities(dir)
	if err != nil {
		return fmt.Errorf("could not load cluster groups: %w", err)
	}
	groups := make(map[phy.Unit]string, len(qs.Rows))
	for _, q := range qs.Rows {
		groups[q.Unit()] = q.Group
	}

	header := []string{"unit", "group"}
	var peaks map[phy.Unit]int
	if chans != nil {
		header = append(header, "channel")
		ucs, err := phy.PeakChannels(dir, units)
		if err != nil {
			return fmt.Errorf("could not find peak channels: %w", err)
		}
		peaks = make(map[phy.Unit]int, len(ucs))
		for _, uc := range ucs {
			peaks[uc.Unit] = uc.Channel
		}
	}

	data := make([][]string, 0, len(units))
	for _, u := range units {
		row := []string{u.String(), groups[u]}
		if peaks != nil {
			row = append(row, strconv.Itoa(peaks[u]))
		}
		data = append(data, row)
	}

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(dir))
	if qs.Merged {
		fmt.Fprintf(wbuf, "merged datasets: %d\n", len(qs.Datasets()))
		m, err := phy.MergedSpikes(dir)
		if err != nil {
			return fmt.Errorf("could not load merged spikes: %w", err)
		}
		if m != nil {
			n, _ := m.Dims()
			fmt.Fprintf(wbuf, "merged spikes: %d\n", n)
		}
	}
	reclen, err := phy.RecordingLength(dir)
	switch {
	case err == nil:
		fmt.Fprintf(wbuf, "recording length: %g s\n", reclen)
	case errors.Is(err, fs.ErrNotExist):
		// no spike times or meta file: length unknown.
	default:
		return fmt.Errorf("could not compute recording length: %w", err)
	}
	fmt.Fprintf(wbuf, "units: %d\n", len(units))

	table := tablewriter.NewWriter(wbuf)
	table.SetHeader(header)
	table.SetBorder(true)
	table.AppendBulk(data)
	table.Render()

	return nil
}
