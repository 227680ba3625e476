// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// npix-chunk extracts a time window of a SpikeGLX recording, in
// micro-volts, with the mean of each channel subtracted.
//
// Usage: npix-chunk [OPTIONS] -t T1,T2 FILE.bin
//
// Example:
//
//  $> npix-chunk -t 10,10.5 -chans 0-31 -o chunk.npy -plot chunk.png ./run1_g0_t0.imec0.ap.bin
//  spikeglx: chunk size: 11M, available memory: 12.4G
//  spikeglx: channels are offset by 3.214uV on average
//  === run1_g0_t0.imec0.ap.bin ===
//  chunk: 32 channels x 15000 samples, t=[10, 10.5] s
//  saved chunk to "chunk.npy"
//  saved plot to "chunk.png"
package main // import "github.com/go-lpc/npix/cmd/npix-chunk"

import (
	"bufio"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-lpc/npix/spikeglx"
	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const usage = `npix-chunk extracts a time window of a SpikeGLX recording, in
micro-volts, with the mean of each channel subtracted.

Usage: npix-chunk [OPTIONS] -t T1,T2 FILE.bin

Example:

 $> npix-chunk -t 10,10.5 -chans 0-31 -o chunk.npy -plot chunk.png ./run1_g0_t0.imec0.ap.bin
 $> npix-chunk -t 0,1 -chans 1,5,42 -cache ./run1_g0_t0.imec0.ap.bin

Options:
`

// defaultOffset is the vertical spacing of plotted traces, in uV.
const defaultOffset = 450

type config struct {
	t1, t2 float64
	chans  []int // nil for all neural channels
	gain   float64
	cache  bool
	oname  string
	pname  string
	offset float64 // vertical spacing of plotted traces, in uV
}

func main() {
	xmain(os.Stdout, os.Args[1:])
}

func xmain(w io.Writer, args []string) {
	log.SetPrefix("npix-chunk: ")
	log.SetFlags(0)

	var (
		fset = flag.NewFlagSet("npix-chunk", flag.ExitOnError)

		win    = fset.String("t", "", "time window T1,T2 in seconds")
		chans  = fset.String("chans", "", "channels to extract: c1,c2,... or lo-hi (default: all but the sync channel)")
		gain   = fset.Float64("gain", spikeglx.DefaultAmpFactor, "amplification factor of the recording")
		cache  = fset.Bool("cache", false, "load/save the chunk from/to a .npy file next to the recording")
		oname  = fset.String("o", "", "path to output .npy file")
		pname  = fset.String("plot", "", "path to output plot file (.png, .svg, .pdf)")
		offset = fset.Float64("offset", defaultOffset, "vertical offset between plotted channels, in uV")
	)

	fset.Usage = func() {
		fmt.Print(usage)
		fset.PrintDefaults()
	}

	err := fset.Parse(args)
	if err != nil {
		log.Fatalf("could not parse input arguments: %+v", err)
	}

	if fset.NArg() != 1 {
		fset.Usage()
		log.Fatalf("missing path to input binary file")
	}

	cfg := config{
		gain:   *gain,
		cache:  *cache,
		oname:  *oname,
		pname:  *pname,
		offset: *offset,
	}

	cfg.t1, cfg.t2, err = parseWindow(*win)
	if err != nil {
		fset.Usage()
		log.Fatalf("invalid time window %q: %+v", *win, err)
	}

	cfg.chans, err = parseChans(*chans)
	if err != nil {
		fset.Usage()
		log.Fatalf("invalid channels %q: %+v", *chans, err)
	}

	fname := fset.Arg(0)
	err = process(w, fname, cfg)
	if err != nil {
		log.Fatalf("could not extract chunk from %q: %+v", fname, err)
	}
}

func parseWindow(s string) (t1, t2 float64, err error) {
	toks := strings.Split(s, ",")
	if len(toks) != 2 {
		return 0, 0, fmt.Errorf("expected T1,T2")
	}
	t1, err = strconv.ParseFloat(strings.TrimSpace(toks[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("could not parse T1: %w", err)
	}
	t2, err = strconv.ParseFloat(strings.TrimSpace(toks[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("could not parse T2: %w", err)
	}
	return t1, t2, nil
}

func parseChans(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok {
		beg, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("could not parse first channel: %w", err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("could not parse last channel: %w", err)
		}
		if end < beg {
			return nil, fmt.Errorf("invalid channel range [%d, %d]", beg, end)
		}
		chans := make([]int, 0, end-beg+1)
		for ch := beg; ch <= end; ch++ {
			chans = append(chans, ch)
		}
		return chans, nil
	}

	var chans []int
	for _, tok := range strings.Split(s, ",") {
		ch, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil {
			return nil, fmt.Errorf("could not parse channel: %w", err)
		}
		chans = append(chans, ch)
	}
	return chans, nil
}

func process(w io.Writer, fname string, cfg config) error {
	wbuf := bufio.NewWriter(w)
	defer wbuf.Flush()

	rec, meta, err := spikeglx.Load(fname)
	if err != nil {
		return fmt.Errorf("could not load recording: %w", err)
	}
	defer rec.Close()

	srate, err := meta.SampleRate()
	if err != nil {
		return fmt.Errorf("could not find sampling rate: %w", err)
	}
	sync, err := meta.SyncChan()
	if err != nil {
		return fmt.Errorf("could not find sync channel: %w", err)
	}

	req := spikeglx.ChunkRequest{
		T1:         cfg.t1,
		T2:         cfg.t2,
		Channels:   cfg.chans,
		SampleRate: srate,
		AmpFactor:  cfg.gain,
		SyncChan:   sync,
		Cache:      cfg.cache,
	}
	if req.Channels == nil {
		req.Channels = make([]int, sync)
		for i := range req.Channels {
			req.Channels[i] = i
		}
	}

	m, err := rec.Chunk(req)
	if err != nil {
		return fmt.Errorf("could not extract chunk: %w", err)
	}
	nchans, nsamps := m.Dims()

	fmt.Fprintf(wbuf, "=== %s ===\n", filepath.Base(fname))
	fmt.Fprintf(wbuf, "chunk: %d channels x %d samples, t=[%g, %g] s\n", nchans, nsamps, cfg.t1, cfg.t2)

	if cfg.oname != "" {
		err = save(cfg.oname, m)
		if err != nil {
			return fmt.Errorf("could not save chunk: %w", err)
		}
		fmt.Fprintf(wbuf, "saved chunk to %q\n", cfg.oname)
	}

	if cfg.pname != "" {
		title := fmt.Sprintf("%s, t=[%g, %g] s", filepath.Base(fname), cfg.t1, cfg.t2)
		err = plotChunk(cfg.pname, title, m, req, cfg.offset)
		if err != nil {
			return fmt.Errorf("could not plot chunk: %w", err)
		}
		fmt.Fprintf(wbuf, "saved plot to %q\n", cfg.pname)
	}

	return nil
}

func save(fname string, m *mat.Dense) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create output file: %w", err)
	}
	defer f.Close()

	err = npy.Write(f, m)
	if err != nil {
		return fmt.Errorf("could not write chunk: %w", err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close output file: %w", err)
	}
	return nil
}

// plotChunk draws each channel of the chunk as a trace, shifted
// vertically by offset uV from the previous one.
func plotChunk(fname, title string, m *mat.Dense, req spikeglx.ChunkRequest, offset float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Voltage (uV)"
	p.Y.Tick.Marker = chanTicks(req.Channels, offset)

	nchans, nsamps := m.Dims()
	for j := 0; j < nchans; j++ {
		pts := make(plotter.XYs, nsamps)
		for i := range pts {
			pts[i].X = (req.T1 + float64(i)/req.SampleRate) * 1e3
			pts[i].Y = m.At(j, i) + float64(j)*offset
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("could not create trace of channel %d: %w", req.Channels[j], err)
		}
		line.Color = color.Black
		line.Width = vg.Points(0.5)
		p.Add(line)
	}

	err := p.Save(14*vg.Inch, 6*vg.Inch, fname)
	if err != nil {
		return fmt.Errorf("could not save plot: %w", err)
	}
	return nil
}

// chanTicks labels the baseline of each trace with its channel number.
func chanTicks(chans []int, offset float64) plot.Ticker {
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		ticks := make([]plot.Tick, 0, len(chans))
		for j, ch := range chans {
			y := float64(j) * offset
			if y < min || max < y {
				continue
			}
			ticks = append(ticks, plot.Tick{Value: y, Label: fmt.Sprintf("#%d", ch)})
		}
		return ticks
	})
}
