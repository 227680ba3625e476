// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/go-lpc/npix/spikeglx"
	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
)

// unitGain is the amplification factor for which 1 ADC count is 1uV.
const unitGain = 1.2e6 / 1024

// writeRecording writes a 3-channel recording of 20 samples at 10Hz.
// Sample i of channel ch holds (ch+1)*i.
func writeRecording(t *testing.T, dir string) string {
	t.Helper()

	const (
		nchans = 3
		nsamps = 20
	)
	raw := make([]byte, nsamps*nchans*2)
	for i := 0; i < nsamps; i++ {
		for ch := 0; ch < nchans; ch++ {
			binary.LittleEndian.PutUint16(raw[(i*nchans+ch)*2:], uint16((ch+1)*i))
		}
	}

	fname := filepath.Join(dir, "run_g0_t0.imec0.ap.bin")
	err := os.WriteFile(fname, raw, 0644)
	if err != nil {
		t.Fatalf("could not write binary file: %+v", err)
	}
	err = os.WriteFile(
		spikeglx.MetaPath(fname),
		[]byte("typeThis=imec\nimSampRate=10\nnSavedChans=3\nfileTimeSecs=2\n"),
		0644,
	)
	if err != nil {
		t.Fatalf("could not write meta file: %+v", err)
	}
	return fname
}

func TestParseWindow(t *testing.T) {
	for _, tc := range []struct {
		str    string
		t1, t2 float64
		err    bool
	}{
		{str: "0,1", t1: 0, t2: 1},
		{str: "10.5, 11", t1: 10.5, t2: 11},
		{str: "", err: true},
		{str: "1", err: true},
		{str: "1,2,3", err: true},
		{str: "a,2", err: true},
		{str: "1,b", err: true},
	} {
		t.Run(tc.str, func(t *testing.T) {
			t1, t2, err := parseWindow(tc.str)
			switch {
			case err != nil && !tc.err:
				t.Fatalf("could not parse window: %+v", err)
			case err == nil && tc.err:
				t.Fatalf("expected an error")
			case err != nil && tc.err:
				return
			}
			if t1 != tc.t1 || t2 != tc.t2 {
				t.Fatalf("invalid window: got=[%v, %v], want=[%v, %v]", t1, t2, tc.t1, tc.t2)
			}
		})
	}
}

func TestParseChans(t *testing.T) {
	for _, tc := range []struct {
		str  string
		want []int
		err  bool
	}{
		{str: "", want: nil},
		{str: "3", want: []int{3}},
		{str: "1,5, 42", want: []int{1, 5, 42}},
		{str: "2-5", want: []int{2, 3, 4, 5}},
		{str: "7-7", want: []int{7}},
		{str: "5-2", err: true},
		{str: "a-2", err: true},
		{str: "1-b", err: true},
		{str: "1,x", err: true},
	} {
		t.Run(tc.str, func(t *testing.T) {
			got, err := parseChans(tc.str)
			switch {
			case err != nil && !tc.err:
				t.Fatalf("could not parse channels: %+v", err)
			case err == nil && tc.err:
				t.Fatalf("expected an error")
			case err != nil && tc.err:
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid channels: got=%v, want=%v", got, tc.want)
			}
		})
	}
}

func TestChanTicks(t *testing.T) {
	for _, tc := range []struct {
		name     string
		chans    []int
		offset   float64
		min, max float64
		want     []plot.Tick
	}{
		{
			name:   "all",
			chans:  []int{4, 7, 42},
			offset: defaultOffset,
			min:    -100,
			max:    1000,
			want: []plot.Tick{
				{Value: 0, Label: "#4"},
				{Value: 450, Label: "#7"},
				{Value: 900, Label: "#42"},
			},
		},
		{
			name:   "clipped",
			chans:  []int{0, 1, 2, 3},
			offset: 10,
			min:    5,
			max:    20,
			want: []plot.Tick{
				{Value: 10, Label: "#1"},
				{Value: 20, Label: "#2"},
			},
		},
		{
			name:   "none",
			chans:  []int{0},
			offset: 10,
			min:    5,
			max:    20,
			want:   []plot.Tick{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := chanTicks(tc.chans, tc.offset).Ticks(tc.min, tc.max)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid ticks:\ngot= %v\nwant=%v", got, tc.want)
			}
		})
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	fname := writeRecording(t, dir)

	var (
		oname = filepath.Join(dir, "out.npy")
		pname = filepath.Join(dir, "out.png")
	)

	out := new(strings.Builder)
	err := process(out, fname, config{
		t1:     0.5,
		t2:     1,
		gain:   unitGain,
		oname:  oname,
		pname:  pname,
		offset: 10,
	})
	if err != nil {
		t.Fatalf("could not process file: %+v", err)
	}

	want := `=== run_g0_t0.imec0.ap.bin ===
chunk: 2 channels x 5 samples, t=[0.5, 1] s
saved chunk to "` + oname + `"
saved plot to "` + pname + `"
`
	if got := out.String(); got != want {
		t.Fatalf("invalid npix-chunk output:\ngot:\n%s\nwant:\n%s\n", got, want)
	}

	f, err := os.Open(oname)
	if err != nil {
		t.Fatalf("could not open chunk file: %+v", err)
	}
	defer f.Close()

	var m mat.Dense
	err = npy.Read(f, &m)
	if err != nil {
		t.Fatalf("could not read chunk file: %+v", err)
	}
	ref := mat.NewDense(2, 5, []float64{
		-2, -1, 0, 1, 2,
		-4, -2, 0, 2, 4,
	})
	if !mat.EqualApprox(&m, ref, 1e-9) {
		t.Fatalf("invalid chunk:\ngot= %v\nwant=%v", mat.Formatted(&m), mat.Formatted(ref))
	}

	fi, err := os.Stat(pname)
	if err != nil {
		t.Fatalf("could not stat plot file: %+v", err)
	}
	if fi.Size() == 0 {
		t.Fatalf("empty plot file")
	}
}

func TestProcessChans(t *testing.T) {
	dir := t.TempDir()
	fname := writeRecording(t, dir)

	out := new(strings.Builder)
	err := process(out, fname, config{
		t1:    0,
		t2:    0.3,
		chans: []int{2},
		gain:  unitGain,
		cache: true,
	})
	if err != nil {
		t.Fatalf("could not process file: %+v", err)
	}
	const want = "=== run_g0_t0.imec0.ap.bin ===\nchunk: 1 channels x 3 samples, t=[0, 0.3] s\n"
	if got := out.String(); got != want {
		t.Fatalf("invalid npix-chunk output:\ngot:\n%s\nwant:\n%s\n", got, want)
	}

	cache := spikeglx.ChunkCachePath(fname, 0, 0.3, []int{2})
	if _, err := os.Stat(cache); err != nil {
		t.Fatalf("could not find chunk cache: %+v", err)
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	fname := writeRecording(t, dir)

	for _, tc := range []struct {
		name string
		cfg  config
	}{
		{"out-of-file", config{t1: 1, t2: 5, gain: unitGain}},
		{"reversed-window", config{t1: 1, t2: 0.5, gain: unitGain}},
		{"invalid-channel", config{t1: 0, t2: 1, chans: []int{3}, gain: unitGain}},
		{"invalid-gain", config{t1: 0, t2: 1, gain: 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := process(io.Discard, fname, tc.cfg)
			if !errors.Is(err, spikeglx.ErrRange) {
				t.Fatalf("invalid error: got=%v, want=%v", err, spikeglx.ErrRange)
			}
		})
	}
}

func TestXMain(t *testing.T) {
	dir := t.TempDir()
	fname := writeRecording(t, dir)
	oname := filepath.Join(dir, "chunk.npy")

	xmain(io.Discard, []string{"-t", "0,1", "-chans", "0-1", "-o", oname, fname})

	if _, err := os.Stat(oname); err != nil {
		t.Fatalf("could not find output file: %+v", err)
	}
}
