// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-lpc/npix/spikeglx"
)

// writeRecording writes a 3-channel recording sampled at 10Hz, with the
// given sync samples on the last channel.
func writeRecording(t *testing.T, dir string, sync []int16) string {
	t.Helper()

	const nchans = 3
	raw := make([]byte, len(sync)*nchans*2)
	for i, v := range sync {
		for ch := 0; ch < nchans; ch++ {
			w := int16(100*ch + i)
			if ch == nchans-1 {
				w = v
			}
			binary.LittleEndian.PutUint16(raw[(i*nchans+ch)*2:], uint16(w))
		}
	}

	fname := filepath.Join(dir, "run_g0_t0.imec0.ap.bin")
	err := os.WriteFile(fname, raw, 0644)
	if err != nil {
		t.Fatalf("could not write binary file: %+v", err)
	}
	err = os.WriteFile(
		spikeglx.MetaPath(fname),
		[]byte("typeThis=imec\nimSampRate=10\nnSavedChans=3\n"),
		0644,
	)
	if err != nil {
		t.Fatalf("could not write meta file: %+v", err)
	}
	return fname
}

func TestProcess(t *testing.T) {
	fname := writeRecording(t, t.TempDir(), []int16{0, 1, 1, 0, 4, 4, 0})

	for _, tc := range []struct {
		name string
		cfg  config
		want string
	}{
		{
			name: "edges",
			cfg:  config{bits: 16, ch: -1},
			want: `=== run_g0_t0.imec0.ap.bin ===
line 0:
  onsets:  [0]
  offsets: [0.2]
line 2:
  onsets:  [0.3]
  offsets: [0.5]
`,
		},
		{
			name: "inverted",
			cfg:  config{bits: 16, ch: -1, invert: true},
			want: `=== run_g0_t0.imec0.ap.bin ===
line 0:
  onsets:  [0.2]
  offsets: [0]
line 2:
  onsets:  [0.5]
  offsets: [0.3]
`,
		},
		{
			name: "samples",
			cfg:  config{bits: 16, ch: 2, srate: 1},
			want: `=== run_g0_t0.imec0.ap.bin ===
line 0:
  onsets:  [0]
  offsets: [2]
line 2:
  onsets:  [3]
  offsets: [5]
`,
		},
		{
			name: "binary",
			cfg:  config{bits: 4, ch: -1, binary: true},
			want: `=== run_g0_t0.imec0.ap.bin ===
0 0000
1 1000
2 1000
3 0000
4 0010
5 0010
6 0000
`,
		},
		{
			name: "neural-channel",
			cfg:  config{bits: 2, ch: 0, binary: true},
			want: `=== run_g0_t0.imec0.ap.bin ===
0 00
1 10
2 01
3 11
4 00
5 10
6 01
`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := new(strings.Builder)
			err := process(out, fname, tc.cfg)
			if err != nil {
				t.Fatalf("could not process file: %+v", err)
			}
			if got, want := out.String(), tc.want; got != want {
				t.Fatalf("invalid npix-sync output:\ngot:\n%s\nwant:\n%s\n", got, want)
			}
		})
	}
}

func TestProcessSteps(t *testing.T) {
	// line 6 is the active-low reward line.
	fname := writeRecording(t, t.TempDir(), []int16{64, 65, 65, 73, 9, 25, 64})

	out := new(strings.Builder)
	err := process(out, fname, config{bits: 16, ch: -1, steps: true})
	if err != nil {
		t.Fatalf("could not process file: %+v", err)
	}
	const want = `=== run_g0_t0.imec0.ap.bin ===
  sample wheel left right reward         us
       1     1    0     0      0          0
       3     0    1     0      0     200000
       4     0    0     0      1     100000
       5     0    0     1      1     100000
       6    -1   -1    -1      0     100000
`
	if got := out.String(); got != want {
		t.Fatalf("invalid npix-sync output:\ngot:\n%s\nwant:\n%s\n", got, want)
	}
}

func TestProcessErrors(t *testing.T) {
	dir := t.TempDir()
	fname := writeRecording(t, dir, []int16{0, 1})

	for _, tc := range []struct {
		name  string
		fname string
		cfg   config
		want  string
	}{
		{
			name:  "missing-meta",
			fname: filepath.Join(dir, "missing.bin"),
			cfg:   config{bits: 16, ch: -1},
			want:  "could not load recording",
		},
		{
			name:  "invalid-channel",
			fname: fname,
			cfg:   config{bits: 16, ch: 3},
			want:  "could not extract sync channel",
		},
		{
			name:  "steps-too-few-lines",
			fname: fname,
			cfg:   config{bits: 4, ch: -1, steps: true},
			want:  "could not decode steps",
		},
		{
			name:  "invalid-bits",
			fname: fname,
			cfg:   config{bits: 0, ch: -1},
			want:  "could not decode sync channel",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := process(io.Discard, tc.fname, tc.cfg)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; !strings.Contains(got, want) {
				t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
			}
		})
	}
}

func TestCache(t *testing.T) {
	fname := writeRecording(t, t.TempDir(), []int16{0, 1, 1, 0})

	xmain(io.Discard, []string{"-cache", fname})

	cache := spikeglx.SyncCachePath(fname)
	if _, err := os.Stat(cache); err != nil {
		t.Fatalf("could not find sync cache file: %+v", err)
	}

	// the cache takes precedence over the binary file.
	err := os.Truncate(fname, 0)
	if err != nil {
		t.Fatalf("could not truncate binary file: %+v", err)
	}

	out := new(strings.Builder)
	err = process(out, fname, config{bits: 16, ch: -1, cache: true})
	if err != nil {
		t.Fatalf("could not process cached file: %+v", err)
	}
	const want = "=== run_g0_t0.imec0.ap.bin ===\nline 0:\n  onsets:  [0]\n  offsets: [0.2]\n"
	if got := out.String(); got != want {
		t.Fatalf("invalid npix-sync output:\ngot:\n%s\nwant:\n%s\n", got, want)
	}
}
