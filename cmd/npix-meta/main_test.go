// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProcess(t *testing.T) {
	tmp := t.TempDir()

	for _, tc := range []struct {
		name  string
		meta  string
		lists bool
		want  string
		err   string
	}{
		{
			name: "run_g0_t0.imec0.ap.meta",
			meta: "typeThis=imec\nimSampRate=30000\nnSavedChans=385\nfileTimeSecs=1.5\n~snsChanMap=(384,384,1)(AP0;0:0)(AP1;1:1)\n",
			want: `=== run_g0_t0.imec0.ap.meta ===
typeThis     = imec
imSampRate   = 30000
nSavedChans  = 385
fileTimeSecs = 1.5
~snsChanMap  = (384,384,1)(AP0;0:0)(AP1;1:1)
--- stream: imec
sample rate:   30000 Hz
channels:        385
sync channel:    384
duration:        1.5 s
`,
		},
		{
			name:  "run_g0_t0.imec0.lf.meta",
			meta:  "typeThis=imec\nimSampRate=2500\nnSavedChans=385\n~snsChanMap=(384,384,1)(AP0;0:0)(AP1;1:1)\n",
			lists: true,
			want: `=== run_g0_t0.imec0.lf.meta ===
typeThis    = imec
imSampRate  = 2500
nSavedChans = 385
~snsChanMap = [3 items]
     0: 384,384,1
     1: AP0;0:0
     2: AP1;1:1
--- stream: imec
sample rate:    2500 Hz
channels:        385
sync channel:    384
`,
		},
		{
			name:  "run_g1_t0.imec0.lf.meta",
			meta:  "typeThis=imec\nimSampRate=2500\nnSavedChans=385\nimro~Tbl=(0,384)(0 1 0 500 250)\n",
			lists: true,
			want: `=== run_g1_t0.imec0.lf.meta ===
typeThis    = imec
imSampRate  = 2500
nSavedChans = 385
imro~Tbl    = [2 items]
     0: 0,384
     1: 0 1 0 500 250
--- stream: imec
sample rate:    2500 Hz
channels:        385
sync channel:    384
`,
		},
		{
			name: "run_g0_t0.nidq.meta",
			meta: "typeThis=nidq\nniSampRate=25000\nnSavedChans=9\n",
			want: `=== run_g0_t0.nidq.meta ===
typeThis    = nidq
niSampRate  = 25000
nSavedChans = 9
--- stream: nidq
sample rate:   25000 Hz
channels:          9
sync channel:      8
`,
		},
		{
			name: "no-rate.meta",
			meta: "typeThis=imec\nnSavedChans=385\n",
			err:  "could not find sampling rate",
		},
		{
			name: "invalid.meta",
			meta: "typeThis=imec\nimSampRate\n",
			err:  "could not read meta file",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(tmp, tc.name)
			err := os.WriteFile(fname, []byte(tc.meta), 0644)
			if err != nil {
				t.Fatalf("could not write meta file: %+v", err)
			}

			out := new(strings.Builder)
			err = process(out, fname, tc.lists)
			switch {
			case err != nil && tc.err != "":
				if got, want := err.Error(), tc.err; !strings.Contains(got, want) {
					t.Fatalf("invalid error:\ngot= %v\nwant=%v\n", got, want)
				}
			case err != nil && tc.err == "":
				t.Fatalf("could not process meta file: %+v", err)
			case err == nil && tc.err == "":
				if got, want := out.String(), tc.want; got != want {
					t.Fatalf("invalid npix-meta output:\ngot:\n%s\nwant:\n%s\n", got, want)
				}
			case err == nil && tc.err != "":
				t.Fatalf("expected an error containing %q", tc.err)
			}
		})
	}
}

func TestXMain(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "run.meta")
	err := os.WriteFile(fname, []byte("typeThis=imec\nimSampRate=30000\nnSavedChans=385\n"), 0644)
	if err != nil {
		t.Fatalf("could not write meta file: %+v", err)
	}

	xmain(io.Discard, []string{"-lists", fname})
}
