// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const imecMeta = `acqApLfSy=384,384,1
appVersion=20190327
fileName=D:/data/run1_g0/run1_g0_imec0/run1_g0_t0.imec0.ap.bin
fileSizeBytes=2310000
fileTimeSecs=1.5
imSampRate=30000
nSavedChans=385
snsApLfSy=384,0,1
typeThis=imec
~imroTbl=(0,384)(0 1 0 500 250)(1 1 0 500 250)
~snsChanMap=(384,384,1)(AP0;0:0)(AP1;1:1)
`

const nidqMeta = "niSampRate=25000.5\r\nnSavedChans=9\r\ntypeThis=nidq\r\n"

func TestReadMeta(t *testing.T) {
	meta, err := ReadMeta(strings.NewReader(imecMeta))
	if err != nil {
		t.Fatalf("could not read meta: %+v", err)
	}

	if got, want := meta.Keys(), []string{
		"acqApLfSy", "appVersion", "fileName", "fileSizeBytes", "fileTimeSecs",
		"imSampRate", "nSavedChans", "snsApLfSy", "typeThis",
		"~imroTbl", "~snsChanMap",
	}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid keys:\ngot= %q\nwant=%q", got, want)
	}

	srate, err := meta.SampleRate()
	if err != nil {
		t.Fatalf("could not get sample rate: %+v", err)
	}
	if got, want := srate, 30000.0; got != want {
		t.Fatalf("invalid sample rate: got=%v, want=%v", got, want)
	}

	nchans, err := meta.NSavedChans()
	if err != nil {
		t.Fatalf("could not get nchans: %+v", err)
	}
	if got, want := nchans, 385; got != want {
		t.Fatalf("invalid nchans: got=%d, want=%d", got, want)
	}

	sync, err := meta.SyncChan()
	if err != nil {
		t.Fatalf("could not get sync channel: %+v", err)
	}
	if got, want := sync, 384; got != want {
		t.Fatalf("invalid sync channel: got=%d, want=%d", got, want)
	}

	dur, err := meta.Duration()
	if err != nil {
		t.Fatalf("could not get duration: %+v", err)
	}
	if got, want := dur, 1.5; got != want {
		t.Fatalf("invalid duration: got=%v, want=%v", got, want)
	}

	imro, err := meta.List("~imroTbl")
	if err != nil {
		t.Fatalf("could not get imro table: %+v", err)
	}
	if got, want := imro, []string{"0,384", "0 1 0 500 250", "1 1 0 500 250"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid imro table:\ngot= %q\nwant=%q", got, want)
	}

	acq, err := meta.List("acqApLfSy")
	if err != nil {
		t.Fatalf("could not get list: %+v", err)
	}
	if got, want := acq, []string{"384,384,1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid plain list:\ngot= %q\nwant=%q", got, want)
	}

	_, err = meta.Float("typeThis")
	if err == nil {
		t.Fatalf("expected an error for a non-numeric value")
	}

	_, err = meta.String("niSampRate")
	if !errors.Is(err, ErrMissingKey) {
		t.Fatalf("invalid missing key error: %+v", err)
	}
	if meta.Has("niSampRate") {
		t.Fatalf("unexpected key")
	}
}

func TestReadMetaNIDQ(t *testing.T) {
	meta, err := ReadMeta(strings.NewReader(nidqMeta))
	if err != nil {
		t.Fatalf("could not read meta: %+v", err)
	}

	typ, err := meta.Type()
	if err != nil {
		t.Fatalf("could not get type: %+v", err)
	}
	if got, want := typ, "nidq"; got != want {
		t.Fatalf("invalid type: got=%q, want=%q", got, want)
	}

	srate, err := meta.SampleRate()
	if err != nil {
		t.Fatalf("could not get sample rate: %+v", err)
	}
	if got, want := srate, 25000.5; got != want {
		t.Fatalf("invalid sample rate: got=%v, want=%v", got, want)
	}
}

func TestReadMetaInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
		want string
	}{
		{
			name: "no-equal",
			data: "typeThis=imec\nnot a key value pair\n",
			want: `spikeglx: invalid meta line 2: missing '=' in "not a key value pair"`,
		},
		{
			name: "empty-key",
			data: "=imec\n",
			want: "spikeglx: invalid meta line 1: empty key",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadMeta(strings.NewReader(tc.data))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got, want := err.Error(), tc.want; got != want {
				t.Fatalf("invalid error:\ngot= %v\nwant=%v", got, want)
			}
		})
	}
}

func TestOpenMeta(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "run1_g0_t0.imec0.ap.meta")
	err := os.WriteFile(fname, []byte(imecMeta), 0644)
	if err != nil {
		t.Fatalf("could not create meta file: %+v", err)
	}

	meta, err := OpenMeta(fname)
	if err != nil {
		t.Fatalf("could not open meta file: %+v", err)
	}
	if got, want := len(meta.Keys()), 11; got != want {
		t.Fatalf("invalid number of keys: got=%d, want=%d", got, want)
	}

	_, err = OpenMeta(filepath.Join(dir, "missing.meta"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("invalid error: %+v", err)
	}
}

func TestMetaPath(t *testing.T) {
	for _, tc := range []struct {
		bin  string
		want string
	}{
		{"run_g0_t0.imec0.ap.bin", "run_g0_t0.imec0.ap.meta"},
		{"/data/run/run_g0_t0.nidq.bin", "/data/run/run_g0_t0.nidq.meta"},
		{"noext", "noext.meta"},
	} {
		t.Run(tc.bin, func(t *testing.T) {
			if got, want := MetaPath(tc.bin), tc.want; got != want {
				t.Fatalf("invalid meta path: got=%q, want=%q", got, want)
			}
		})
	}
}
