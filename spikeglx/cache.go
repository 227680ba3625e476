// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sbinet/npyio/npy"
	"gonum.org/v1/gonum/mat"
)

var errNoCache = errors.New("spikeglx: no cache file")

// ChunkCachePath returns the path of the .npy file holding the chunk
// [t1, t2] of channels chans extracted from the binary file binpath:
//
//	<dir>/<bin>_t<t1>-<t2>_ch<first>-<last>.npy
func ChunkCachePath(binpath string, t1, t2 float64, chans []int) string {
	var (
		dir = filepath.Dir(binpath)
		bin = filepath.Base(binpath)
		c1  = 0
		c2  = 0
	)
	if len(chans) > 0 {
		c1 = chans[0]
		c2 = chans[len(chans)-1]
	}
	name := fmt.Sprintf(
		"%s_t%s-%s_ch%d-%d.npy",
		bin, ftoa(t1), ftoa(t2), c1, c2,
	)
	return filepath.Join(dir, name)
}

// SyncCachePath returns the path of the .npy file holding the sync
// channel samples extracted from the binary file binpath.
func SyncCachePath(binpath string) string {
	return filepath.Join(filepath.Dir(binpath), filepath.Base(binpath)+"_sync.npy")
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func openCache(fname string) (*os.File, error) {
	f, err := os.Open(fname)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNoCache
		}
		return nil, err
	}
	return f, nil
}

func loadMatrix(fname string) (*mat.Dense, error) {
	f, err := openCache(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m mat.Dense
	err = npy.Read(f, &m)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", fname, err)
	}
	return &m, nil
}

func saveMatrix(fname string, m *mat.Dense) error {
	return save(fname, m)
}

func loadSamples(fname string) ([]int16, error) {
	f, err := openCache(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var vs []int16
	err = npy.Read(f, &vs)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", fname, err)
	}
	return vs, nil
}

func saveSamples(fname string, vs []int16) error {
	return save(fname, vs)
}

func save(fname string, v interface{}) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("could not create %q: %w", fname, err)
	}
	defer f.Close()

	err = npy.Write(f, v)
	if err != nil {
		return fmt.Errorf("could not write %q: %w", fname, err)
	}

	err = f.Close()
	if err != nil {
		return fmt.Errorf("could not close %q: %w", fname, err)
	}
	return nil
}
