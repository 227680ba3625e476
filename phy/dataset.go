// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-lpc/npix/spikeglx"
	"github.com/sbinet/npyio/npz"
	"gonum.org/v1/gonum/mat"
)

// Dataset describes one of the sources of a merged phy directory.
type Dataset struct {
	Index int
	Name  string
	Dir   string
}

// Datasets reads the datasets_table.csv file of the merged phy directory dir.
func Datasets(dir string) ([]Dataset, error) {
	fname := filepath.Join(dir, "datasets_table.csv")
	tbl, err := readTable(fname, ',')
	if err != nil {
		return nil, err
	}

	var icol [3]int
	for i, name := range []string{"dataset_i", "dataset_name", "dp"} {
		icol[i], err = tbl.mustCol(name, fname)
		if err != nil {
			return nil, err
		}
	}

	dss := make([]Dataset, 0, len(tbl.rows))
	for i, row := range tbl.rows {
		idx, err := parseInt(row[icol[0]])
		if err != nil {
			return nil, fmt.Errorf("phy: invalid dataset_i in row %d of %q: %w", i+1, fname, err)
		}
		dss = append(dss, Dataset{
			Index: int(idx),
			Name:  row[icol[1]],
			Dir:   row[icol[2]],
		})
	}
	return dss, nil
}

// datasetDir returns the source directory of dataset ds of the merged
// phy directory dir. The source directory must exist.
func datasetDir(dir string, ds int) (string, error) {
	dss, err := Datasets(dir)
	if err != nil {
		return "", err
	}
	for _, v := range dss {
		if v.Index != ds {
			continue
		}
		_, err := os.Stat(v.Dir)
		if err != nil {
			return "", fmt.Errorf(
				"phy: source path %q of dataset %q does not exist anymore, "+
					"update its path in %q: %w",
				v.Dir, v.Name, filepath.Join(dir, "datasets_table.csv"), err,
			)
		}
		return v.Dir, nil
	}
	return "", fmt.Errorf("phy: no dataset %d in %q", ds, filepath.Join(dir, "datasets_table.csv"))
}

// IsProphyler reports whether dir is a merged (prophyler) phy directory.
func IsProphyler(dir string) bool {
	return strings.HasPrefix(filepath.Base(dir), "prophyler")
}

// ProphylerSource resolves a unit of a merged phy directory into the
// directory of its source dataset and the plain cluster id in that dataset.
// Directories that are not merged are returned unchanged, with the unit.
func ProphylerSource(dir string, u Unit) (string, Unit, error) {
	if !IsProphyler(dir) {
		return dir, u, nil
	}
	if u.Dataset == NoDataset {
		return "", u, fmt.Errorf("phy: unit %v of merged directory %q has no dataset index", u, dir)
	}

	src, err := datasetDir(dir, u.Dataset)
	if err != nil {
		return "", u, err
	}
	return src, Unit{Dataset: NoDataset, ID: u.ID}, nil
}

// MergedSpikes returns the first array stored in the
// merged_clusters_spikes.npz file of dir, or nil if dir holds no such file.
// One-dimensional arrays are returned as a single column.
func MergedSpikes(dir string) (*mat.Dense, error) {
	fname := filepath.Join(dir, "merged_clusters_spikes.npz")
	if _, err := os.Stat(fname); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	r, err := npz.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("phy: could not open %q: %w", fname, err)
	}
	defer r.Close()

	keys := r.Keys()
	if len(keys) == 0 {
		return nil, fmt.Errorf("phy: no array in %q", fname)
	}
	sort.Strings(keys)
	key := keys[0]

	hdr := r.Header(key)
	if hdr == nil {
		return nil, fmt.Errorf("phy: could not find header of %q in %q", key, fname)
	}

	var data []float64
	switch typ := hdr.Descr.Type; typ {
	case "<f8":
		err = r.Read(key, &data)
	case "<f4":
		var vs []float32
		err = r.Read(key, &vs)
		data = toFloat64(vs)
	case "<i8":
		var vs []int64
		err = r.Read(key, &vs)
		data = toFloat64(vs)
	case "<u8":
		var vs []uint64
		err = r.Read(key, &vs)
		data = toFloat64(vs)
	case "<i4":
		var vs []int32
		err = r.Read(key, &vs)
		data = toFloat64(vs)
	default:
		return nil, fmt.Errorf("phy: unsupported array type %q in %q", typ, fname)
	}
	if err != nil {
		return nil, fmt.Errorf("phy: could not read %q from %q: %w", key, fname, err)
	}

	rows, cols := len(data), 1
	if shape := hdr.Descr.Shape; len(shape) == 2 {
		rows, cols = shape[0], shape[1]
	}
	if rows*cols == 0 {
		return &mat.Dense{}, nil
	}
	if hdr.Descr.Fortran {
		m := mat.NewDense(cols, rows, data)
		return mat.DenseCopyOf(m.T()), nil
	}
	return mat.NewDense(rows, cols, data), nil
}

// metaFile returns the SpikeGLX .meta file of the phy directory dir,
// preferring the one of an AP stream.
func metaFile(dir string) (string, error) {
	for _, pat := range []string{"*.ap.meta", "*.meta"} {
		ms, err := filepath.Glob(filepath.Join(dir, pat))
		if err != nil {
			return "", err
		}
		if len(ms) > 0 {
			sort.Strings(ms)
			return ms[0], nil
		}
	}
	return "", fmt.Errorf("phy: no .meta file in %q: %w", dir, fs.ErrNotExist)
}

// RecordingLength returns the time, in seconds, of the last spike of the
// phy directory dir.
func RecordingLength(dir string) (float64, error) {
	fname, err := metaFile(dir)
	if err != nil {
		return 0, err
	}
	meta, err := spikeglx.OpenMeta(fname)
	if err != nil {
		return 0, fmt.Errorf("phy: could not read meta data: %w", err)
	}
	srate, err := meta.SampleRate()
	if err != nil {
		return 0, fmt.Errorf("phy: could not find sampling rate: %w", err)
	}

	times, err := readInts(filepath.Join(dir, "spike_times.npy"))
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, fmt.Errorf("phy: no spike in %q", dir)
	}
	return float64(times[len(times)-1]) / srate, nil
}
