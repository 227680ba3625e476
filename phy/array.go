// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sbinet/npyio/npy"
)

// readInts reads a .npy file of integers.
func readInts(fname string) ([]int64, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("phy: could not open array file: %w", err)
	}
	defer f.Close()

	r, err := npy.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("phy: could not read header of %q: %w", fname, err)
	}

	vs, err := readAsInt64(r)
	if err != nil {
		return nil, fmt.Errorf("phy: could not read %q: %w", fname, err)
	}
	return vs, nil
}

func readAsInt64(r *npy.Reader) ([]int64, error) {
	switch typ := r.Header.Descr.Type; typ {
	case "<i8":
		var vs []int64
		err := r.Read(&vs)
		return vs, err
	case "<i4":
		var vs []int32
		err := r.Read(&vs)
		return convert(vs), err
	case "<i2":
		var vs []int16
		err := r.Read(&vs)
		return convert(vs), err
	case "|i1":
		var vs []int8
		err := r.Read(&vs)
		return convert(vs), err
	case "<u8":
		var vs []uint64
		err := r.Read(&vs)
		return convert(vs), err
	case "<u4":
		var vs []uint32
		err := r.Read(&vs)
		return convert(vs), err
	case "<u2":
		var vs []uint16
		err := r.Read(&vs)
		return convert(vs), err
	case "|u1":
		var vs []uint8
		err := r.Read(&vs)
		return convert(vs), err
	default:
		return nil, fmt.Errorf("unsupported integer array type %q", typ)
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func convert[T number](vs []T) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = int64(v)
	}
	return out
}

func toFloat64[T number](vs []T) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = float64(v)
	}
	return out
}

// readAsFloat64 reads a numeric array, of any shape, as a flat slice.
func readAsFloat64(r *npy.Reader) ([]float64, error) {
	switch typ := r.Header.Descr.Type; typ {
	case "<f8":
		var vs []float64
		err := r.Read(&vs)
		return vs, err
	case "<f4":
		var vs []float32
		err := r.Read(&vs)
		return toFloat64(vs), err
	default:
		vs, err := readAsInt64(r)
		if err != nil {
			return nil, fmt.Errorf("unsupported numeric array type %q", typ)
		}
		return toFloat64(vs), nil
	}
}

// readFloats reads a C-ordered .npy file of numbers, together with its shape.
func readFloats(fname string) ([]float64, []int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, fmt.Errorf("phy: could not open array file: %w", err)
	}
	defer f.Close()

	r, err := npy.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("phy: could not read header of %q: %w", fname, err)
	}
	if r.Header.Descr.Fortran {
		return nil, nil, fmt.Errorf("phy: Fortran-ordered array %q not supported", fname)
	}

	vs, err := readAsFloat64(r)
	if err != nil {
		return nil, nil, fmt.Errorf("phy: could not read %q: %w", fname, err)
	}
	return vs, r.Header.Descr.Shape, nil
}

// uniqueClusters returns the sorted distinct values of spike_clusters.npy in dir.
func uniqueClusters(dir string) ([]int64, error) {
	vs, err := readInts(filepath.Join(dir, "spike_clusters.npy"))
	if err != nil {
		return nil, err
	}
	return unique(vs), nil
}

func unique(vs []int64) []int64 {
	set := make(map[int64]struct{}, len(vs))
	out := make([]int64, 0)
	for _, v := range vs {
		if _, dup := set[v]; dup {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
