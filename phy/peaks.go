// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// UnitChannel associates a unit with its peak channel.
type UnitChannel struct {
	Unit    Unit
	Channel int
}

// templates holds the spike-sorting templates of a single dataset.
type templates struct {
	clusters []int64   // cluster of each spike
	spikes   []int64   // template of each spike
	data     []float64 // (ntmpl, nsamples, nchans) templates
	ntmpl    int
	nsamps   int
	nchans   int
	chmap    []int64 // channel_map.npy, identity when missing
}

func loadTemplates(dir string) (*templates, error) {
	var (
		tmpl = new(templates)
		err  error
	)

	tmpl.clusters, err = readInts(filepath.Join(dir, "spike_clusters.npy"))
	if err != nil {
		return nil, err
	}
	tmpl.spikes, err = readInts(filepath.Join(dir, "spike_templates.npy"))
	if err != nil {
		return nil, err
	}
	if len(tmpl.spikes) != len(tmpl.clusters) {
		return nil, fmt.Errorf(
			"phy: spike_templates (n=%d) and spike_clusters (n=%d) mismatch in %q",
			len(tmpl.spikes), len(tmpl.clusters), dir,
		)
	}

	var shape []int
	tmpl.data, shape, err = readFloats(filepath.Join(dir, "templates.npy"))
	if err != nil {
		return nil, err
	}
	if len(shape) != 3 || shape[1] == 0 || shape[2] == 0 {
		return nil, fmt.Errorf("phy: invalid templates shape %v in %q (want non-empty 3 dimensions)", shape, dir)
	}
	tmpl.ntmpl, tmpl.nsamps, tmpl.nchans = shape[0], shape[1], shape[2]

	tmpl.chmap, err = readInts(filepath.Join(dir, "channel_map.npy"))
	switch {
	case err == nil:
		if len(tmpl.chmap) != tmpl.nchans {
			return nil, fmt.Errorf(
				"phy: channel_map (n=%d) and templates (nchans=%d) mismatch in %q",
				len(tmpl.chmap), tmpl.nchans, dir,
			)
		}
	case errors.Is(err, fs.ErrNotExist):
		tmpl.chmap = make([]int64, tmpl.nchans)
		for i := range tmpl.chmap {
			tmpl.chmap[i] = int64(i)
		}
	default:
		return nil, err
	}

	return tmpl, nil
}

// template returns the most used template of the spikes of cluster id.
func (tmpl *templates) template(id int64) (int, error) {
	hist := make(map[int64]int)
	for i, cl := range tmpl.clusters {
		if cl != id {
			continue
		}
		hist[tmpl.spikes[i]]++
	}
	if len(hist) == 0 {
		return -1, fmt.Errorf("phy: no spike for cluster %d", id)
	}

	best, n := int64(-1), -1
	for t, c := range hist {
		if c > n || (c == n && t < best) {
			best, n = t, c
		}
	}
	if best < 0 || int(best) >= tmpl.ntmpl {
		return -1, fmt.Errorf("phy: template %d of cluster %d out of range [0, %d)", best, id, tmpl.ntmpl)
	}
	return int(best), nil
}

// peak returns the channel with the largest peak-to-peak amplitude of
// template it.
func (tmpl *templates) peak(it int) int {
	var (
		beg = it * tmpl.nsamps * tmpl.nchans
		ich = 0
		amp = -1.0
	)
	for ch := 0; ch < tmpl.nchans; ch++ {
		lo := tmpl.data[beg+ch]
		hi := lo
		for i := 1; i < tmpl.nsamps; i++ {
			v := tmpl.data[beg+i*tmpl.nchans+ch]
			switch {
			case v < lo:
				lo = v
			case v > hi:
				hi = v
			}
		}
		if ptp := hi - lo; ptp > amp {
			ich, amp = ch, ptp
		}
	}
	return int(tmpl.chmap[ich])
}

// PeakChannels returns the peak channel of each unit of the phy directory
// dir, sorted by channel.
// Units of merged datasets are looked up in their source directory.
func PeakChannels(dir string, units []Unit) ([]UnitChannel, error) {
	var (
		cache = make(map[string]*templates)
		out   = make([]UnitChannel, 0, len(units))
	)

	for _, u := range units {
		src := dir
		if u.Dataset != NoDataset {
			var err error
			src, err = datasetDir(dir, u.Dataset)
			if err != nil {
				return nil, err
			}
		}
		tmpl, ok := cache[src]
		if !ok {
			var err error
			tmpl, err = loadTemplates(src)
			if err != nil {
				return nil, err
			}
			cache[src] = tmpl
		}

		it, err := tmpl.template(u.ID)
		if err != nil {
			return nil, fmt.Errorf("phy: could not find template of unit %v: %w", u, err)
		}
		out = append(out, UnitChannel{Unit: u, Channel: tmpl.peak(it)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}
