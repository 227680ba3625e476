// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"fmt"
	"path/filepath"
)

// ChanRange is an inclusive range of channels.
type ChanRange struct {
	Lo, Hi int
}

// Contains reports whether ch is in [Lo, Hi].
func (r ChanRange) Contains(ch int) bool {
	return r.Lo <= ch && ch <= r.Hi
}

// GoodUnits returns the units labelled good in the phy directory dir.
func GoodUnits(dir string) ([]Unit, error) {
	return Units(dir, Good, nil)
}

// Units returns the units of the phy directory dir with the requested
// quality (all, good, mua or noise).
//
// When chans is not nil, only units whose peak channel lies in chans are
// returned, sorted by peak channel.
//
// Listing all the units of a single dataset labels the clusters absent
// from the quality table as unsorted, and updates cluster_group.tsv.
func Units(dir, quality string, chans *ChanRange) ([]Unit, error) {
	err := checkQuality(quality)
	if err != nil {
		return nil, err
	}

	qs, err := LoadQualities(dir)
	if err != nil {
		return nil, err
	}

	var units []Unit
	switch {
	case qs.Merged:
		units, err = mergedUnits(dir, qs, quality)
	default:
		units, err = singleUnits(dir, qs, quality)
	}
	if err != nil {
		return nil, err
	}

	if chans == nil {
		return units, nil
	}

	peaks, err := PeakChannels(dir, units)
	if err != nil {
		return nil, fmt.Errorf("phy: could not sort units by depth: %w", err)
	}
	units = units[:0]
	for _, p := range peaks {
		if !chans.Contains(p.Channel) {
			continue
		}
		units = append(units, p.Unit)
	}
	return units, nil
}

func mergedUnits(dir string, qs *Qualities, quality string) ([]Unit, error) {
	var units []Unit
	for _, ds := range qs.Datasets() {
		switch quality {
		case All:
			src, err := datasetDir(dir, ds)
			if err != nil {
				return nil, err
			}
			ids, err := uniqueClusters(src)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				units = append(units, Unit{Dataset: ds, ID: id})
			}
		default:
			for _, q := range qs.Rows {
				if q.Dataset != ds || q.Group != quality {
					continue
				}
				units = append(units, q.Unit())
			}
		}
	}
	return units, nil
}

func singleUnits(dir string, qs *Qualities, quality string) ([]Unit, error) {
	if qs.unassigned() {
		return nil, nil
	}

	if quality != All {
		var units []Unit
		for _, q := range qs.Rows {
			if q.Group != quality {
				continue
			}
			units = append(units, q.Unit())
		}
		return units, nil
	}

	if qs.HasGroup(Unsorted) {
		units := make([]Unit, len(qs.Rows))
		for i, q := range qs.Rows {
			units[i] = q.Unit()
		}
		return units, nil
	}

	ids, err := uniqueClusters(dir)
	if err != nil {
		return nil, err
	}

	known := make(map[int64]bool, len(qs.Rows))
	for _, q := range qs.Rows {
		known[q.Cluster] = true
	}

	var (
		units   = make([]Unit, len(ids))
		missing = 0
	)
	for i, id := range ids {
		units[i] = Unit{Dataset: NoDataset, ID: id}
		if known[id] {
			continue
		}
		qs.Rows = append(qs.Rows, Quality{Dataset: NoDataset, Cluster: id, Group: Unsorted})
		missing++
	}

	if missing > 0 {
		err = qs.WriteTSV(filepath.Join(dir, "cluster_group.tsv"))
		if err != nil {
			return nil, fmt.Errorf("phy: could not label %d clusters as unsorted: %w", missing, err)
		}
	}

	return units, nil
}
