// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package phy reads spike-sorting output stored in phy directories
// (kilosort, spyking-circus, ...): cluster quality tables, spike arrays
// and templates.
//
// A phy directory may also be a merged ("prophyler") view over several
// sorted datasets. In that case, tables carry a dataset_i column, units
// are identified as "<dataset>_<cluster>" and the source directory of
// each dataset is listed in datasets_table.csv.
package phy // import "github.com/go-lpc/npix/phy"

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
)

// NoDataset is the dataset index of units from a single, non-merged, dataset.
const NoDataset = -1

// Quality labels.
const (
	All      = "all"
	Good     = "good"
	MUA      = "mua"
	Noise    = "noise"
	Unsorted = "unsorted"
)

var (
	ErrQuality     = errors.New("phy: invalid quality")
	ErrNoQualities = fmt.Errorf("phy: cluster groups table not found: %w", fs.ErrNotExist)
)

func checkQuality(quality string) error {
	switch quality {
	case All, Good, MUA, Noise:
		return nil
	}
	return fmt.Errorf("%w %q (want one of all, good, mua, noise)", ErrQuality, quality)
}

// Unit identifies a sorted cluster.
type Unit struct {
	Dataset int   // dataset index, or NoDataset
	ID      int64 // cluster id
}

// String returns "<id>" or, for units of merged datasets, "<dataset>_<id>".
func (u Unit) String() string {
	if u.Dataset == NoDataset {
		return strconv.FormatInt(u.ID, 10)
	}
	return fmt.Sprintf("%d_%d", u.Dataset, u.ID)
}

// ParseUnit parses a unit from its string representation.
func ParseUnit(s string) (Unit, error) {
	var (
		u   = Unit{Dataset: NoDataset}
		err error
	)
	if i := strings.Index(s, "_"); i >= 0 {
		ds, err := strconv.Atoi(s[:i])
		if err != nil || ds < 0 {
			return u, fmt.Errorf("phy: invalid dataset index in unit %q", s)
		}
		u.Dataset = ds
		s = s[i+1:]
	}
	u.ID, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return u, fmt.Errorf("phy: invalid cluster id in unit %q: %w", s, err)
	}
	return u, nil
}
