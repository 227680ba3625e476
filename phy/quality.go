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

	"go-hep.org/x/hep/csvutil"
)

// Quality is the label given to a cluster.
type Quality struct {
	Dataset int // dataset index, or NoDataset
	Cluster int64
	Group   string // good, mua, noise, unsorted or empty when unassigned
}

// Unit returns the unit labelled by q.
func (q Quality) Unit() Unit {
	return Unit{Dataset: q.Dataset, ID: q.Cluster}
}

// Qualities is a cluster groups table.
type Qualities struct {
	Merged bool // whether rows carry a dataset index
	Rows   []Quality
}

var qualityTables = []struct {
	name   string
	comma  rune
	merged bool
}{
	{"cluster_group.tsv", '\t', false},
	{"merged_cluster_group.tsv", '\t', true},
	{"cluster_groups.csv", ',', false},
	{"merged_cluster_groups.csv", ',', true},
}

// LoadQualities loads the cluster groups table of the phy directory dir.
// Tables are searched for in this order:
// cluster_group.tsv, merged_cluster_group.tsv, cluster_groups.csv and
// merged_cluster_groups.csv.
func LoadQualities(dir string) (*Qualities, error) {
	for _, tbl := range qualityTables {
		fname := filepath.Join(dir, tbl.name)
		_, err := os.Stat(fname)
		switch {
		case err == nil:
			return readQualities(fname, tbl.comma, tbl.merged)
		case errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return nil, fmt.Errorf("phy: could not stat %q: %w", fname, err)
		}
	}
	return nil, fmt.Errorf("%w in %q", ErrNoQualities, dir)
}

func readQualities(fname string, comma rune, merged bool) (*Qualities, error) {
	tbl, err := readTable(fname, comma)
	if err != nil {
		return nil, err
	}

	icl, err := tbl.mustCol("cluster_id", fname)
	if err != nil {
		return nil, err
	}
	igr, err := tbl.mustCol("group", fname)
	if err != nil {
		return nil, err
	}
	ids := -1
	if merged {
		ids, err = tbl.mustCol("dataset_i", fname)
		if err != nil {
			return nil, err
		}
	}

	qs := &Qualities{
		Merged: merged,
		Rows:   make([]Quality, 0, len(tbl.rows)),
	}
	for i, row := range tbl.rows {
		cl, err := parseInt(row[icl])
		if err != nil {
			return nil, fmt.Errorf("phy: invalid cluster_id in row %d of %q: %w", i+1, fname, err)
		}
		q := Quality{
			Dataset: NoDataset,
			Cluster: cl,
			Group:   row[igr],
		}
		if merged {
			ds, err := parseInt(row[ids])
			if err != nil {
				return nil, fmt.Errorf("phy: invalid dataset_i in row %d of %q: %w", i+1, fname, err)
			}
			q.Dataset = int(ds)
		}
		qs.Rows = append(qs.Rows, q)
	}

	return qs, nil
}

// Datasets returns the dataset indices of the table, in order of
// first appearance.
func (qs *Qualities) Datasets() []int {
	var (
		seen = make(map[int]bool)
		out  []int
	)
	for _, q := range qs.Rows {
		if seen[q.Dataset] {
			continue
		}
		seen[q.Dataset] = true
		out = append(out, q.Dataset)
	}
	return out
}

// HasGroup reports whether at least one cluster is labelled with group.
func (qs *Qualities) HasGroup(group string) bool {
	for _, q := range qs.Rows {
		if q.Group == group {
			return true
		}
	}
	return false
}

// unassigned reports whether no cluster has been given a label yet.
func (qs *Qualities) unassigned() bool {
	for _, q := range qs.Rows {
		if q.Group != "" {
			return false
		}
	}
	return true
}

// WriteTSV writes the table as a tab-separated file.
func (qs *Qualities) WriteTSV(fname string) error {
	tbl, err := csvutil.Create(fname)
	if err != nil {
		return fmt.Errorf("phy: could not create table %q: %w", fname, err)
	}
	defer tbl.Close()
	tbl.Writer.Comma = '\t'

	hdr := "cluster_id\tgroup\n"
	if qs.Merged {
		hdr = "dataset_i\tcluster_id\tgroup\n"
	}
	err = tbl.WriteHeader(hdr)
	if err != nil {
		return fmt.Errorf("phy: could not write header of %q: %w", fname, err)
	}

	for _, q := range qs.Rows {
		switch {
		case qs.Merged:
			err = tbl.WriteRow(q.Dataset, q.Cluster, q.Group)
		default:
			err = tbl.WriteRow(q.Cluster, q.Group)
		}
		if err != nil {
			return fmt.Errorf("phy: could not write row of %q: %w", fname, err)
		}
	}

	err = tbl.Close()
	if err != nil {
		return fmt.Errorf("phy: could not close table %q: %w", fname, err)
	}
	return nil
}
