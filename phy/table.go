// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package phy

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go-hep.org/x/hep/csvutil"
)

// table is a delimiter-separated table, with named columns.
type table struct {
	names []string
	rows  [][]string
}

func readHeader(fname string, comma rune) ([]string, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("empty header")
	}

	names := strings.Split(line, string(comma))
	for i, name := range names {
		names[i] = strings.Trim(strings.TrimSpace(name), `"`)
	}
	return names, nil
}

func readTable(fname string, comma rune) (*table, error) {
	names, err := readHeader(fname, comma)
	if err != nil {
		return nil, fmt.Errorf("phy: could not read table %q: %w", fname, err)
	}

	tbl, err := csvutil.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("phy: could not open table %q: %w", fname, err)
	}
	defer tbl.Close()
	tbl.Reader.Comma = comma

	rows, err := tbl.ReadRows(1, -1)
	if err != nil {
		return nil, fmt.Errorf("phy: could not read rows of %q: %w", fname, err)
	}
	defer rows.Close()

	var (
		vals = make([]string, len(names))
		ptrs = make([]interface{}, len(names))
		out  = &table{names: names}
	)
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		err = rows.Scan(ptrs...)
		if err != nil {
			return nil, fmt.Errorf("phy: could not scan row %d of %q: %w", len(out.rows)+1, fname, err)
		}
		row := make([]string, len(vals))
		copy(row, vals)
		out.rows = append(out.rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("phy: could not read rows of %q: %w", fname, err)
	}

	return out, nil
}

// col returns the index of the named column, or -1.
func (tbl *table) col(name string) int {
	for i, v := range tbl.names {
		if v == name {
			return i
		}
	}
	return -1
}

func (tbl *table) mustCol(name, fname string) (int, error) {
	i := tbl.col(name)
	if i < 0 {
		return i, fmt.Errorf("phy: table %q has no %q column", fname, name)
	}
	return i, nil
}

// parseInt parses integers that may have been written out as floats ("12.0").
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return v, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return int64(f), nil
}
