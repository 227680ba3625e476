// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spikeglx reads Neuropixels recordings saved by SpikeGLX:
// plain-text .meta files and the raw .bin files they describe.
//
// A raw binary file is an interleaved matrix of 16-bit signed
// little-endian integers: all the channels of sample 0, then all the
// channels of sample 1, etc.
// Binary files are memory-mapped: only the pages actually touched are
// loaded in memory.
package spikeglx // import "github.com/go-lpc/npix/spikeglx"

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Default layout of a Neuropixels 1.0 (3A/3B) AP stream.
const (
	DefaultNChans     = 385
	DefaultSyncChan   = 384
	DefaultSampleRate = 30000 // Hz
	DefaultAmpFactor  = 500
)

// Option configures a Recording.
type Option func(*Recording)

// WithLogger sets the logger used to report progress and warnings.
func WithLogger(msg *log.Logger) Option {
	return func(rec *Recording) {
		rec.msg = msg
	}
}

// WithAvailableMemory sets the function used to query the amount of
// memory, in bytes, available for loading chunks.
func WithAvailableMemory(f func() (uint64, error)) Option {
	return func(rec *Recording) {
		rec.avail = f
	}
}

func newLogger() *log.Logger {
	return log.New(os.Stdout, "spikeglx: ", 0)
}

// MetaPath returns the path of the .meta file associated with the
// binary file binpath.
func MetaPath(binpath string) string {
	return strings.TrimSuffix(binpath, filepath.Ext(binpath)) + ".meta"
}

// Load memory-maps the binary file binpath, read-only, with the number
// of channels declared in its .meta file.
// The .meta file must sit next to the binary file.
func Load(binpath string, opts ...Option) (*Recording, *Meta, error) {
	fname := MetaPath(binpath)
	if _, err := os.Stat(fname); err != nil {
		return nil, nil, fmt.Errorf("spikeglx: could not find meta file for %q: %w", binpath, err)
	}

	meta, err := OpenMeta(fname)
	if err != nil {
		return nil, nil, err
	}

	nchans, err := meta.NSavedChans()
	if err != nil {
		return nil, nil, fmt.Errorf("spikeglx: could not find number of saved channels: %w", err)
	}

	rec, err := Map(binpath, nchans, opts...)
	if err != nil {
		return nil, nil, err
	}

	return rec, meta, nil
}
