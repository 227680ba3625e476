// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-lpc/npix/internal/mmap"
	"github.com/shirou/gopsutil/v3/mem"
)

const wordSize = 2 // bytes per sample per channel

var ErrRange = errors.New("spikeglx: out of range")

// Recording is a memory-mapped raw binary recording.
type Recording struct {
	msg   *log.Logger
	avail func() (uint64, error)

	name   string // path to the binary file, if any
	h      *mmap.Handle
	nchans int
	nsamps int
}

func newRecording(name string, h *mmap.Handle, nchans int, opts ...Option) *Recording {
	rec := &Recording{
		msg:    newLogger(),
		avail:  availableMemory,
		name:   name,
		h:      h,
		nchans: nchans,
		nsamps: h.Len() / (nchans * wordSize),
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

func availableMemory() (uint64, error) {
	vmem, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vmem.Available, nil
}

// Map memory-maps the named binary file, read-only, as a recording of
// nchans interleaved channels.
// The number of samples is inferred from the file size; a trailing
// incomplete sample is ignored.
func Map(fname string, nchans int, opts ...Option) (*Recording, error) {
	if nchans <= 0 {
		return nil, fmt.Errorf("spikeglx: invalid number of channels %d", nchans)
	}

	h, err := mmap.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not map binary file: %w", err)
	}

	return newRecording(fname, h, nchans, opts...), nil
}

// MapRW memory-maps an existing binary file, for reading and writing.
func MapRW(fname string, nchans int, opts ...Option) (*Recording, error) {
	if nchans <= 0 {
		return nil, fmt.Errorf("spikeglx: invalid number of channels %d", nchans)
	}

	f, err := os.OpenFile(fname, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not open binary file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not stat binary file: %w", err)
	}

	h, err := mmap.OpenFile(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not map binary file: %w", err)
	}

	return newRecording(fname, h, nchans, opts...), nil
}

// Create creates (or truncates) the named binary file, sized for nsamples
// samples of nchans channels, and memory-maps it for reading and writing.
// Missing parent directories are created.
func Create(fname string, nchans, nsamples int, opts ...Option) (*Recording, error) {
	if nchans <= 0 {
		return nil, fmt.Errorf("spikeglx: invalid number of channels %d", nchans)
	}
	if nsamples < 0 {
		return nil, fmt.Errorf("spikeglx: invalid number of samples %d", nsamples)
	}

	err := os.MkdirAll(filepath.Dir(fname), 0755)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not create output directory: %w", err)
	}

	f, err := os.Create(fname)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not create binary file: %w", err)
	}
	defer f.Close()

	size := int64(nchans) * int64(nsamples) * wordSize
	err = f.Truncate(size)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not resize binary file: %w", err)
	}

	h, err := mmap.OpenFile(f, size)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not map binary file: %w", err)
	}

	return newRecording(fname, h, nchans, opts...), nil
}

// Name returns the path of the underlying binary file.
func (rec *Recording) Name() string { return rec.name }

// NChans returns the number of interleaved channels.
func (rec *Recording) NChans() int { return rec.nchans }

// NSamples returns the number of samples per channel.
func (rec *Recording) NSamples() int { return rec.nsamps }

// Duration returns the length of the recording in seconds, for the
// provided sampling rate.
func (rec *Recording) Duration(srate float64) float64 {
	return float64(rec.nsamps) / srate
}

func (rec *Recording) offset(ch, i int) int {
	return (i*rec.nchans + ch) * wordSize
}

func (rec *Recording) check(ch, i int) {
	if ch < 0 || ch >= rec.nchans {
		panic(fmt.Errorf("spikeglx: channel %d out of range [0, %d)", ch, rec.nchans))
	}
	if i < 0 || i >= rec.nsamps {
		panic(fmt.Errorf("spikeglx: sample %d out of range [0, %d)", i, rec.nsamps))
	}
}

// At returns the value of channel ch at sample i.
func (rec *Recording) At(ch, i int) int16 {
	rec.check(ch, i)
	off := rec.offset(ch, i)
	return int16(uint16(rec.h.At(off)) | uint16(rec.h.At(off+1))<<8)
}

// Set sets the value of channel ch at sample i.
// Set fails on read-only recordings.
func (rec *Recording) Set(ch, i int, v int16) error {
	rec.check(ch, i)
	var buf [wordSize]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	_, err := rec.h.WriteAt(buf[:], int64(rec.offset(ch, i)))
	if err != nil {
		return fmt.Errorf("spikeglx: could not write sample (ch=%d, i=%d): %w", ch, i, err)
	}
	return nil
}

// Channel returns the samples [beg, end) of channel ch.
func (rec *Recording) Channel(ch, beg, end int) ([]int16, error) {
	switch {
	case ch < 0 || ch >= rec.nchans:
		return nil, fmt.Errorf("%w: channel %d not in [0, %d)", ErrRange, ch, rec.nchans)
	case beg < 0 || end > rec.nsamps || beg > end:
		return nil, fmt.Errorf("%w: samples [%d, %d) not in [0, %d)", ErrRange, beg, end, rec.nsamps)
	}

	out := make([]int16, end-beg)
	for i := range out {
		out[i] = rec.At(ch, beg+i)
	}
	return out, nil
}

// Flush writes back modified samples to the underlying file.
func (rec *Recording) Flush() error {
	err := rec.h.Sync()
	if err != nil {
		return fmt.Errorf("spikeglx: could not sync binary file: %w", err)
	}
	return nil
}

// Close unmaps the recording.
func (rec *Recording) Close() error {
	return rec.h.Close()
}
