// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package syncchan decodes the digital synchronization channel of
// Neuropixels recordings.
//
// Each sample of the sync channel packs the state of up to 16 digital
// input lines, one per bit. Unpack expands samples into per-line binary
// traces and Edges reports, for every line, the times of its rising
// (onsets) and falling (offsets) transitions. Steps decodes the rotary
// encoders and reward line of a behaviour rig wired to the channel.
package syncchan // import "github.com/go-lpc/npix/syncchan"

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultBits is the number of digital lines packed in a sync sample.
const DefaultBits = 16

var (
	ErrBitWidth   = errors.New("syncchan: invalid bit width")
	ErrSampleRate = errors.New("syncchan: invalid sampling rate")
)

// Integer is the set of sample types that can be unpacked.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Trace is an unpacked sync channel: a (samples x bits) matrix of 0/1 values.
type Trace struct {
	n    int
	bits int
	data []uint8 // row-major, data[i*bits+b] is bit b of sample i
}

// Unpack expands each sample into its nbits least-significant bits,
// bit 0 first.
// Negative samples are sign-extended before their bits are extracted.
func Unpack[T Integer](samples []T, nbits int) (*Trace, error) {
	if nbits < 1 || nbits > 64 {
		return nil, fmt.Errorf("%w: %d (want 1..64)", ErrBitWidth, nbits)
	}

	tr := &Trace{
		n:    len(samples),
		bits: nbits,
		data: make([]uint8, len(samples)*nbits),
	}
	for i, v := range samples {
		var (
			u   = uint64(v)
			row = tr.data[i*nbits : (i+1)*nbits]
		)
		for b := range row {
			row[b] = uint8((u >> uint(b)) & 1)
		}
	}
	return tr, nil
}

// Len returns the number of samples in the trace.
func (tr *Trace) Len() int { return tr.n }

// Bits returns the number of lines in the trace.
func (tr *Trace) Bits() int { return tr.bits }

// At returns bit b of sample i.
func (tr *Trace) At(i, b int) uint8 {
	if b < 0 || b >= tr.bits {
		panic(fmt.Errorf("syncchan: bit index %d out of range [0, %d)", b, tr.bits))
	}
	return tr.data[i*tr.bits+b]
}

// Row returns the bits of sample i, bit 0 first.
// The returned slice shares its storage with the trace.
func (tr *Trace) Row(i int) []uint8 {
	return tr.data[i*tr.bits : (i+1)*tr.bits]
}

// Channel returns a copy of the binary trace of line b.
func (tr *Trace) Channel(b int) []uint8 {
	out := make([]uint8, tr.n)
	for i := range out {
		out[i] = tr.At(i, b)
	}
	return out
}

// Sample recombines the bits of sample i into an integer:
// the sum over all lines b of bit(i, b) * 2^b.
func (tr *Trace) Sample(i int) uint64 {
	var v uint64
	for b, bit := range tr.Row(i) {
		v |= uint64(bit) << uint(b)
	}
	return v
}

// Events holds, for each line with at least one transition, the sorted
// times of its rising (Onsets) and falling (Offsets) edges.
// Lines without a transition of a given kind have no entry in the
// corresponding map.
type Events struct {
	Onsets  map[int][]float64
	Offsets map[int][]float64
}

// Channels returns the sorted list of lines with at least one edge.
func (evts Events) Channels() []int {
	set := make(map[int]struct{}, len(evts.Onsets)+len(evts.Offsets))
	for ch := range evts.Onsets {
		set[ch] = struct{}{}
	}
	for ch := range evts.Offsets {
		set[ch] = struct{}{}
	}
	chs := make([]int, 0, len(set))
	for ch := range set {
		chs = append(chs, ch)
	}
	sort.Ints(chs)
	return chs
}

// Edges detects the transitions of every line of the trace.
// A transition between samples i and i+1 is reported at time i/srate.
// Use srate=1 to get sample indices.
func Edges(tr *Trace, srate float64) (Events, error) {
	return edges(tr, srate, 1)
}

func edges(tr *Trace, srate float64, mult int) (Events, error) {
	if !(srate > 0) {
		return Events{}, fmt.Errorf("%w: %v", ErrSampleRate, srate)
	}

	evts := Events{
		Onsets:  make(map[int][]float64),
		Offsets: make(map[int][]float64),
	}
	for i := 0; i+1 < tr.n; i++ {
		var (
			cur  = tr.Row(i)
			next = tr.Row(i + 1)
			t    = float64(i) / srate
		)
		for b := range cur {
			switch d := mult * (int(next[b]) - int(cur[b])); {
			case d > 0:
				evts.Onsets[b] = append(evts.Onsets[b], t)
			case d < 0:
				evts.Offsets[b] = append(evts.Offsets[b], t)
			}
		}
	}
	return evts, nil
}

// Decode unpacks the sync samples and detects the edges of every line.
//
// With WithBinary, edge detection is skipped: the returned Events are
// empty and only the unpacked trace is meaningful.
func Decode[T Integer](samples []T, srate float64, opts ...Option) (Events, *Trace, error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	tr, err := Unpack(samples, cfg.bits)
	if err != nil {
		return Events{}, nil, fmt.Errorf("syncchan: could not unpack sync samples: %w", err)
	}

	if cfg.binary {
		return Events{}, tr, nil
	}

	evts, err := edges(tr, srate, cfg.mult)
	if err != nil {
		return Events{}, tr, fmt.Errorf("syncchan: could not detect edges: %w", err)
	}

	return evts, tr, nil
}
