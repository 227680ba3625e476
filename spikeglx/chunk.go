// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"code.cloudfoundry.org/bytefmt"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrMemory = errors.New("spikeglx: not enough memory")

// maxMemFraction is the largest fraction of the available memory a
// single chunk may use.
const maxMemFraction = 0.9

// ChunkRequest describes a time window and a set of channels to extract
// from a recording.
type ChunkRequest struct {
	T1, T2     float64 // time window boundaries, in seconds
	Channels   []int   // 0-based channel indices
	SampleRate float64 // Hz
	AmpFactor  float64 // gain of the recording
	SyncChan   int     // 0-based sync channel index, or -1
	Cache      bool    // load/save the chunk from/to a .npy file next to the recording
}

// DefaultChunkRequest returns a request for the time window [t1, t2)
// over all the neural channels of a Neuropixels 1.0 AP stream.
func DefaultChunkRequest(t1, t2 float64) ChunkRequest {
	chans := make([]int, DefaultSyncChan)
	for i := range chans {
		chans[i] = i
	}
	return ChunkRequest{
		T1:         t1,
		T2:         t2,
		Channels:   chans,
		SampleRate: DefaultSampleRate,
		AmpFactor:  DefaultAmpFactor,
		SyncChan:   DefaultSyncChan,
	}
}

// ToMicroVolts converts a raw sample into micro-volts, for a given gain.
func ToMicroVolts(v int16, ampFactor float64) float64 {
	return float64(v) * 1.2e6 / 1024 / ampFactor
}

func (req ChunkRequest) bounds() (beg, end int) {
	beg = int(math.Round(req.T1 * req.SampleRate))
	end = int(math.Round(req.T2 * req.SampleRate))
	return beg, end
}

func (rec *Recording) validate(req ChunkRequest) error {
	switch {
	case !(req.SampleRate > 0):
		return fmt.Errorf("%w: invalid sampling rate %v", ErrRange, req.SampleRate)
	case !(req.AmpFactor > 0):
		return fmt.Errorf("%w: invalid amplification factor %v", ErrRange, req.AmpFactor)
	case !finite(req.T1) || !finite(req.T2) || req.T1 < 0 || !(req.T1 < req.T2):
		return fmt.Errorf("%w: invalid time window [%v, %v]", ErrRange, req.T1, req.T2)
	case len(req.Channels) == 0:
		return fmt.Errorf("%w: empty channel list", ErrRange)
	}

	for _, ch := range req.Channels {
		if ch < 0 || ch >= rec.nchans {
			return fmt.Errorf("%w: channel %d not in [0, %d)", ErrRange, ch, rec.nchans)
		}
	}

	// compare as floats: a huge T2 would overflow the sample index.
	if math.Round(req.T2*req.SampleRate) > float64(rec.nsamps) {
		return fmt.Errorf(
			"%w: time window [%v, %v] exceeds recording length (%v s)",
			ErrRange, req.T1, req.T2, rec.Duration(req.SampleRate),
		)
	}
	beg, end := req.bounds()
	if beg == end {
		return fmt.Errorf("%w: time window [%v, %v] holds no sample", ErrRange, req.T1, req.T2)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Chunk extracts the time window and channels described by req.
//
// The returned matrix has one row per requested channel and one column
// per sample. Values are converted to micro-volts and each row is
// centred on its mean.
// Chunk fails with ErrMemory when the raw window would not fit in 90%
// of the available memory.
func (rec *Recording) Chunk(req ChunkRequest) (*mat.Dense, error) {
	err := rec.validate(req)
	if err != nil {
		return nil, err
	}

	cache := ""
	if req.Cache && rec.name != "" {
		cache = ChunkCachePath(rec.name, req.T1, req.T2, req.Channels)
		m, err := loadMatrix(cache)
		switch {
		case err == nil:
			return m, nil
		case !errors.Is(err, errNoCache):
			return nil, fmt.Errorf("spikeglx: could not load cached chunk: %w", err)
		}
	}

	size := uint64(math.Ceil(req.SampleRate * float64(rec.nchans) * wordSize * (req.T2 - req.T1)))
	avail, err := rec.avail()
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not query available memory: %w", err)
	}
	rec.msg.Printf(
		"chunk size: %s, available memory: %s",
		bytefmt.ByteSize(size), bytefmt.ByteSize(avail),
	)
	if float64(size) > maxMemFraction*float64(avail) {
		return nil, fmt.Errorf(
			"%w: chunk needs %s but only %s are available, pick fewer channels or a smaller time window",
			ErrMemory, bytefmt.ByteSize(size), bytefmt.ByteSize(avail),
		)
	}

	for _, ch := range req.Channels {
		if ch == req.SyncChan {
			rec.msg.Printf("warning: sync channel %d extracted as a recording channel, it will be meaningless", ch)
			break
		}
	}

	var (
		beg, end = req.bounds()
		nsamps   = end - beg
		raw      = make([]byte, nsamps*rec.nchans*wordSize)
	)
	_, err = rec.h.ReadAt(raw, int64(rec.offset(0, beg)))
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not read samples [%d, %d): %w", beg, end, err)
	}

	m := mat.NewDense(len(req.Channels), nsamps, nil)
	row := make([]float64, nsamps)
	var offsets float64
	for j, ch := range req.Channels {
		for i := range row {
			off := (i*rec.nchans + ch) * wordSize
			v := int16(binary.LittleEndian.Uint16(raw[off : off+wordSize]))
			row[i] = ToMicroVolts(v, req.AmpFactor)
		}
		mean := stat.Mean(row, nil)
		offsets += mean
		for i := range row {
			row[i] -= mean
		}
		m.SetRow(j, row)
	}
	rec.msg.Printf("channels are offset by %.3fuV on average", offsets/float64(len(req.Channels)))

	if cache != "" {
		err = saveMatrix(cache, m)
		if err != nil {
			return nil, fmt.Errorf("spikeglx: could not save chunk: %w", err)
		}
	}

	return m, nil
}
