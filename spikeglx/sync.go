// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"errors"
	"fmt"
)

// SyncSamples returns all the samples of the sync channel ch.
//
// When cache is true and the recording is backed by a file, samples are
// read from, or saved to, the file returned by SyncCachePath.
func (rec *Recording) SyncSamples(ch int, cache bool) ([]int16, error) {
	if ch < 0 || ch >= rec.nchans {
		return nil, fmt.Errorf("%w: sync channel %d not in [0, %d)", ErrRange, ch, rec.nchans)
	}

	fname := ""
	if cache && rec.name != "" {
		fname = SyncCachePath(rec.name)
		vs, err := loadSamples(fname)
		switch {
		case err == nil:
			return vs, nil
		case !errors.Is(err, errNoCache):
			return nil, fmt.Errorf("spikeglx: could not load cached sync channel: %w", err)
		}
	}

	vs, err := rec.Channel(ch, 0, rec.nsamps)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not extract sync channel: %w", err)
	}

	if fname != "" {
		err = saveSamples(fname, vs)
		if err != nil {
			return nil, fmt.Errorf("spikeglx: could not save sync channel: %w", err)
		}
	}

	return vs, nil
}
