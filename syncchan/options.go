// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncchan

type config struct {
	bits   int
	binary bool
	mult   int
}

func newConfig() config {
	return config{
		bits: DefaultBits,
		mult: 1,
	}
}

// Option configures Decode.
type Option func(*config)

// WithBits sets the number of lines packed in each sample.
func WithBits(n int) Option {
	return func(cfg *config) {
		cfg.bits = n
	}
}

// WithBinary requests the unpacked trace only, without edge detection.
func WithBinary() Option {
	return func(cfg *config) {
		cfg.binary = true
	}
}

// WithInverted treats lines as active-low: falling edges are reported
// as onsets and rising edges as offsets.
func WithInverted() Option {
	return func(cfg *config) {
		cfg.mult = -1
	}
}
