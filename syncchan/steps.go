// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package syncchan

import (
	"fmt"
)

// Lines of the behaviour rig wired to the sync channel.
// Each rotary encoder drives a pair of lines in quadrature (A, B).
const (
	wheelA, wheelB = 0, 1
	leftA, leftB   = 3, 2
	rightA, rightB = 4, 5
	rewardLine     = 6 // active low
)

// quadrature maps a pair of consecutive encoder states to a step.
// States are packed as a<<1|b and indexed as prev<<2|cur.
// A leading B, ie 00 -> 10 -> 11 -> 01 -> 00, counts forward.
// Transitions where both lines flip are not decodable and count as 0.
var quadrature = [16]int{
	0, -1, +1, 0,
	+1, 0, 0, -1,
	-1, 0, 0, +1,
	0, +1, -1, 0,
}

// Quadrature decodes the rotary encoder wired to lines a and b of the
// trace. It returns one step per sample (-1, 0 or +1), the first being 0.
func Quadrature(tr *Trace, a, b int) []int {
	steps := make([]int, tr.Len())
	if tr.Len() == 0 {
		return steps
	}
	prev := int(tr.At(0, a))<<1 | int(tr.At(0, b))
	for i := 1; i < tr.Len(); i++ {
		cur := int(tr.At(i, a))<<1 | int(tr.At(i, b))
		steps[i] = quadrature[prev<<2|cur]
		prev = cur
	}
	return steps
}

// Step is a sample where the behaviour rig was active.
type Step struct {
	Sample int     // sample index
	Time   float64 // time of the sample, in seconds
	Wheel  int     // wheel encoder step
	Left   int     // left encoder step
	Right  int     // right encoder step
	Reward int     // 1 while the reward line is low
	Delta  float64 // time since the previous step, in micro-seconds
}

func (st Step) idle() bool {
	return st.Wheel == 0 && st.Left == 0 && st.Right == 0 && st.Reward == 0
}

// Steps decodes the behaviour rig lines of an unpacked sync trace:
// the wheel encoder on lines (0, 1), the left one on (3, 2), the right
// one on (4, 5) and the reward on line 6.
// Samples without any activity are dropped.
func Steps(tr *Trace, srate float64) ([]Step, error) {
	if !(srate > 0) {
		return nil, fmt.Errorf("%w: %v", ErrSampleRate, srate)
	}
	if tr.Bits() <= rewardLine {
		return nil, fmt.Errorf(
			"%w: %d lines (want at least %d)",
			ErrBitWidth, tr.Bits(), rewardLine+1,
		)
	}

	var (
		wheel = Quadrature(tr, wheelA, wheelB)
		left  = Quadrature(tr, leftA, leftB)
		right = Quadrature(tr, rightA, rightB)
		steps []Step
	)
	for i := 0; i < tr.Len(); i++ {
		st := Step{
			Sample: i,
			Time:   float64(i) / srate,
			Wheel:  wheel[i],
			Left:   left[i],
			Right:  right[i],
			Reward: 1 - int(tr.At(i, rewardLine)),
		}
		if st.idle() {
			continue
		}
		if n := len(steps); n > 0 {
			st.Delta = float64(i-steps[n-1].Sample) * 1e6 / srate
		}
		steps = append(steps, st)
	}
	return steps, nil
}
