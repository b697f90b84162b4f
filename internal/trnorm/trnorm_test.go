// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package trnorm

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleWithinBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	cases := []struct{ lo, hi float64 }{
		{math.Inf(-1), math.Inf(1)},
		{0, math.Inf(1)},
		{math.Inf(-1), 0},
		{-0.1, 0.1},
		{3, math.Inf(1)},
		{math.Inf(-1), -3},
		{-2, -0.05},
		{0.05, 2},
		{-5, 5},
		{1.9, 2.1},
	}
	for _, c := range cases {
		for i := 0; i < 200; i++ {
			x := Sample(rnd, c.lo, c.hi)
			require.GreaterOrEqual(t, x, c.lo)
			require.LessOrEqual(t, x, c.hi)
		}
	}
}

func TestSampleDegenerate(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	require.Equal(t, 1.5, Sample(rnd, 1.5, 1.5))
}

func TestSamplePanicsOnInvertedBounds(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	require.Panics(t, func() { Sample(rnd, 1, -1) })
}

func TestSampleMeanApproximatelyCorrect(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	const n = 20000
	var sum float64
	for i := 0; i < n; i++ {
		sum += Sample(rnd, -1, 1)
	}
	mean := sum / n
	// Truncated-normal symmetric about 0 has mean 0; allow generous slack
	// since this is a statistical, not exact, check.
	require.InDelta(t, 0, mean, 0.05)
}
