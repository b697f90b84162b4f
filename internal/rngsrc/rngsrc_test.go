// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package rngsrc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSeededDeterministic(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := NewSeeded(1)
	b := NewSeeded(2)
	same := true
	for i := 0; i < 16; i++ {
		if a.Uint64() != b.Uint64() {
			same = false
			break
		}
	}
	require.False(t, same)
}

func TestRandMethodsProduceInRangeValues(t *testing.T) {
	s := NewSeeded(99)
	// NormFloat64/ExpFloat64/Float64 come from the embedded *rand.Rand,
	// which is backed by the same mt64 adapter as Uint64(); just confirm
	// they don't panic and produce values in their ranges.
	for i := 0; i < 50; i++ {
		require.False(t, isNaN(s.NormFloat64()))
		require.GreaterOrEqual(t, s.ExpFloat64(), 0.0)
		f := s.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func isNaN(f float64) bool { return f != f }
