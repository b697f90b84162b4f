// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignedBasics(t *testing.T) {
	b := SignedOf(map[Good]float64{1: 5, 2: -3})
	require.Equal(t, 5.0, b.Get(1))
	require.Equal(t, -3.0, b.Get(2))
	require.Equal(t, 0.0, b.Get(999))
	require.Equal(t, 2, b.Size())
	require.False(t, b.Empty())
	require.Equal(t, []Good{1, 2}, b.Goods())
}

func TestNonNegRejectsNegative(t *testing.T) {
	_, err := NonNegOf(map[Good]float64{1: -1})
	require.Error(t, err)
	var negErr *NegativityError
	require.ErrorAs(t, err, &negErr)
}

func TestSetOnNonNeg(t *testing.T) {
	b := NewNonNeg()
	require.NoError(t, b.Set(1, 5))
	require.Error(t, b.Set(1, -1))
	require.Equal(t, 5.0, b.Get(1)) // failed Set does not mutate
}

func TestEraseAndRemove(t *testing.T) {
	b := SignedOf(map[Good]float64{1: 5})
	require.Equal(t, 1, b.Erase(1))
	require.Equal(t, 0, b.Erase(1))

	b2 := SignedOf(map[Good]float64{1: 7})
	require.Equal(t, 7.0, b2.Remove(1))
	require.Equal(t, 0.0, b2.Get(1))
}

func TestClearZerosPositiveNegativeZeros(t *testing.T) {
	b := SignedOf(map[Good]float64{1: 5, 2: -3, 3: 0})
	require.Equal(t, []Good{3}, b.Zeros().Goods())
	require.Equal(t, []Good{1}, b.Positive().Goods())
	require.Equal(t, []Good{2}, b.Negative().Goods())
	b.ClearZeros()
	require.Equal(t, []Good{1, 2}, b.Goods())
}

func TestAsNonNegRoundTrip(t *testing.T) {
	b, err := NonNegOf(map[Good]float64{1: 5})
	require.NoError(t, err)
	var asBundle Bundle = b
	nn, ok := AsNonNeg(asBundle)
	require.True(t, ok)
	require.Equal(t, 5.0, nn.Get(1))

	_, ok = AsNonNeg(NewSigned())
	require.False(t, ok)
}
