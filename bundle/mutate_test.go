// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddInPlaceMutatesReceiver(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 2})
	b := SignedOf(map[Good]float64{1: 3, 2: 4})
	require.NoError(t, a.AddInPlace(b))
	require.Equal(t, 5.0, a.Get(1))
	require.Equal(t, 4.0, a.Get(2))
}

func TestAddInPlaceForbidsNegativeOnNonNeg(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 5})
	b := SignedOf(map[Good]float64{1: -10})
	err := a.AddInPlace(b)
	require.Error(t, err)
	var negErr *NegativityError
	require.ErrorAs(t, err, &negErr)
	require.Equal(t, 5.0, a.Get(1)) // unchanged
}

func TestAddInPlaceAtomicOnFailureMultiGood(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 5, 2: 1})
	b := SignedOf(map[Good]float64{1: 1, 2: -10})
	err := a.AddInPlace(b)
	require.Error(t, err)
	require.Equal(t, 5.0, a.Get(1))
	require.Equal(t, 1.0, a.Get(2))
}

func TestSubInPlaceMutatesReceiver(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 5})
	b := SignedOf(map[Good]float64{1: 2})
	require.NoError(t, a.SubInPlace(b))
	require.Equal(t, 3.0, a.Get(1))
}

func TestSubInPlaceForbidsNegativeOnNonNeg(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 2})
	b := SignedOf(map[Good]float64{1: 5})
	err := a.SubInPlace(b)
	require.Error(t, err)
	require.Equal(t, 2.0, a.Get(1)) // unchanged
}

func TestScaleInPlaceForbidsNegativeOnNonNeg(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 2})
	require.Error(t, a.ScaleInPlace(-1))
	require.NoError(t, a.ScaleInPlace(3))
	require.Equal(t, 6.0, a.Get(1))
}

func TestDivInPlaceByZero(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 4})
	require.Error(t, a.DivInPlace(0))
	require.NoError(t, a.DivInPlace(2))
	require.Equal(t, 2.0, a.Get(1))
}
