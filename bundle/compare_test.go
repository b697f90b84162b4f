// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGreaterThanNotTotal(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 5, 2: 1})
	b := SignedOf(map[Good]float64{1: 3, 2: 2})
	require.False(t, GreaterThan(a, b))
	require.False(t, GreaterThan(b, a))
}

func TestEqualAndNotEqual(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 5})
	b := SignedOf(map[Good]float64{1: 5})
	require.True(t, Equal(a, b))
	require.False(t, NotEqual(a, b))

	c := SignedOf(map[Good]float64{1: 6})
	require.False(t, Equal(a, c))
	require.True(t, NotEqual(a, c))
}

func TestScalarComparisonsVacuousOnEmpty(t *testing.T) {
	empty := NewSigned()
	require.True(t, GreaterThanScalar(empty, 0))
	require.True(t, LessThanScalar(empty, 0))
	require.True(t, EqualScalar(empty, 0))
}

func TestEqualScalarDistinctFromEmpty(t *testing.T) {
	withZero := SignedOf(map[Good]float64{1: 0})
	require.True(t, EqualScalar(withZero, 0))
	require.False(t, withZero.Empty())
}

func TestCoversAndCoverage(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 2})
	b := SignedOf(map[Good]float64{1: 4})
	require.True(t, a.Covers(b))
	require.Equal(t, 0.5, a.Coverage(b)) // 0.5*{1:4} >= {1:2}

	c := SignedOf(map[Good]float64{1: 4, 2: 1})
	require.False(t, a.Covers(c))
	// c is positive wherever a is, so coverage stays finite: 0.5*c >= a.
	require.Equal(t, 0.5, a.Coverage(c))
}

func TestCoverageNaNWhenBothZero(t *testing.T) {
	a := NewNonNeg()
	b := NewSigned()
	require.True(t, math.IsNaN(a.Coverage(b)))
}

func TestMultiples(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 6, 2: 3})
	b := SignedOf(map[Good]float64{1: 2, 2: 1})
	require.Equal(t, 3.0, a.Multiples(b))

	missing := SignedOf(map[Good]float64{1: 2, 3: 1})
	require.Equal(t, 0.0, a.Multiples(missing))
}

func TestCommonTreatsNegativeAsAbsent(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 5, 2: -1})
	b := SignedOf(map[Good]float64{1: 3, 2: 4})
	c := Common(a, b)
	require.Equal(t, 3.0, c.Get(1))
	require.Equal(t, 0.0, c.Get(2)) // 2 absent since a[2] < 0
}

func TestCommonOnlyGoodsPresentInBoth(t *testing.T) {
	a := SignedOf(map[Good]float64{1: 5, 3: 7})
	b := SignedOf(map[Good]float64{1: 2, 2: 9})
	c := Common(a, b)
	require.Equal(t, 2.0, c.Get(1))
	require.Equal(t, 1, c.Size()) // good 2 (b-only) and good 3 (a-only) excluded
}

func TestReduceRefusesSameBundle(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 5})
	_, err := Reduce(a, a)
	require.Error(t, err)
}

func TestReduceSubtractsCommonFromBoth(t *testing.T) {
	a, _ := NonNegOf(map[Good]float64{1: 5, 2: 2})
	b, _ := NonNegOf(map[Good]float64{1: 3, 2: 6})
	common, err := Reduce(a, b)
	require.NoError(t, err)
	require.Equal(t, 3.0, common.Get(1))
	require.Equal(t, 2.0, common.Get(2))
	require.Equal(t, 2.0, a.Get(1))
	require.Equal(t, 0.0, a.Get(2))
	require.Equal(t, 0.0, b.Get(1))
	require.Equal(t, 4.0, b.Get(2))
}
