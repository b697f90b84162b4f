// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package belief

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/erisproject/ersim/internal/rngsrc"
)

func TestNewNoninformativeDefaults(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)
	require.True(t, l.Noninformative())
	require.Equal(t, 2, l.K())
	require.Equal(t, 1.0, l.S2())
}

func TestNewNoninformativeRejectsBadK(t *testing.T) {
	_, err := NewNoninformative(0)
	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
}

func TestNewNoninformativeRejectsMismatchedNames(t *testing.T) {
	_, err := NewNoninformative(2, WithNames([]string{"only-one"}))
	require.Error(t, err)
}

func TestBetaFailsWhileNoninformative(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)
	_, err = l.Beta()
	require.Error(t, err)
	var ise *InvalidStateError
	require.ErrorAs(t, err, &ise)
}

func TestUpdateCrossesToInformativeOnFullRank(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)

	x := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	y := mat.NewVecDense(2, []float64{3, 5})
	require.NoError(t, l.Update(x, y))
	require.False(t, l.Noninformative())

	beta, err := l.Beta()
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{3, 5}, beta, 1e-6)
}

func TestUpdateStaysNoninformativeOnRankDeficientData(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)

	// A single row cannot make a 2x2 X^T X full rank.
	x := mat.NewDense(1, 2, []float64{1, 2})
	y := mat.NewVecDense(1, []float64{4})
	require.NoError(t, l.Update(x, y))
	require.True(t, l.Noninformative())
}

func TestNewInformativeFromParameters(t *testing.T) {
	vinv := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	l, err := NewInformative([]float64{2, -1}, 1.5, vinv, 10, WithNames([]string{"a", "b"}))
	require.NoError(t, err)
	require.False(t, l.Noninformative())
	require.Equal(t, []string{"a", "b"}, l.Names())

	beta, err := l.Beta()
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{2, -1}, beta, 1e-9)
}

func TestNewInformativeRejectsMismatchedBeta(t *testing.T) {
	vinv := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	_, err := NewInformative([]float64{1}, 1, vinv, 10)
	require.Error(t, err)
}

func TestNewInformativeRejectsNegativeS2OrN(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{1})
	_, err := NewInformative([]float64{0}, -1, vinv, 10)
	require.Error(t, err)
	_, err = NewInformative([]float64{0}, 1, vinv, -1)
	require.Error(t, err)
}

func TestWeakenRejectsSubUnityFactor(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{1})
	l, err := NewInformative([]float64{0}, 1, vinv, 10)
	require.NoError(t, err)
	require.Error(t, l.Weaken(0.5))
}

func TestWeakenIsNoOpAtOne(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{4})
	l, err := NewInformative([]float64{2}, 1, vinv, 10)
	require.NoError(t, err)
	before, err := l.Beta()
	require.NoError(t, err)
	require.NoError(t, l.Weaken(1))
	after, err := l.Beta()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestWeakenPreservesMeanWidensVariance(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{4})
	l, err := NewInformative([]float64{2}, 1, vinv, 10)
	require.NoError(t, err)
	before, err := l.Beta()
	require.NoError(t, err)
	rootBefore, err := l.Root()
	require.NoError(t, err)
	widthBefore := rootBefore.At(0, 0)

	require.NoError(t, l.Weaken(2))
	after, err := l.Beta()
	require.NoError(t, err)
	require.InDeltaSlice(t, before, after, 1e-9)

	rootAfter, err := l.Root()
	require.NoError(t, err)
	require.Greater(t, rootAfter.At(0, 0), widthBefore)
}

func TestRootIsSquareRootOfVariance(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{4}) // V = 0.25
	l, err := NewInformative([]float64{0}, 1, vinv, 10)
	require.NoError(t, err)
	root, err := l.Root()
	require.NoError(t, err)
	// s2*V = 1*0.25 = 0.25, root = 0.5.
	require.InDelta(t, 0.5, root.At(0, 0), 1e-9)
}

func TestRootFailsWhileNoninformative(t *testing.T) {
	l, err := NewNoninformative(1)
	require.NoError(t, err)
	_, err = l.Root()
	require.Error(t, err)
}

func TestWithPreloadSeedsBufferedRows(t *testing.T) {
	x := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	y := mat.NewVecDense(2, []float64{3, 5})
	l, err := NewNoninformative(2, WithPreload(x, y))
	require.NoError(t, err)
	require.False(t, l.Noninformative())
}

func TestWithRandInstallsCustomSource(t *testing.T) {
	src := rngsrc.NewSeeded(7)
	l, err := NewNoninformative(1, WithRand(src))
	require.NoError(t, err)
	require.NotNil(t, l)
}
