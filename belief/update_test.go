// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package belief

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestUpdateRejectsWrongColumnCount(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)
	x := mat.NewDense(1, 3, []float64{1, 2, 3})
	y := mat.NewVecDense(1, []float64{1})
	require.Error(t, l.Update(x, y))
}

func TestUpdateRejectsMismatchedRowCounts(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)
	x := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	y := mat.NewVecDense(1, []float64{1})
	require.Error(t, l.Update(x, y))
}

func TestUpdateWithZeroRowsIsNoOp(t *testing.T) {
	l, err := NewNoninformative(2)
	require.NoError(t, err)
	// gonum cannot build a 0x2 matrix; its zero values are the empty
	// matrix and vector.
	x := &mat.Dense{}
	y := &mat.VecDense{}
	require.NoError(t, l.Update(x, y))
	require.True(t, l.Noninformative())
}

func TestInformativeUpdateAccumulatesAcrossCalls(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{1e-8})
	l, err := NewInformative([]float64{0}, 1, vinv, 1e-3)
	require.NoError(t, err)

	x1 := mat.NewDense(1, 1, []float64{1})
	y1 := mat.NewVecDense(1, []float64{5})
	require.NoError(t, l.Update(x1, y1))

	x2 := mat.NewDense(1, 1, []float64{1})
	y2 := mat.NewVecDense(1, []float64{5})
	require.NoError(t, l.Update(x2, y2))

	beta, err := l.Beta()
	require.NoError(t, err)
	// Two identical observations of y=5 at x=1 pull beta toward 5.
	require.InDelta(t, 5.0, beta[0], 0.1)
	require.InDelta(t, 2+1e-3, l.N(), 1e-6)
}

func TestUpdateWeakenedWeakensThenFolds(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{4})
	l, err := NewInformative([]float64{2}, 1, vinv, 10)
	require.NoError(t, err)

	x := mat.NewDense(1, 1, []float64{1})
	y := mat.NewVecDense(1, []float64{2})
	require.NoError(t, l.UpdateWeakened(x, y, 2))

	beta, err := l.Beta()
	require.NoError(t, err)
	require.InDelta(t, 2.0, beta[0], 1e-6)
}

func TestUpdateWeakenedRejectsSubUnityFactor(t *testing.T) {
	vinv := mat.NewSymDense(1, []float64{4})
	l, err := NewInformative([]float64{2}, 1, vinv, 10)
	require.NoError(t, err)
	x := mat.NewDense(1, 1, []float64{1})
	y := mat.NewVecDense(1, []float64{2})
	require.Error(t, l.UpdateWeakened(x, y, 0.5))
}
