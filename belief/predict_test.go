// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package belief

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/erisproject/ersim/internal/rngsrc"
)

func fittedLinear(t *testing.T, seed uint64) *Linear {
	t.Helper()
	vinv := mat.NewSymDense(1, []float64{4})
	l, err := NewInformative([]float64{2}, 1, vinv, 30, WithRand(rngsrc.NewSeeded(seed)))
	require.NoError(t, err)
	return l
}

func TestDrawFailsWhileNoninformative(t *testing.T) {
	l, err := NewNoninformative(1)
	require.NoError(t, err)
	_, err = l.Draw()
	require.Error(t, err)
}

func TestDrawReturnsKPlusOneLengthVector(t *testing.T) {
	l := fittedLinear(t, 1)
	draw, err := l.Draw()
	require.NoError(t, err)
	require.Len(t, draw, l.K()+1)
	require.GreaterOrEqual(t, draw[l.K()], 0.0) // sampled variance is non-negative
}

func TestLastDrawReflectsMostRecentDraw(t *testing.T) {
	l := fittedLinear(t, 2)
	require.Nil(t, l.LastDraw())
	draw, err := l.Draw()
	require.NoError(t, err)
	require.Equal(t, draw, l.LastDraw())
}

func TestLastDrawIsACopy(t *testing.T) {
	l := fittedLinear(t, 3)
	draw, err := l.Draw()
	require.NoError(t, err)
	draw[0] = 999
	require.NotEqual(t, draw[0], l.LastDraw()[0])
}

func TestPredictRejectsWrongColumnCount(t *testing.T) {
	l := fittedLinear(t, 4)
	xstar := mat.NewDense(2, 2, nil) // l.K() == 1
	_, err := l.Predict(xstar, 10)
	require.Error(t, err)
}

func TestPredictRejectsZeroDraws(t *testing.T) {
	l := fittedLinear(t, 5)
	xstar := mat.NewDense(1, 1, []float64{1})
	_, err := l.Predict(xstar, 0)
	require.Error(t, err)
}

func TestPredictCloseToBetaBarAtUnitX(t *testing.T) {
	l := fittedLinear(t, 6)
	xstar := mat.NewDense(1, 1, []float64{1})
	mean, err := l.Predict(xstar, 5000)
	require.NoError(t, err)
	require.InDelta(t, 2.0, mean[0], 0.15)
}

func TestPredictVarianceNonNegative(t *testing.T) {
	l := fittedLinear(t, 7)
	xstar := mat.NewDense(1, 1, []float64{1})
	mean, variance, err := l.PredictVariance(xstar, 200)
	require.NoError(t, err)
	require.Len(t, mean, 1)
	require.GreaterOrEqual(t, variance[0], 0.0)
}

func TestPredictGenericAppliesEachFunction(t *testing.T) {
	l := fittedLinear(t, 8)
	xstar := mat.NewDense(1, 1, []float64{1})
	gs := []func([]float64) float64{
		func(y []float64) float64 { return y[0] },
		func(y []float64) float64 { return math.Abs(y[0]) },
	}
	out, err := l.PredictGeneric(xstar, 300, gs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.GreaterOrEqual(t, out[1], 0.0)
}

func TestRepeatedPredictReusesDrawCache(t *testing.T) {
	l := fittedLinear(t, 9)
	xstar := mat.NewDense(1, 1, []float64{1})
	first, err := l.Predict(xstar, 50)
	require.NoError(t, err)
	second, err := l.Predict(xstar, 50)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDiscardClearsPredictiveCache(t *testing.T) {
	l := fittedLinear(t, 10)
	xstar := mat.NewDense(1, 1, []float64{1})
	_, err := l.Predict(xstar, 20)
	require.NoError(t, err)
	l.Discard()
	require.Nil(t, l.predBeta)
	require.Nil(t, l.predS2)
	require.Nil(t, l.predErr)
}
