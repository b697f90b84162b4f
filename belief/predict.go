// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package belief

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func (l *Linear) checkPredictable(op string) error {
	if l.noninformative {
		return &InvalidStateError{Op: op, Why: "belief is noninformative"}
	}
	if l.k < 1 {
		return &InvalidStateError{Op: op, Why: "K must be >= 1"}
	}
	return nil
}

// Draw returns a length-(K+1) vector: the sampled coefficients followed by
// the sampled error variance (spec §4.H "Posterior predictive draw").
func (l *Linear) Draw() ([]float64, error) {
	if err := l.checkPredictable("draw"); err != nil {
		return nil, err
	}
	if err := l.ensureBeta(); err != nil {
		return nil, err
	}
	if err := l.ensureRoot(); err != nil {
		return nil, err
	}

	chi2 := distuv.ChiSquared{K: l.n, Src: l.rnd}
	u := chi2.Rand()
	sigma2 := l.n * l.s2 / u
	sigma := math.Sqrt(sigma2)

	z := mat.NewVecDense(l.k, nil)
	for i := 0; i < l.k; i++ {
		z.SetVec(i, l.rnd.NormFloat64())
	}
	var lz mat.VecDense
	lz.MulVec(l.root, z)

	draw := make([]float64, l.k+1)
	for i := 0; i < l.k; i++ {
		draw[i] = l.beta.AtVec(i) + sigma*lz.AtVec(i)
	}
	draw[l.k] = sigma2

	l.lastDraw = draw
	out := make([]float64, len(draw))
	copy(out, draw)
	return out, nil
}

// LastDraw returns the most recent Draw() result, or nil if none yet.
func (l *Linear) LastDraw() []float64 {
	if l.lastDraw == nil {
		return nil
	}
	out := make([]float64, len(l.lastDraw))
	copy(out, l.lastDraw)
	return out
}

// ensurePredictiveCache grows the cached (beta, s2) draw matrix to at
// least d columns, drawing fresh posterior draws as needed (spec §4.H
// "predict").
func (l *Linear) ensurePredictiveCache(d int) error {
	have := 0
	if l.predValid {
		_, have = l.predBeta.Dims()
		if have >= d {
			return nil
		}
	} else {
		l.predBeta = nil
		l.predS2 = nil
	}

	need := d - have
	if need <= 0 {
		l.predValid = true
		return nil
	}

	newBeta := mat.NewDense(l.k, d, nil)
	for j := 0; j < have; j++ {
		for i := 0; i < l.k; i++ {
			newBeta.Set(i, j, l.predBeta.At(i, j))
		}
	}
	newS2 := append([]float64(nil), l.predS2...)

	for j := have; j < d; j++ {
		draw, err := l.Draw()
		if err != nil {
			return err
		}
		for i := 0; i < l.k; i++ {
			newBeta.Set(i, j, draw[i])
		}
		newS2 = append(newS2, draw[l.k])
	}

	l.predBeta = newBeta
	l.predS2 = newS2
	l.predValid = true
	return nil
}

// ensureErrCache grows the cached per-draw standard-normal error matrix to
// at least rows x cols, preserving already-drawn cells so repeated Predict
// calls with the same draws are numerically identical (spec §4.H).
func (l *Linear) ensureErrCache(rows, cols int) {
	oldRows, oldCols := 0, 0
	if l.predErr != nil {
		oldRows, oldCols = l.predErr.Dims()
	}
	if rows <= oldRows && cols <= oldCols {
		return
	}
	newRows, newCols := rows, cols
	if oldRows > newRows {
		newRows = oldRows
	}
	if oldCols > newCols {
		newCols = oldCols
	}
	next := mat.NewDense(newRows, newCols, nil)
	for i := 0; i < newRows; i++ {
		for j := 0; j < newCols; j++ {
			if i < oldRows && j < oldCols {
				next.Set(i, j, l.predErr.At(i, j))
			} else {
				next.Set(i, j, l.rnd.NormFloat64())
			}
		}
	}
	l.predErr = next
}

func (l *Linear) predictiveYStar(xstar *mat.Dense, col int) []float64 {
	rows, _ := xstar.Dims()
	betaCol := mat.Col(nil, col, l.predBeta)
	betaVec := mat.NewVecDense(l.k, betaCol)
	var xbeta mat.VecDense
	xbeta.MulVec(xstar, betaVec)
	sigma := math.Sqrt(l.predS2[col])

	out := make([]float64, rows)
	for row := 0; row < rows; row++ {
		out[row] = xbeta.AtVec(row) + sigma*l.predErr.At(row, col)
	}
	return out
}

// Predict returns the column mean, across d posterior predictive draws, of
// X* beta_col + sigma_col * e_col (spec §4.H "Predictive y*").
func (l *Linear) Predict(xstar *mat.Dense, d int) ([]float64, error) {
	if d < 1 {
		return nil, &DomainError{Msg: "d must be >= 1"}
	}
	if err := l.checkPredictable("predict"); err != nil {
		return nil, err
	}
	if _, cols := xstar.Dims(); cols != l.k {
		return nil, &DomainError{Msg: "X* must have K columns"}
	}
	if err := l.ensurePredictiveCache(d); err != nil {
		return nil, err
	}
	rows, _ := xstar.Dims()
	l.ensureErrCache(rows, d)

	sums := make([]float64, rows)
	for col := 0; col < d; col++ {
		yStar := l.predictiveYStar(xstar, col)
		for row, v := range yStar {
			sums[row] += v
		}
	}
	out := make([]float64, rows)
	for row := range out {
		out[row] = sums[row] / float64(d)
	}
	return out, nil
}

// PredictVariance is Predict plus the per-row sample variance across the d
// draws (spec §4.H).
func (l *Linear) PredictVariance(xstar *mat.Dense, d int) (mean, variance []float64, err error) {
	if d < 1 {
		return nil, nil, &DomainError{Msg: "d must be >= 1"}
	}
	if err := l.checkPredictable("predictVariance"); err != nil {
		return nil, nil, err
	}
	if _, cols := xstar.Dims(); cols != l.k {
		return nil, nil, &DomainError{Msg: "X* must have K columns"}
	}
	if err := l.ensurePredictiveCache(d); err != nil {
		return nil, nil, err
	}
	rows, _ := xstar.Dims()
	l.ensureErrCache(rows, d)

	draws := make([][]float64, d)
	sums := make([]float64, rows)
	for col := 0; col < d; col++ {
		draws[col] = l.predictiveYStar(xstar, col)
		for row, v := range draws[col] {
			sums[row] += v
		}
	}
	mean = make([]float64, rows)
	for row := range mean {
		mean[row] = sums[row] / float64(d)
	}
	variance = make([]float64, rows)
	if d > 1 {
		for col := 0; col < d; col++ {
			for row, v := range draws[col] {
				diff := v - mean[row]
				variance[row] += diff * diff
			}
		}
		for row := range variance {
			variance[row] /= float64(d - 1)
		}
	}
	return mean, variance, nil
}

// PredictGeneric returns, for each g in gs, the mean across d posterior
// predictive draws of g(y*) (spec §4.H "predictGeneric").
func (l *Linear) PredictGeneric(xstar *mat.Dense, d int, gs []func([]float64) float64) ([]float64, error) {
	if d < 1 {
		return nil, &DomainError{Msg: "d must be >= 1"}
	}
	if err := l.checkPredictable("predictGeneric"); err != nil {
		return nil, err
	}
	if _, cols := xstar.Dims(); cols != l.k {
		return nil, &DomainError{Msg: "X* must have K columns"}
	}
	if err := l.ensurePredictiveCache(d); err != nil {
		return nil, err
	}
	rows, _ := xstar.Dims()
	l.ensureErrCache(rows, d)

	out := make([]float64, len(gs))
	for col := 0; col < d; col++ {
		yStar := l.predictiveYStar(xstar, col)
		for gi, g := range gs {
			out[gi] += g(yStar)
		}
	}
	for gi := range out {
		out[gi] /= float64(d)
	}
	return out, nil
}

// Discard clears the cached predictive-draw matrix and error vectors
// (spec §4.H "discard()").
func (l *Linear) Discard() {
	l.predValid = false
	l.predBeta = nil
	l.predS2 = nil
	l.predErr = nil
}
