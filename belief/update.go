// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package belief

import (
	"gonum.org/v1/gonum/mat"
)

// Update folds (X, y) into the belief (spec §4.H "Update"). X has one row
// per observation and K columns; y has matching length. An empty X (gonum's
// zero-value Dense) with an empty y is a no-op.
func (l *Linear) Update(x *mat.Dense, y *mat.VecDense) error {
	rows, cols := x.Dims()
	if rows == 0 && y.Len() == 0 {
		return nil
	}
	if cols != l.k {
		return &DomainError{Msg: "X must have K columns"}
	}
	if y.Len() != rows {
		return &DomainError{Msg: "X and y row counts must match"}
	}

	if l.noninformative {
		return l.updateNoninformative(x, y)
	}
	return l.updateInformative(x, y)
}

// UpdateWeakened weakens by w then folds in (X, y); a convenience matching
// spec §4.H's "Posterior from prior + data + weakening factor" path and
// the ambient need to re-weaken an existing belief before reusing it for a
// fresh model run (spec_full supplemented feature).
func (l *Linear) UpdateWeakened(x *mat.Dense, y *mat.VecDense, w float64) error {
	if err := l.Weaken(w); err != nil {
		return err
	}
	return l.Update(x, y)
}

func appendRows(buf *mat.Dense, rows *mat.Dense) *mat.Dense {
	br, _ := buf.Dims()
	rr, bc := rows.Dims()
	out := mat.NewDense(br+rr, bc, nil)
	for i := 0; i < br; i++ {
		for j := 0; j < bc; j++ {
			out.Set(i, j, buf.At(i, j))
		}
	}
	for i := 0; i < rr; i++ {
		for j := 0; j < bc; j++ {
			out.Set(br+i, j, rows.At(i, j))
		}
	}
	return out
}

func appendVec(buf *mat.VecDense, rows *mat.VecDense) *mat.VecDense {
	bl := buf.Len()
	rl := rows.Len()
	out := mat.NewVecDense(bl+rl, nil)
	for i := 0; i < bl; i++ {
		out.SetVec(i, buf.AtVec(i))
	}
	for i := 0; i < rl; i++ {
		out.SetVec(bl+i, rows.AtVec(i))
	}
	return out
}

func (l *Linear) updateNoninformative(x *mat.Dense, y *mat.VecDense) error {
	l.bufX = appendRows(l.bufX, x)
	l.bufY = appendVec(l.bufY, y)
	l.bufXUnweakened = appendRows(l.bufXUnweakened, x)
	l.bufYUnweakened = appendVec(l.bufYUnweakened, y)

	xtx := mat.NewSymDense(l.k, nil)
	xtx.SymOuterK(1, l.bufX.T())

	var probe mat.Cholesky
	if !probe.Factorize(xtx) {
		l.cache.reset()
		return nil
	}

	xty := mat.NewVecDense(l.k, nil)
	xty.MulVec(l.bufX.T(), l.bufY)

	beta := mat.NewVecDense(l.k, nil)
	if err := probe.SolveVecTo(beta, xty); err != nil {
		l.cache.reset()
		return nil
	}

	var resid mat.VecDense
	resid.MulVec(l.bufX, beta)
	resid.SubVec(l.bufY, &resid)
	rss := mat.Dot(&resid, &resid)

	bufRows, _ := l.bufX.Dims()
	l.vinv = xtx
	l.vinvbeta = xty
	l.n = float64(bufRows)
	l.s2 = rss / l.n
	l.noninformative = false
	l.bufX, l.bufY = nil, nil
	l.cache.reset()
	return nil
}

func (l *Linear) updateInformative(x *mat.Dense, y *mat.VecDense) error {
	if err := l.ensureBeta(); err != nil {
		return err
	}
	oldTerm := mat.Dot(l.vinvbeta, l.beta)

	rows, _ := x.Dims()
	xtx := mat.NewSymDense(l.k, nil)
	xtx.SymOuterK(1, x.T())
	xty := mat.NewVecDense(l.k, nil)
	xty.MulVec(x.T(), y)
	yty := mat.Dot(y, y)

	newVinv := mat.NewSymDense(l.k, nil)
	newVinv.AddSym(l.vinv, xtx)
	newVinvBeta := mat.NewVecDense(l.k, nil)
	newVinvBeta.AddVec(l.vinvbeta, xty)

	nOld, s2Old := l.n, l.s2
	nNew := nOld + float64(rows)

	l.vinv = newVinv
	l.vinvbeta = newVinvBeta
	l.cache.reset()

	if err := l.ensureBeta(); err != nil {
		return err
	}
	newTerm := mat.Dot(l.vinvbeta, l.beta)

	rssIncrement := yty + oldTerm - newTerm
	l.n = nNew
	l.s2 = (nOld*s2Old + rssIncrement) / nNew
	l.cache.reset()
	return nil
}

// Weaken scales beta-bar's covariance by w^2, keeping beta-bar itself, by
// dividing V^-1 (and the stored V^-1*beta-bar) by w^2; n and s2 are
// unchanged. If still noninformative, buffered X and y are scaled by 1/w
// too (spec §4.H "Weakening").
func (l *Linear) Weaken(w float64) error {
	if w < 1 {
		return &DomainError{Msg: "weakening factor must be >= 1"}
	}
	if w == 1 {
		return nil
	}
	w2 := w * w
	l.vinv.ScaleSym(1/w2, l.vinv)
	l.vinvbeta.ScaleVec(1/w2, l.vinvbeta)
	if l.noninformative && l.bufY.Len() > 0 {
		l.bufX.Scale(1/w, l.bufX)
		l.bufY.ScaleVec(1/w, l.bufY)
	}
	l.cache.reset()
	return nil
}
