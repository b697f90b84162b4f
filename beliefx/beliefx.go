// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package beliefx implements component I: a BayesianLinear belief
// restricted to the region {beta : R beta <= r}, drawn from by rejection,
// Gibbs, or an auto-switching combination of the two (spec §4.I).
//
// Grounded on package belief for the underlying posterior and on
// internal/trnorm for the per-coordinate truncated-normal draws the Gibbs
// sampler needs.
package beliefx

import (
	"fmt"

	"github.com/erisproject/ersim/belief"
	"github.com/erisproject/ersim/internal/errs"
	"github.com/erisproject/ersim/internal/rngsrc"
)

// Mode selects the draw strategy.
type Mode uint8

const (
	Auto Mode = iota
	Rejection
	Gibbs
)

func (m Mode) String() string {
	switch m {
	case Rejection:
		return "Rejection"
	case Gibbs:
		return "Gibbs"
	default:
		return "Auto"
	}
}

// Defaults from spec §4.I.
const (
	DefaultMaxDiscards           = 50
	DefaultMinRejectionAttempts  = 50
	DefaultMinSuccessRate        = 0.2
	DefaultGibbsBurnin           = 100
	DefaultGibbsThin             = 2
	DefaultGibbsInitializeTries  = 100
)

// DrawFailureError reports that Rejection sampling exhausted its discard
// budget without an acceptance.
type DrawFailureError struct{ Attempts int }

func (e *DrawFailureError) Error() string {
	return fmt.Sprintf("beliefx: draw failed after %d discards", e.Attempts)
}
func (e *DrawFailureError) Unwrap() error { return errs.ErrDrawFailure }

// ConstraintFailureError reports that gibbsInitialize could not find an
// admissible point within its try budget.
type ConstraintFailureError struct{ Tries int }

func (e *ConstraintFailureError) Error() string {
	return fmt.Sprintf("beliefx: could not find an admissible point after %d tries", e.Tries)
}
func (e *ConstraintFailureError) Unwrap() error { return errs.ErrConstraintFailure }

// Restricted wraps a belief.Linear with an inequality restriction store
// R*beta <= r and the three draw strategies of spec §4.I.
type Restricted struct {
	base *belief.Linear
	rnd  *rngsrc.Source

	rows [][]float64 // each row is R_i, length K
	rhs  []float64   // r_i

	mode         Mode
	maxDiscards  int
	minAttempts  int
	minSuccess   float64
	gibbsBurnin  int
	gibbsThin    int
	gibbsMaxInit int

	totalAttempts int
	totalSuccess  int
	lastDrawMode  Mode

	gibbs *gibbsState
}

// Option configures a Restricted at construction time.
type Option func(*Restricted)

// WithRand installs the random source; default gonum's MT19937.
func WithRand(rnd *rngsrc.Source) Option { return func(r *Restricted) { r.rnd = rnd } }

// WithMode fixes the initial draw mode (spec §4.I "Draw modes").
func WithMode(m Mode) Option { return func(r *Restricted) { r.mode = m } }

// WithMaxDiscards overrides the per-call rejection-sampling cap.
func WithMaxDiscards(n int) Option { return func(r *Restricted) { r.maxDiscards = n } }

// WithAutoThresholds overrides Auto mode's switch-to-Gibbs thresholds.
func WithAutoThresholds(minAttempts int, minSuccessRate float64) Option {
	return func(r *Restricted) { r.minAttempts = minAttempts; r.minSuccess = minSuccessRate }
}

// WithGibbsParams overrides the Gibbs sampler's burn-in, thinning, and
// gibbsInitialize try budget.
func WithGibbsParams(burnin, thin, maxInitTries int) Option {
	return func(r *Restricted) {
		r.gibbsBurnin, r.gibbsThin, r.gibbsMaxInit = burnin, thin, maxInitTries
	}
}

// New wraps base with an empty restriction store.
func New(base *belief.Linear, opts ...Option) *Restricted {
	r := &Restricted{
		base:         base,
		rnd:          rngsrc.New(),
		maxDiscards:  DefaultMaxDiscards,
		minAttempts:  DefaultMinRejectionAttempts,
		minSuccess:   DefaultMinSuccessRate,
		gibbsBurnin:  DefaultGibbsBurnin,
		gibbsThin:    DefaultGibbsThin,
		gibbsMaxInit: DefaultGibbsInitializeTries,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Base returns the underlying unrestricted belief.
func (r *Restricted) Base() *belief.Linear { return r.base }

// Mode reports the current draw mode (after any Auto-driven switch to
// Gibbs).
func (r *Restricted) Mode() Mode { return r.mode }

// LastDrawMode reports which strategy actually produced the most recent
// draw.
func (r *Restricted) LastDrawMode() Mode { return r.lastDrawMode }

// resetCaches clears the Gibbs state; called whenever a restriction is
// added (spec §4.I "Adding any restriction resets caches and the Gibbs
// state").
func (r *Restricted) resetCaches() {
	r.gibbs = nil
}

// AddRestriction adds the full linear row R_i beta <= r_i.
func (r *Restricted) AddRestriction(row []float64, rhs float64) error {
	if len(row) != r.base.K() {
		return &DomainError{Msg: "restriction row length must equal K"}
	}
	r.rows = append(r.rows, append([]float64(nil), row...))
	r.rhs = append(r.rhs, rhs)
	r.resetCaches()
	return nil
}

// AddRestrictionGE adds R_i beta >= r_i, stored internally negated as
// spec §4.I prescribes.
func (r *Restricted) AddRestrictionGE(row []float64, rhs float64) error {
	neg := make([]float64, len(row))
	for i, v := range row {
		neg[i] = -v
	}
	return r.AddRestriction(neg, -rhs)
}

// RestrictUpper adds beta_k <= bound.
func (r *Restricted) RestrictUpper(k int, bound float64) error {
	if k < 0 || k >= r.base.K() {
		return &DomainError{Msg: "coefficient index out of range"}
	}
	row := make([]float64, r.base.K())
	row[k] = 1
	return r.AddRestriction(row, bound)
}

// RestrictLower adds beta_k >= bound.
func (r *Restricted) RestrictLower(k int, bound float64) error {
	if k < 0 || k >= r.base.K() {
		return &DomainError{Msg: "coefficient index out of range"}
	}
	row := make([]float64, r.base.K())
	row[k] = 1
	return r.AddRestrictionGE(row, bound)
}

// DomainError reports an out-of-contract argument.
type DomainError struct{ Msg string }

func (e *DomainError) Error() string { return "beliefx: " + e.Msg }
func (e *DomainError) Unwrap() error { return errs.ErrDomain }

// satisfies reports whether beta satisfies every restriction.
func (r *Restricted) satisfies(beta []float64) bool {
	for i, row := range r.rows {
		var v float64
		for j, c := range row {
			v += c * beta[j]
		}
		if v > r.rhs[i] {
			return false
		}
	}
	return true
}

// Draw returns a length-(K+1) vector satisfying every restriction, using
// the current Mode (spec §4.I).
func (r *Restricted) Draw() ([]float64, error) {
	switch r.mode {
	case Rejection:
		draw, _, err := r.rejectionDraw(r.maxDiscards)
		if err != nil {
			return nil, err
		}
		r.lastDrawMode = Rejection
		return draw, nil
	case Gibbs:
		draw, err := r.gibbsDraw()
		if err != nil {
			return nil, err
		}
		r.lastDrawMode = Gibbs
		return draw, nil
	default:
		return r.autoDraw()
	}
}

// rejectionDraw repeatedly samples the unrestricted belief, accepting the
// first draw satisfying every restriction, up to cap attempts. It reports
// the number of attempts made even on failure.
func (r *Restricted) rejectionDraw(cap int) ([]float64, int, error) {
	for i := 0; i < cap; i++ {
		draw, err := r.base.Draw()
		if err != nil {
			return nil, i + 1, err
		}
		r.totalAttempts++
		if r.satisfies(draw[:len(draw)-1]) {
			r.totalSuccess++
			return draw, i + 1, nil
		}
	}
	return nil, cap, &DrawFailureError{Attempts: cap}
}

// autoDraw implements spec §4.I's Auto mode: keep rejection-sampling until
// both the minimum cumulative attempt count and the failure-implied
// acceptance-rate floor are satisfied, then permanently switch to Gibbs.
func (r *Restricted) autoDraw() ([]float64, error) {
	for {
		draw, err := r.base.Draw()
		if err != nil {
			return nil, err
		}
		r.totalAttempts++
		if r.satisfies(draw[:len(draw)-1]) {
			r.totalSuccess++
			r.lastDrawMode = Rejection
			return draw, nil
		}

		rate := float64(r.totalSuccess) / float64(r.totalAttempts)
		if r.totalAttempts >= r.minAttempts && rate < r.minSuccess {
			r.mode = Gibbs
			draw, err := r.gibbsDraw()
			if err != nil {
				return nil, err
			}
			r.lastDrawMode = Gibbs
			return draw, nil
		}
	}
}
