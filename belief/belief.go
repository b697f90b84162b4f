// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package belief implements component H: a natural-conjugate normal-gamma
// BayesianLinear belief, its noninformative-to-informative crossover, its
// weakening operator, and its posterior-predictive draw/predict family
// (spec §4.H).
//
// Not internally synchronized (spec §5): a Linear's owning Member's lock
// is assumed to serialize access, matching Bundle's contract in package
// bundle.
//
// Grounded on gonum.org/v1/gonum/mat for the linear algebra and
// stat/distuv + mathext/prng for the posterior draws, the same PRNG
// wiring the teacher uses in engine/chain/mt19937_wrapper.go.
package belief

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/erisproject/ersim/internal/errs"
	"github.com/erisproject/ersim/internal/rngsrc"
)

// InvalidStateError reports an operation attempted in a state that forbids
// it -- predicting from a noninformative or zero-K model, for instance.
type InvalidStateError struct {
	Op  string
	Why string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("belief: %s: %s", e.Op, e.Why)
}
func (e *InvalidStateError) Unwrap() error { return errs.ErrInvalidState }

// DomainError reports an out-of-contract argument (mismatched row counts,
// a weakening factor below 1, ...).
type DomainError struct{ Msg string }

func (e *DomainError) Error() string { return "belief: " + e.Msg }
func (e *DomainError) Unwrap() error { return errs.ErrDomain }

// noninformative defaults (spec §4.H).
const (
	defaultVinvDiag = 1e-8
	defaultN        = 1e-3
)

// Linear is a natural-conjugate normal-gamma BayesianLinear belief over a
// K-dimensional coefficient vector. The zero value is not usable;
// construct with NewNoninformative or NewInformative.
type Linear struct {
	k     int
	names []string
	rnd   *rngsrc.Source

	n  float64
	s2 float64
	// vinv and vinvbeta are the canonical stored parameters: V^-1 and
	// V^-1 * beta-bar, per spec §4.H ("store V⁻¹β̄ rather than β̄ to avoid
	// repeated inversion").
	vinv     *mat.SymDense
	vinvbeta *mat.VecDense

	noninformative bool
	bufX           *mat.Dense    // buffered raw rows while noninformative
	bufY           *mat.VecDense
	bufXUnweakened *mat.Dense // pristine copy, for introspection only
	bufYUnweakened *mat.VecDense

	cache
}

// cache holds derived objects invalidated on every parameter mutation
// (spec §3 "A per-belief cache").
type cache struct {
	betaValid bool
	beta      *mat.VecDense

	cholValid bool
	chol      mat.Cholesky

	vValid bool
	v      *mat.SymDense

	rootValid bool
	root      *mat.TriDense

	lastDraw []float64

	predValid bool
	predBeta  *mat.Dense // K x cols
	predS2    []float64
	predErr   *mat.Dense // errRows x cols
}

func (c *cache) reset() { *c = cache{} }

// Option configures a Linear at construction time.
type Option func(*config)

type config struct {
	names    []string
	rnd      *rngsrc.Source
	preloadX *mat.Dense
	preloadY *mat.VecDense
}

// WithNames attaches human-readable coefficient names, purely for display;
// len(names) must equal K.
func WithNames(names []string) Option {
	return func(c *config) { c.names = append([]string(nil), names...) }
}

// WithRand installs the random source used for all draws. The default is
// gonum's MT19937, matching the teacher's PRNG choice.
func WithRand(rnd *rngsrc.Source) Option { return func(c *config) { c.rnd = rnd } }

// WithPreload seeds a noninformative belief's buffer with existing rows,
// as though Update had already been called with them (spec §4.H
// "optionally a preload (Xᵖ, yᵖ) matrix").
func WithPreload(x *mat.Dense, y *mat.VecDense) Option {
	return func(c *config) { c.preloadX, c.preloadY = x, y }
}

func defaultRand() *rngsrc.Source {
	return rngsrc.New()
}

// NewNoninformative constructs a noninformative belief over k coefficients:
// beta-bar = 0, s2 = 1, V^-1 = 1e-8*I, n = 1e-3 -- values that are
// discarded outright as soon as the buffered data becomes full rank (spec
// §4.H).
func NewNoninformative(k int, opts ...Option) (*Linear, error) {
	if k < 1 {
		return nil, &DomainError{Msg: "K must be >= 1"}
	}
	cfg := config{rnd: defaultRand()}
	for _, o := range opts {
		o(&cfg)
	}
	if len(cfg.names) != 0 && len(cfg.names) != k {
		return nil, &DomainError{Msg: "len(names) must equal K"}
	}

	vinvData := make([]float64, k*k)
	for i := 0; i < k; i++ {
		vinvData[i*k+i] = defaultVinvDiag
	}
	l := &Linear{
		k:              k,
		names:          cfg.names,
		rnd:            cfg.rnd,
		n:              defaultN,
		s2:             1,
		vinv:           mat.NewSymDense(k, vinvData),
		vinvbeta:       mat.NewVecDense(k, nil),
		noninformative: true,
		// gonum has no zero-row matrix; its zero values stand in for the
		// empty buffers until updateNoninformative appends rows.
		bufX:           &mat.Dense{},
		bufY:           &mat.VecDense{},
		bufXUnweakened: &mat.Dense{},
		bufYUnweakened: &mat.VecDense{},
	}
	if cfg.preloadX != nil {
		if err := l.Update(cfg.preloadX, cfg.preloadY); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// NewInformative constructs a belief directly from parameters (spec §4.H
// "Informative from parameters").
func NewInformative(beta []float64, s2 float64, vinv *mat.SymDense, n float64, opts ...Option) (*Linear, error) {
	k := vinv.SymmetricDim()
	if len(beta) != k {
		return nil, &DomainError{Msg: "len(beta) must equal V^-1's dimension"}
	}
	if s2 < 0 || n < 0 {
		return nil, &DomainError{Msg: "s2 and n must be non-negative"}
	}
	cfg := config{rnd: defaultRand()}
	for _, o := range opts {
		o(&cfg)
	}
	if len(cfg.names) != 0 && len(cfg.names) != k {
		return nil, &DomainError{Msg: "len(names) must equal K"}
	}

	betaVec := mat.NewVecDense(k, append([]float64(nil), beta...))
	vinvbeta := mat.NewVecDense(k, nil)
	vinvbeta.MulVec(vinv, betaVec)

	return &Linear{
		k:        k,
		names:    cfg.names,
		rnd:      cfg.rnd,
		n:        n,
		s2:       s2,
		vinv:     cloneSym(vinv),
		vinvbeta: vinvbeta,
	}, nil
}

// NewPosterior builds an informative belief from prior parameters, then
// weakens by w and folds in (X, y) (spec §4.H "Posterior from prior +
// data + weakening factor").
func NewPosterior(beta []float64, s2 float64, vinv *mat.SymDense, n float64, x *mat.Dense, y *mat.VecDense, w float64, opts ...Option) (*Linear, error) {
	l, err := NewInformative(beta, s2, vinv, n, opts...)
	if err != nil {
		return nil, err
	}
	if err := l.UpdateWeakened(x, y, w); err != nil {
		return nil, err
	}
	return l, nil
}

// K returns the coefficient dimension.
func (l *Linear) K() int { return l.k }

// N returns the cumulative effective sample size.
func (l *Linear) N() float64 { return l.n }

// S2 returns the current error-variance point estimate.
func (l *Linear) S2() float64 { return l.s2 }

// Noninformative reports whether the belief is still buffering data
// waiting for XᵀX to become invertible.
func (l *Linear) Noninformative() bool { return l.noninformative }

// Names returns the coefficient names, if set via WithNames.
func (l *Linear) Names() []string { return l.names }

// Beta returns the current posterior mean, computed (and cached) by
// solving V^-1 * beta-bar = vinvbeta.
func (l *Linear) Beta() ([]float64, error) {
	if l.noninformative {
		return nil, &InvalidStateError{Op: "beta", Why: "belief is noninformative"}
	}
	if err := l.ensureBeta(); err != nil {
		return nil, err
	}
	out := make([]float64, l.k)
	for i := range out {
		out[i] = l.beta.AtVec(i)
	}
	return out, nil
}

func (l *Linear) ensureBeta() error {
	if l.betaValid {
		return nil
	}
	if err := l.ensureChol(); err != nil {
		return err
	}
	beta := mat.NewVecDense(l.k, nil)
	if err := l.chol.SolveVecTo(beta, l.vinvbeta); err != nil {
		return &InvalidStateError{Op: "beta", Why: "V^-1 is not invertible"}
	}
	l.beta = beta
	l.betaValid = true
	return nil
}

func (l *Linear) ensureChol() error {
	if l.cholValid {
		return nil
	}
	if ok := l.chol.Factorize(l.vinv); !ok {
		return &InvalidStateError{Op: "factorize", Why: "V^-1 is not positive definite"}
	}
	l.cholValid = true
	return nil
}

func (l *Linear) ensureV() error {
	if l.vValid {
		return nil
	}
	if err := l.ensureChol(); err != nil {
		return err
	}
	v := mat.NewSymDense(l.k, nil)
	if err := l.chol.InverseTo(v); err != nil {
		return &InvalidStateError{Op: "invert", Why: "V^-1 is not invertible"}
	}
	l.v = v
	l.vValid = true
	return nil
}

// ensureRoot computes the Cholesky root of s2*V, the matrix L such that
// beta = beta-bar + sigma*L*z reproduces the posterior (spec §4.H draw()).
func (l *Linear) ensureRoot() error {
	if l.rootValid {
		return nil
	}
	if err := l.ensureV(); err != nil {
		return err
	}
	s2v := mat.NewSymDense(l.k, nil)
	s2v.ScaleSym(l.s2, l.v)
	var chol mat.Cholesky
	if ok := chol.Factorize(s2v); !ok {
		return &InvalidStateError{Op: "root", Why: "s2*V is not positive definite"}
	}
	l.root = chol.LTo(nil)
	l.rootValid = true
	return nil
}

// Root returns the Cholesky root L of s2*V, the matrix such that
// beta-bar + sigma*L*z reproduces the posterior (spec §4.H draw()). Package
// beliefx's Gibbs sampler uses this to move between beta-space and its
// reparameterized z-space.
func (l *Linear) Root() (*mat.TriDense, error) {
	if l.noninformative {
		return nil, &InvalidStateError{Op: "root", Why: "belief is noninformative"}
	}
	if err := l.ensureRoot(); err != nil {
		return nil, err
	}
	return l.root, nil
}

func cloneSym(s *mat.SymDense) *mat.SymDense {
	n := s.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	out.CopySym(s)
	return out
}
