// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package beliefx

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/erisproject/ersim/internal/trnorm"
)

// gibbsState holds the sampler's position in the reparameterized space
// z = L^-1 (beta - beta-bar) / sigma (spec §4.I "Gibbs draw"), plus the
// matrices needed to map between z-space and beta-space.
type gibbsState struct {
	z       []float64 // current position, length K
	sigma2  float64
	burntIn bool
	draws   int // not used: thinning runs gibbsThin sweeps per returned draw

	root    *mat.TriDense // L, the Cholesky root of s2*V, cached at seed time
	betaBar []float64
}

// gibbsDraw advances the Gibbs chain by one accepted (post-thinning) step
// and returns beta concatenated with sigma2 (spec §4.I).
func (r *Restricted) gibbsDraw() ([]float64, error) {
	if r.gibbs == nil {
		if err := r.gibbsSeed(); err != nil {
			return nil, err
		}
		for i := 0; i < r.gibbsBurnin; i++ {
			if err := r.gibbsStep(); err != nil {
				return nil, err
			}
		}
		r.gibbs.burntIn = true
	}

	thin := r.gibbsThin
	if thin < 1 {
		thin = 1
	}
	for i := 0; i < thin; i++ {
		if err := r.gibbsStep(); err != nil {
			return nil, err
		}
	}

	return r.gibbsCurrentDraw(), nil
}

// gibbsSeed draws an unrestricted (beta0, sigma0^2), projects beta0 into
// the admissible region via gibbsInitialize, and converts to z-space
// (spec §4.I step 1).
func (r *Restricted) gibbsSeed() error {
	draw, err := r.base.Draw()
	if err != nil {
		return err
	}
	k := r.base.K()
	beta0 := draw[:k]
	sigma2 := draw[k]

	projected, err := r.gibbsInitialize(beta0, r.gibbsMaxInit)
	if err != nil {
		return err
	}

	betaBar, err := r.base.Beta()
	if err != nil {
		return err
	}
	root, err := r.base.Root()
	if err != nil {
		return err
	}

	sigma := math.Sqrt(sigma2)
	z, err := zFromBeta(root, betaBar, projected, sigma)
	if err != nil {
		return err
	}

	r.gibbs = &gibbsState{z: z, sigma2: sigma2, root: root, betaBar: betaBar}
	return nil
}

// zFromBeta solves L z = (beta - betaBar) / sigma for z via forward
// substitution (L is lower-triangular).
func zFromBeta(root *mat.TriDense, betaBar, beta []float64, sigma float64) ([]float64, error) {
	k := len(betaBar)
	rhs := make([]float64, k)
	for i := 0; i < k; i++ {
		rhs[i] = (beta[i] - betaBar[i]) / sigma
	}
	z := make([]float64, k)
	for i := 0; i < k; i++ {
		sum := rhs[i]
		for j := 0; j < i; j++ {
			sum -= root.At(i, j) * z[j]
		}
		diag := root.At(i, i)
		if diag == 0 {
			return nil, &DomainError{Msg: "Cholesky root is singular"}
		}
		z[i] = sum / diag
	}
	return z, nil
}

// betaFromZ computes beta-bar + sigma * L * z.
func betaFromZ(root *mat.TriDense, betaBar, z []float64, sigma float64) []float64 {
	k := len(betaBar)
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		sum := 0.0
		for j := 0; j <= i; j++ {
			sum += root.At(i, j) * z[j]
		}
		out[i] = betaBar[i] + sigma*sum
	}
	return out
}

// gibbsInitialize projects betaInit into {beta : R beta <= r} by repeatedly
// moving 1.5x the orthogonal distance to a randomly chosen violated row's
// boundary (spec §4.I "gibbsInitialize").
func (r *Restricted) gibbsInitialize(betaInit []float64, maxTries int) ([]float64, error) {
	beta := append([]float64(nil), betaInit...)
	for try := 0; try < maxTries; try++ {
		violated := r.violatedRows(beta)
		if len(violated) == 0 {
			return beta, nil
		}
		i := violated[r.rnd.Intn(len(violated))]
		row := r.rows[i]
		v := dot(row, beta) - r.rhs[i]
		normSq := dot(row, row)
		if normSq == 0 {
			continue
		}
		step := 1.5 * v / normSq
		for j := range beta {
			beta[j] -= step * row[j]
		}
	}
	if len(r.violatedRows(beta)) > 0 {
		return nil, &ConstraintFailureError{Tries: maxTries}
	}
	return beta, nil
}

func (r *Restricted) violatedRows(beta []float64) []int {
	var out []int
	for i, row := range r.rows {
		if dot(row, beta) > r.rhs[i] {
			out = append(out, i)
		}
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// gibbsStep performs one full sweep: the sigma-multiplier update (step 2a)
// followed by one truncated-normal draw per coordinate (step 2b).
func (r *Restricted) gibbsStep() error {
	g := r.gibbs
	k := len(g.z)

	lo, hi := r.sigmaMultiplierRange(g.z)
	chi2 := distuv.ChiSquared{K: r.base.N(), Src: r.rnd}
	uLo, uHi := sigmaRangeToChiSquaredRange(r.base.N(), r.base.S2(), math.Sqrt(g.sigma2), lo, hi)
	u := sampleTruncatedChiSquared(chi2, r.rnd, uLo, uHi)
	g.sigma2 = r.base.N() * r.base.S2() / u

	for j := 0; j < k; j++ {
		l, h := r.coordinateRange(g.z, j)
		g.z[j] = trnorm.Sample(r.rnd, l, h)
	}
	return nil
}

// sigmaMultiplierRange computes the admissible range of sigma/sigmaBar
// (the multiplier relating a candidate sigma to the current one) such
// that beta-bar + sigma*L*z stays admissible for the current z (spec §4.I
// step 2a).
func (r *Restricted) sigmaMultiplierRange(z []float64) (lo, hi float64) {
	lo, hi = 0, math.Inf(1)
	sigmaBar := math.Sqrt(r.gibbs.sigma2)
	for i, row := range r.rows {
		a := dot(row, r.gibbs.betaBar) - r.rhs[i]
		// beta = beta-bar + (m*sigmaBar)*L*z, so b carries the current sigma.
		b := sigmaBar * dot(row, matVec(r.gibbs.root, z))
		// a + m*b <= 0 for multiplier m >= 0.
		switch {
		case b > 0:
			hi = math.Min(hi, -a/b)
		case b < 0:
			lo = math.Max(lo, -a/b)
		default:
			if a > 0 {
				return 1, 0 // infeasible: lo > hi, which gibbsStep does not check
			}
		}
	}
	return lo, hi
}

func matVec(m *mat.TriDense, z []float64) []float64 {
	k := len(z)
	out := make([]float64, k)
	for i := 0; i < k; i++ {
		sum := 0.0
		for j := 0; j <= i; j++ {
			sum += m.At(i, j) * z[j]
		}
		out[i] = sum
	}
	return out
}

// coordinateRange computes the half-space bounds on z_j implied by every
// restriction, holding the other coordinates fixed (spec §4.I step 2b).
func (r *Restricted) coordinateRange(z []float64, j int) (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	sigma := math.Sqrt(r.gibbs.sigma2)
	for i, row := range r.rows {
		coef := sigma * dotRootCol(row, r.gibbs.root, j)
		if coef == 0 {
			continue
		}
		rest := 0.0
		for jj := range z {
			if jj == j {
				continue
			}
			rest += sigma * dotRootCol(row, r.gibbs.root, jj) * z[jj]
		}
		bound := (r.rhs[i] - dot(row, r.gibbs.betaBar) - rest) / coef
		if coef > 0 {
			hi = math.Min(hi, bound)
		} else {
			lo = math.Max(lo, bound)
		}
	}
	return lo, hi
}

// dotRootCol returns row . (L's column j extended with zeros), i.e. the
// coefficient on z_j in row's linear form R_i beta = R_i (betaBar + sigma L z).
func dotRootCol(row []float64, root *mat.TriDense, j int) float64 {
	var s float64
	k, _ := root.Dims()
	for i := j; i < k; i++ {
		s += row[i] * root.At(i, j)
	}
	return s
}

// gibbsCurrentDraw materializes the current z-state as a (beta, sigma2)
// draw.
func (r *Restricted) gibbsCurrentDraw() []float64 {
	g := r.gibbs
	sigma := math.Sqrt(g.sigma2)
	beta := betaFromZ(g.root, g.betaBar, g.z, sigma)
	out := append(beta, g.sigma2)
	return out
}

// sigmaRangeToChiSquaredRange converts a multiplicative range on
// sigma/sigmaBar into the corresponding range on u = n*s2/sigma^2 (the
// chi-squared pivot), since u is a decreasing function of sigma.
func sigmaRangeToChiSquaredRange(n, s2, sigmaBar, lo, hi float64) (uLo, uHi float64) {
	// sigma = m * sigmaBar, m in [lo, hi]; u = n*s2/sigma^2.
	uHi = math.Inf(1)
	if lo > 0 {
		uHi = n * s2 / ((lo * sigmaBar) * (lo * sigmaBar))
	}
	uLo = 0.0
	if !math.IsInf(hi, 1) && hi > 0 {
		uLo = n * s2 / ((hi * sigmaBar) * (hi * sigmaBar))
	}
	return uLo, uHi
}

// sampleTruncatedChiSquared draws from chi2 truncated to [lo, hi] by
// inverse-CDF sampling: draw a uniform in [CDF(lo), CDF(hi)] and invert.
func sampleTruncatedChiSquared(chi2 distuv.ChiSquared, rnd interface{ Float64() float64 }, lo, hi float64) float64 {
	cdfLo := chi2.CDF(lo)
	cdfHi := 1.0
	if !math.IsInf(hi, 1) {
		cdfHi = chi2.CDF(hi)
	}
	if cdfHi <= cdfLo {
		return math.Max(lo, chi2.Rand())
	}
	p := cdfLo + rnd.Float64()*(cdfHi-cdfLo)
	return chi2.Quantile(p)
}
