// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trnorm draws from a standard normal distribution truncated to
// [lower, upper], switching among four rejection samplers by region shape
// so that expected work stays bounded regardless of how far the region
// sits in a tail (spec §4.I "method-switching sampler").
//
// Grounded on the teacher's gonum-backed PRNG wiring (engine/chain's
// mt19937Wrapper around gonum.org/v1/gonum/mathext/prng): callers supply a
// Rand built the same way, rather than this package owning its own
// global source.
package trnorm

import (
	"math"
)

// Rand is the subset of math/rand.Rand (or any equivalent source, such as
// rngsrc.Source) this package draws from.
type Rand interface {
	Float64() float64
	NormFloat64() float64
	ExpFloat64() float64
}

// region thresholds: tuned so each method is only used where its rejection
// rate stays bounded; exact constants are an implementation choice (spec
// §4.I), not a contract.
const (
	wideWidth   = 2.0 * math.Sqrt2 // above this width, plain normal rejection is cheap
	tailCutoff  = 0.2              // a one-sided region within this of the mean uses half-normal rejection
	narrowWidth = 0.5              // below this width, uniform rejection dominates
)

// Sample draws one value from N(0,1) truncated to [lower, upper]. Either
// bound may be +/-Inf for a one-sided region. Panics if lower > upper.
func Sample(rnd Rand, lower, upper float64) float64 {
	if lower > upper {
		panic("trnorm: lower > upper")
	}
	if lower == upper {
		return lower
	}

	switch {
	case math.IsInf(lower, -1) && math.IsInf(upper, 1):
		return rnd.NormFloat64()
	case math.IsInf(lower, -1):
		// One-sided region (-inf, upper]: mirror into [-upper, inf).
		return -sampleUpperTail(rnd, -upper)
	case math.IsInf(upper, 1):
		return sampleUpperTail(rnd, lower)
	default:
		return sampleBounded(rnd, lower, upper)
	}
}

// sampleUpperTail draws from N(0,1) truncated to [a, +inf).
func sampleUpperTail(rnd Rand, a float64) float64 {
	if a <= tailCutoff {
		// Near/through the mean: plain rejection from N(0,1) restricted to
		// [a, inf) converges quickly.
		for {
			x := rnd.NormFloat64()
			if x >= a {
				return x
			}
		}
	}
	// Far in the tail: exponential-rejection (Robert 1995), rate
	// lambda = a (the optimal choice for one-sided truncation at a).
	lambda := a
	for {
		x := a + rnd.ExpFloat64()/lambda
		accept := math.Exp(-0.5 * (x - lambda) * (x - lambda))
		if rnd.Float64() <= accept {
			return x
		}
	}
}

// sampleBounded draws from N(0,1) truncated to the finite interval [a, b].
func sampleBounded(rnd Rand, a, b float64) float64 {
	width := b - a
	switch {
	case width >= wideWidth && a <= 0 && b >= 0:
		// Region straddles or is near the mean and is wide: ordinary
		// rejection from the untruncated normal.
		for {
			x := rnd.NormFloat64()
			if x >= a && x <= b {
				return x
			}
		}
	case a >= 0 && a <= tailCutoff:
		// Region starts at/near the mean in the positive tail: half-normal
		// rejection (|N(0,1)| restricted to [a,b]).
		for {
			x := math.Abs(rnd.NormFloat64())
			if x >= a && x <= b {
				return x
			}
		}
	case b <= 0 && -b <= tailCutoff:
		for {
			x := -math.Abs(rnd.NormFloat64())
			if x >= a && x <= b {
				return x
			}
		}
	case width <= narrowWidth:
		// Narrow region: uniform-envelope rejection against the normal
		// density, which is near-flat over a short interval.
		peak := densityPeak(a, b)
		for {
			x := a + rnd.Float64()*width
			if rnd.Float64()*peak <= normalPDF(x) {
				return x
			}
		}
	default:
		// Region lies in one tail away from the mean, or straddles the mean
		// with a width between narrowWidth and wideWidth: exponential
		// rejection starting at a (at -b, mirrored, when a < 0).
		if a >= 0 {
			return sampleExpTail(rnd, a, b)
		}
		return -sampleExpTail(rnd, -b, -a)
	}
}

// sampleExpTail draws from N(0,1) truncated to [a, b] with a < b, using
// exponential-rejection anchored at a; the rate is a, or 1 when a <= 0.
func sampleExpTail(rnd Rand, a, b float64) float64 {
	lambda := a
	if lambda <= 0 {
		lambda = 1
	}
	for {
		x := a + rnd.ExpFloat64()/lambda
		if x > b {
			continue
		}
		accept := math.Exp(-0.5 * (x - lambda) * (x - lambda))
		if rnd.Float64() <= accept {
			return x
		}
	}
}

func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt2 / math.SqrtPi
}

// densityPeak bounds the normal density over [a,b]: the mode if 0 is
// inside the interval, else the endpoint nearer to 0.
func densityPeak(a, b float64) float64 {
	if a <= 0 && b >= 0 {
		return normalPDF(0)
	}
	if math.Abs(a) < math.Abs(b) {
		return normalPDF(a)
	}
	return normalPDF(b)
}
