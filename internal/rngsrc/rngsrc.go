// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rngsrc adapts gonum's MT19937 generator (the same PRNG the
// teacher wires into its own sampler via engine/chain/mt19937_wrapper.go)
// into a single source usable both as a math/rand.Rand -- for
// NormFloat64/ExpFloat64/Float64 -- and as the Uint64/Seed source gonum's
// stat/distuv distributions expect, without running two independent,
// unsynchronized generators.
package rngsrc

import (
	"math/rand"

	"gonum.org/v1/gonum/mathext/prng"
)

// Source is a *rand.Rand backed by an MT19937 stream, additionally
// exposing the Uint64()/Seed(uint64) pair distuv.Normal/ChiSquared/... take
// as their Src field.
type Source struct {
	*rand.Rand
	mt *prng.MT19937
}

// New constructs a Source with the fixed default seed that gonum's
// prng.NewMT19937 installs (5489), so every Source from New yields the
// same stream.
func New() *Source {
	mt := prng.NewMT19937()
	return &Source{Rand: rand.New(mt64{mt}), mt: mt}
}

// NewSeeded constructs a deterministically seeded Source, for reproducible
// tests.
func NewSeeded(seed uint64) *Source {
	mt := prng.NewMT19937()
	mt.Seed(seed)
	return &Source{Rand: rand.New(mt64{mt}), mt: mt}
}

// Uint64 and Seed implement the Source interface gonum's stat/distuv
// distributions require; they shadow the promoted *rand.Rand.Seed(int64).
func (s *Source) Uint64() uint64   { return s.mt.Uint64() }
func (s *Source) Seed(seed uint64) { s.mt.Seed(seed) }

// mt64 adapts *prng.MT19937 to math/rand.Source64 so it can back a
// *rand.Rand.
type mt64 struct{ mt *prng.MT19937 }

func (m mt64) Int63() int64    { return int64(m.mt.Uint64() >> 1) }
func (m mt64) Seed(seed int64) { m.mt.Seed(uint64(seed)) }
func (m mt64) Uint64() uint64  { return m.mt.Uint64() }
