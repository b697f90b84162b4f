// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bundle implements component C: a mapping of good id to quantity,
// in Signed and NonNeg flavours, with arithmetic, comparison, approximate
// atomic transfer, and nestable transactions (spec §4.C).
//
// Bundle is not internally synchronized (spec §5): callers sharing a
// Bundle across goroutines must serialize access through the owning
// Member's lock, exactly as the unrestricted BayesianLinear belief does.
package bundle

import (
	"fmt"
	"sort"

	"github.com/erisproject/ersim/internal/errs"
	"github.com/erisproject/ersim/member"
)

// Good is the identifier type Bundle quantities are keyed by; goods are
// themselves Members classified member.Good, so Good is an alias of
// member.ID rather than a distinct type.
type Good = member.ID

// DefaultEpsilon is the default relative rounding tolerance for Transfer.
const DefaultEpsilon = 1e-12

// NegativityError reports that a NonNeg Bundle would have received a
// negative quantity for Good.
type NegativityError struct {
	Good     Good
	Quantity float64
}

func (e *NegativityError) Error() string {
	return fmt.Sprintf("bundle: good %d would become negative (%g)", e.Good, e.Quantity)
}
func (e *NegativityError) Unwrap() error { return errs.ErrDomain }

// NoTransactionError reports commit/abort with no open transaction, or
// EndEncompassing with unmatched nested begins.
type NoTransactionError struct {
	Op string
}

func (e *NoTransactionError) Error() string {
	return fmt.Sprintf("bundle: %s: no matching open transaction", e.Op)
}
func (e *NoTransactionError) Unwrap() error { return errs.ErrNoTransaction }

type txFrame struct {
	snapshot    map[Good]float64 // nil for sentinel/passthrough frames
	sentinel    bool
	passthrough bool
}

// core is the shared mutable state behind a Bundle value; Bundle values are
// thin handles over a *core so that NonNeg's embedding of Signed operates on
// the same storage.
type core struct {
	nonNeg        bool
	q             map[Good]float64
	frames        []txFrame
	sentinelCount int
}

func newCore(nonNeg bool) *core {
	return &core{nonNeg: nonNeg, q: make(map[Good]float64)}
}

func cloneMap(m map[Good]float64) map[Good]float64 {
	out := make(map[Good]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Bundle is the read/write surface shared by Signed and NonNeg. It is
// exported as an interface so free functions (Add, Sub, Common, Reduce, ...)
// can accept either flavour without a dependency cycle between the two
// concrete types.
type Bundle interface {
	Get(g Good) float64
	Goods() []Good
	Size() int
	Empty() bool
	IsNonNeg() bool
	core() *core
}

// Signed holds any finite real quantity per good.
type Signed struct {
	c *core
}

// NewSigned constructs an empty Signed bundle.
func NewSigned() Signed {
	return Signed{c: newCore(false)}
}

// SignedOf constructs a Signed bundle from an initial good/quantity map, in
// the manner of the original's initializer-list constructor (debugging
// convenience; spec §4.A construction notes).
func SignedOf(init map[Good]float64) Signed {
	b := NewSigned()
	for g, q := range init {
		b.c.q[g] = q
	}
	return b
}

func (b Signed) core() *core      { return b.c }
func (b Signed) IsNonNeg() bool   { return b.c.nonNeg }
func (b Signed) Get(g Good) float64 {
	return b.c.q[g]
}
func (b Signed) Size() int  { return len(b.c.q) }
func (b Signed) Empty() bool { return len(b.c.q) == 0 }

// Goods returns the ids with an explicit (possibly zero) quantity, in
// ascending order. Order is a debugging convenience (SPEC_FULL §5.2), not a
// load-bearing guarantee beyond "stable between mutations" (spec §3).
func (b Signed) Goods() []Good {
	out := make([]Good, 0, len(b.c.q))
	for g := range b.c.q {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Set assigns quantity to good g. For a NonNeg bundle this fails with
// NegativityError if quantity < 0, and nothing is mutated.
func (b Signed) Set(g Good, quantity float64) error {
	if b.c.nonNeg && quantity < 0 {
		return &NegativityError{Good: g, Quantity: quantity}
	}
	b.c.q[g] = quantity
	return nil
}

// Erase removes g, returning 1 if it was present, 0 otherwise.
func (b Signed) Erase(g Good) int {
	if _, ok := b.c.q[g]; ok {
		delete(b.c.q, g)
		return 1
	}
	return 0
}

// Remove removes g, returning its previous quantity (0 if absent).
func (b Signed) Remove(g Good) float64 {
	q := b.c.q[g]
	delete(b.c.q, g)
	return q
}

// ClearZeros drops every entry whose quantity is exactly 0.
func (b Signed) ClearZeros() {
	for g, q := range b.c.q {
		if q == 0 {
			delete(b.c.q, g)
		}
	}
}

// Positive returns the subset of goods with strictly positive quantity.
func (b Signed) Positive() Signed {
	out := NewSigned()
	for g, q := range b.c.q {
		if q > 0 {
			out.c.q[g] = q
		}
	}
	return out
}

// Negative returns the subset of goods with strictly negative quantity.
func (b Signed) Negative() Signed {
	out := NewSigned()
	for g, q := range b.c.q {
		if q < 0 {
			out.c.q[g] = q
		}
	}
	return out
}

// Zeros returns the subset of goods with quantity exactly 0.
func (b Signed) Zeros() Signed {
	out := NewSigned()
	for g, q := range b.c.q {
		if q == 0 {
			out.c.q[g] = q
		}
	}
	return out
}

// NonNeg refines Signed: every operation of Signed is available, but a
// write that would produce a negative value fails (spec §3).
type NonNeg struct {
	Signed
}

// NewNonNeg constructs an empty NonNeg bundle.
func NewNonNeg() NonNeg {
	return NonNeg{Signed: Signed{c: newCore(true)}}
}

// NonNegOf constructs a NonNeg bundle from an initial map; it fails with
// NegativityError (and constructs nothing further) on the first negative
// entry encountered during iteration.
func NonNegOf(init map[Good]float64) (NonNeg, error) {
	b := NewNonNeg()
	for g, q := range init {
		if err := b.Set(g, q); err != nil {
			return NonNeg{}, err
		}
	}
	return b, nil
}

// AsNonNeg wraps b as a NonNeg handle over the same underlying core if b is
// in fact non-negative-tagged, for example to recover NonNeg-only methods
// (Covers, Coverage, Multiples, CoverageExcess) from an Add/Sub result.
func AsNonNeg(b Bundle) (NonNeg, bool) {
	if !b.IsNonNeg() {
		return NonNeg{}, false
	}
	return NonNeg{Signed: Signed{c: b.core()}}, true
}

func union(a, b Bundle) []Good {
	seen := make(map[Good]struct{})
	for _, g := range a.Goods() {
		seen[g] = struct{}{}
	}
	for _, g := range b.Goods() {
		seen[g] = struct{}{}
	}
	out := make([]Good, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// intersect returns the ids present in both a and b, ascending.
func intersect(a, b Bundle) []Good {
	inB := make(map[Good]struct{})
	for _, g := range b.Goods() {
		inB[g] = struct{}{}
	}
	out := make([]Good, 0, len(a.Goods()))
	for _, g := range a.Goods() {
		if _, ok := inB[g]; ok {
			out = append(out, g)
		}
	}
	return out
}
