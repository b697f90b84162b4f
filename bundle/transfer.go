// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import "math"

// Transfer moves the positive part of delta from a to to, and the negative
// part of delta from to to a, with per-good rounding (spec §4.C). It is
// atomic: on failure neither a nor to is mutated. The actual amount
// transferred (which may differ from delta by up to the rounding snap) is
// returned, with zeros cleared from a, to, and the returned amount.
func Transfer(a Signed, delta Bundle, to Signed, epsilon float64) (Signed, error) {
	a.Begin(false)
	to.Begin(false)

	actual, err := applyTransfer(a, delta, to, epsilon)
	if err != nil {
		_ = a.Abort()
		_ = to.Abort()
		return Signed{}, err
	}
	if err := a.Commit(); err != nil {
		_ = to.Abort()
		return Signed{}, err
	}
	if err := to.Commit(); err != nil {
		return Signed{}, err
	}
	a.ClearZeros()
	to.ClearZeros()
	actual.ClearZeros()
	return actual, nil
}

// TransferOut is the single-Bundle variant: it removes and returns delta
// from a, with the same rounding behaviour as Transfer, but does not credit
// any destination.
func TransferOut(a Signed, delta Bundle, epsilon float64) (Signed, error) {
	a.Begin(false)

	actual := NewSigned()
	for _, g := range delta.Goods() {
		amount := delta.Get(g)
		before := a.Get(g)
		after := before - amount
		snapped := snap(before, after, epsilon)
		if a.c.nonNeg && snapped < 0 {
			_ = a.Abort()
			return Signed{}, &NegativityError{Good: g, Quantity: snapped}
		}
		actual.c.q[g] = before - snapped
		a.c.q[g] = snapped
	}
	if err := a.Commit(); err != nil {
		return Signed{}, err
	}
	a.ClearZeros()
	actual.ClearZeros()
	return actual, nil
}

// snap implements the per-good rounding rule of spec §4.C step 2: if the
// post-transfer quantity would be within epsilon (relative to the
// pre-transfer quantity) of zero, snap it to exactly zero.
func snap(before, after, epsilon float64) float64 {
	if math.Abs(after) <= epsilon*math.Abs(before) {
		return 0
	}
	return after
}

func applyTransfer(a Signed, delta Bundle, to Signed, epsilon float64) (Signed, error) {
	actual := NewSigned()
	for _, g := range delta.Goods() {
		amount := delta.Get(g)
		if amount == 0 {
			continue
		}
		srcBefore := a.Get(g)
		dstBefore := to.Get(g)

		srcAfter := srcBefore - amount
		dstAfter := dstBefore + amount

		srcSnap := snap(srcBefore, srcAfter, epsilon)
		if srcSnap == 0 && srcAfter != 0 {
			// Snapped to zero: the full source quantity was transferred.
			actualAmt := srcBefore - srcSnap
			dstAfter = dstBefore + actualAmt
			if dstSnap := snap(dstBefore, dstAfter, epsilon); dstSnap == 0 && dstAfter != 0 {
				dstAfter = 0
			}
			if to.c.nonNeg && dstAfter < 0 {
				return Signed{}, &NegativityError{Good: g, Quantity: dstAfter}
			}
			if a.c.nonNeg && srcSnap < 0 {
				return Signed{}, &NegativityError{Good: g, Quantity: srcSnap}
			}
			actual.c.q[g] = actualAmt
			a.c.q[g] = srcSnap
			to.c.q[g] = dstAfter
			continue
		}

		// Source did not snap to zero; check whether the destination
		// should instead snap to zero (only possible when the
		// destination is Signed and was negative, per spec §4.C step 2).
		dstSnap := snap(dstBefore, dstAfter, epsilon)
		if dstSnap == 0 && dstAfter != 0 {
			actualAmt := dstSnap - dstBefore
			srcAfter = srcBefore - actualAmt
			if a.c.nonNeg && srcAfter < 0 {
				return Signed{}, &NegativityError{Good: g, Quantity: srcAfter}
			}
			actual.c.q[g] = actualAmt
			a.c.q[g] = srcAfter
			to.c.q[g] = dstSnap
			continue
		}

		if a.c.nonNeg && srcAfter < 0 {
			return Signed{}, &NegativityError{Good: g, Quantity: srcAfter}
		}
		if to.c.nonNeg && dstAfter < 0 {
			return Signed{}, &NegativityError{Good: g, Quantity: dstAfter}
		}
		actual.c.q[g] = amount
		a.c.q[g] = srcAfter
		to.c.q[g] = dstAfter
	}
	return actual, nil
}
