// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

// StackDepth returns the transaction stack depth; 1 means no open
// transaction (spec §4.C invariant).
func (a Signed) StackDepth() int {
	return 1 + len(a.c.frames)
}

// InTransaction reports whether any transaction is currently open.
func (a Signed) InTransaction() bool {
	return len(a.c.frames) > 0
}

// Begin pushes a new frame copying the current state. If encompassing is
// true, it instead pushes an encompassing sentinel, which only
// EndEncompassing closes. While any encompassing scope remains open, every
// other Begin becomes a no-op pass-through that still must be matched by a
// Commit or Abort (spec §4.C).
func (a Signed) Begin(encompassing bool) {
	if encompassing {
		a.c.frames = append(a.c.frames, txFrame{sentinel: true})
		a.c.sentinelCount++
		return
	}
	if a.c.sentinelCount > 0 {
		a.c.frames = append(a.c.frames, txFrame{passthrough: true})
		return
	}
	a.c.frames = append(a.c.frames, txFrame{snapshot: cloneMap(a.c.q)})
}

// BeginEncompassing starts an encompassing scope: a fake transaction making
// every subsequent begin/commit/abort pair, until EndEncompassing, a no-op.
func (a Signed) BeginEncompassing() {
	a.Begin(true)
}

// Commit pops the top frame, propagating its mutations into the previous
// frame (i.e. simply keeping the current state, which already reflects
// them). Fails with NoTransactionError if no transaction is open, or if the
// top frame is an encompassing sentinel (close those with EndEncompassing).
func (a Signed) Commit() error {
	if len(a.c.frames) == 0 {
		return &NoTransactionError{Op: "commit"}
	}
	top := a.c.frames[len(a.c.frames)-1]
	if top.sentinel {
		return &NoTransactionError{Op: "commit"}
	}
	a.c.frames = a.c.frames[:len(a.c.frames)-1]
	return nil
}

// Abort pops the top frame, discarding mutations made since the matching
// Begin by restoring the pre-begin snapshot. A pass-through frame (pushed
// while an encompassing scope is open) restores nothing. Fails with
// NoTransactionError symmetrically to Commit.
func (a Signed) Abort() error {
	if len(a.c.frames) == 0 {
		return &NoTransactionError{Op: "abort"}
	}
	top := a.c.frames[len(a.c.frames)-1]
	if top.sentinel {
		return &NoTransactionError{Op: "abort"}
	}
	a.c.frames = a.c.frames[:len(a.c.frames)-1]
	if !top.passthrough {
		a.c.q = top.snapshot
	}
	return nil
}

// EndEncompassing closes the most recently opened encompassing scope.
// Fails with NoTransactionError if there is no open transaction, or if the
// top frame is not the encompassing sentinel (i.e. a nested begin pushed
// after it remains unmatched).
func (a Signed) EndEncompassing() error {
	if len(a.c.frames) == 0 {
		return &NoTransactionError{Op: "endEncompassing"}
	}
	top := a.c.frames[len(a.c.frames)-1]
	if !top.sentinel {
		return &NoTransactionError{Op: "endEncompassing"}
	}
	a.c.frames = a.c.frames[:len(a.c.frames)-1]
	a.c.sentinelCount--
	return nil
}
