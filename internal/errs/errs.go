// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs collects the sentinel error kinds shared across ersim's
// packages (spec §7) and a small aggregator for reporting several
// independent failures from one operation.
package errs

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Sentinel error kinds from spec §7. Packages that need to carry extra data
// (the offending good id, a lock's members, ...) define their own typed
// error alongside one of these via errors.Is/As, never in place of it.
var (
	ErrNoTransaction    = errors.New("ersim: no open transaction")
	ErrInvalidCast      = errors.New("ersim: invalid handle cast")
	ErrNotFound         = errors.New("ersim: not found")
	ErrNoSimulation     = errors.New("ersim: member has no simulation")
	ErrLockMismatch     = errors.New("ersim: lock mismatch")
	ErrLockInvalidState = errors.New("ersim: lock in invalid state")
	ErrInvalidState     = errors.New("ersim: invalid state")
	ErrDrawFailure      = errors.New("ersim: draw failure")
	ErrConstraintFailure = errors.New("ersim: constraint failure")
	ErrDomain           = errors.New("ersim: domain error")
)

// Errs aggregates zero or more independent errors, grounded on the teacher's
// utils/wrappers.Errs: it collects multiple failures and reports them as one
// error without losing any. No other package in this module uses it.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

// Add records err, ignoring nil.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been added.
func (e *Errs) Errored() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs) > 0
}

// Err returns nil, the sole error, or a combined error, in that order.
func (e *Errs) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		var b strings.Builder
		for i, err := range e.errs {
			if i > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%v", err)
		}
		return errors.New(b.String())
	}
}
