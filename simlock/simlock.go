// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package simlock implements component B: a composable shared/exclusive
// lock over a set of Members, with deadlock-free acquisition, read<->write
// conversion, membership add/remove, and transfer (spec §4.B).
//
// The deadlock-freedom algorithm never holds one member's underlying
// reader/writer mutex while blocking to acquire another's: it attempts a
// try-lock of every member in a fixed (ascending ID) order, and on the
// first failure releases everything it already holds before blocking on
// just the member that failed.
package simlock

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/erisproject/ersim/internal/errs"
	"github.com/erisproject/ersim/member"
)

// Mode is the lock's sharing discipline.
type Mode uint8

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "Exclusive"
	}
	return "Shared"
}

// MismatchError is returned by Transfer when the two locks' mode or state
// differ.
type MismatchError struct {
	Op string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("simlock: %s: mode/state mismatch", e.Op)
}
func (e *MismatchError) Unwrap() error { return errs.ErrLockMismatch }

// InvalidStateError is returned by Lock on an already-held lock, or Unlock
// on an already-released lock.
type InvalidStateError struct {
	Op string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("simlock: %s: invalid state", e.Op)
}
func (e *InvalidStateError) Unwrap() error { return errs.ErrLockInvalidState }

// NotFoundError is returned by Remove for a member not present in the lock.
type NotFoundError struct {
	ID member.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("simlock: member %d not present in lock", e.ID)
}
func (e *NotFoundError) Unwrap() error { return errs.ErrNotFound }

// Lock is a set-valued lock over a subset of Members, in one of two modes
// and one of two states. The zero value is not usable; construct with New.
type Lock struct {
	seq     uint64     // process-unique creation order, for Transfer's lock ordering
	mu      sync.Mutex // protects the bookkeeping below, not the members' own locks
	members map[member.ID]member.Member
	mode    Mode
	held    bool
	fake    bool
}

var lockSeq atomic.Uint64

// New constructs an unheld lock over members in the given mode. If fake is
// true (the simulation runs with maxThreads == 0), every operation below is
// a no-op that still tracks mode/state, per spec §4.B's isFake flavour.
func New(mode Mode, fake bool, members ...member.Member) *Lock {
	l := &Lock{
		seq:     lockSeq.Add(1),
		members: make(map[member.ID]member.Member, len(members)),
		mode:    mode,
		fake:    fake,
	}
	for _, m := range members {
		l.members[m.ID()] = m
	}
	return l
}

// IsFake reports whether this lock carries no real members and performs
// only bookkeeping (single-threaded simulation mode).
func (l *Lock) IsFake() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fake
}

// Mode returns the current mode.
func (l *Lock) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Held reports whether the lock is currently held.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Members returns a snapshot slice of the members currently in the lock's
// set, in ascending-ID order.
func (l *Lock) Members() []member.Member {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedMembersLocked()
}

func (l *Lock) sortedMembersLocked() []member.Member {
	out := make([]member.Member, 0, len(l.members))
	for _, m := range l.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func tryAcquire(m member.Member, mode Mode) bool {
	if mode == Exclusive {
		return m.RWMutex().TryLock()
	}
	return m.RWMutex().TryRLock()
}

func release(m member.Member, mode Mode) {
	if mode == Exclusive {
		m.RWMutex().Unlock()
	} else {
		m.RWMutex().RUnlock()
	}
}

func blockThenRelease(m member.Member, mode Mode) {
	if mode == Exclusive {
		m.RWMutex().Lock()
		m.RWMutex().Unlock()
	} else {
		m.RWMutex().RLock()
		m.RWMutex().RUnlock()
	}
}

// acquireAll runs the deadlock-free try/backoff loop of spec §4.B over
// members, in mode. It never returns until every member is held in mode.
func acquireAll(members []member.Member, mode Mode) {
	for {
		acquired := make([]member.Member, 0, len(members))
		failedAt := -1
		for i, m := range members {
			if tryAcquire(m, mode) {
				acquired = append(acquired, m)
			} else {
				failedAt = i
				break
			}
		}
		if failedAt == -1 {
			return
		}
		for _, m := range acquired {
			release(m, mode)
		}
		blockThenRelease(members[failedAt], mode)
	}
}

// tryAcquireAll attempts a single non-blocking pass; on any failure it
// releases everything acquired so far and reports false.
func tryAcquireAll(members []member.Member, mode Mode) bool {
	acquired := make([]member.Member, 0, len(members))
	for _, m := range members {
		if tryAcquire(m, mode) {
			acquired = append(acquired, m)
		} else {
			for _, a := range acquired {
				release(a, mode)
			}
			return false
		}
	}
	return true
}

func releaseAll(members []member.Member, mode Mode) {
	for _, m := range members {
		release(m, mode)
	}
}

// Lock acquires the lock's member set in its current mode, blocking as
// necessary. It fails with InvalidStateError if already held.
func (l *Lock) Lock() error {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return &InvalidStateError{Op: "lock"}
	}
	mode := l.mode
	members := l.sortedMembersLocked()
	fake := l.fake
	l.mu.Unlock()

	if !fake {
		acquireAll(members, mode)
	}

	l.mu.Lock()
	l.held = true
	l.mu.Unlock()
	return nil
}

// TryLock attempts to acquire without blocking.
func (l *Lock) TryLock() (bool, error) {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return false, &InvalidStateError{Op: "trylock"}
	}
	mode := l.mode
	members := l.sortedMembersLocked()
	fake := l.fake
	l.mu.Unlock()

	if !fake && !tryAcquireAll(members, mode) {
		return false, nil
	}

	l.mu.Lock()
	l.held = true
	l.mu.Unlock()
	return true, nil
}

// Unlock releases the lock. It fails with InvalidStateError if not held.
func (l *Lock) Unlock() error {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return &InvalidStateError{Op: "unlock"}
	}
	mode := l.mode
	members := l.sortedMembersLocked()
	fake := l.fake
	l.held = false
	l.mu.Unlock()

	if !fake {
		releaseAll(members, mode)
	}
	return nil
}

// Read switches the lock to Shared mode, atomically releasing and
// reacquiring if currently held. If try is true, a failed reacquire leaves
// the lock released and reports ok=false rather than blocking.
func (l *Lock) Read(try bool) (ok bool, err error) {
	return l.switchMode(Shared, try)
}

// Write switches the lock to Exclusive mode, atomically releasing and
// reacquiring if currently held.
func (l *Lock) Write(try bool) (ok bool, err error) {
	return l.switchMode(Exclusive, try)
}

func (l *Lock) switchMode(mode Mode, try bool) (bool, error) {
	l.mu.Lock()
	wasHeld := l.held
	members := l.sortedMembersLocked()
	oldMode := l.mode
	fake := l.fake
	if wasHeld && !fake {
		releaseAll(members, oldMode)
		l.held = false
	}
	l.mode = mode
	l.mu.Unlock()

	if !wasHeld {
		return true, nil
	}
	if fake {
		l.mu.Lock()
		l.held = true
		l.mu.Unlock()
		return true, nil
	}
	if try {
		if !tryAcquireAll(members, mode) {
			return false, nil
		}
	} else {
		acquireAll(members, mode)
	}
	l.mu.Lock()
	l.held = true
	l.mu.Unlock()
	return true, nil
}

// Add extends the member set with new members, acquiring them (blocking as
// necessary) in the lock's current mode if the lock is currently held.
func (l *Lock) Add(members ...member.Member) error {
	return l.add(members, false)
}

// TryAdd extends the member set without blocking; on failure to acquire any
// new member, the set is left unchanged.
func (l *Lock) TryAdd(members ...member.Member) (bool, error) {
	if err := l.add(members, true); err != nil {
		if _, ok := err.(tryFailed); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type tryFailed struct{}

func (tryFailed) Error() string { return "simlock: try-add failed" }

func (l *Lock) add(newMembers []member.Member, try bool) error {
	l.mu.Lock()
	mode := l.mode
	held := l.held
	fake := l.fake
	fresh := make([]member.Member, 0, len(newMembers))
	for _, m := range newMembers {
		if _, exists := l.members[m.ID()]; !exists {
			fresh = append(fresh, m)
		}
	}
	l.mu.Unlock()

	if held && !fake {
		sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID() < fresh[j].ID() })
		if try {
			if !tryAcquireAll(fresh, mode) {
				return tryFailed{}
			}
		} else {
			acquireAll(fresh, mode)
		}
	}

	l.mu.Lock()
	for _, m := range fresh {
		l.members[m.ID()] = m
	}
	l.mu.Unlock()
	return nil
}

// Remove shrinks the member set, transferring the removed members into a
// new Lock (same mode and held-state) returned to the caller; held members
// stay locked, now by that Lock. Fails with NotFoundError if any member is
// not present.
func (l *Lock) Remove(members ...member.Member) (*Lock, error) {
	l.mu.Lock()
	for _, m := range members {
		if _, ok := l.members[m.ID()]; !ok {
			l.mu.Unlock()
			return nil, &NotFoundError{ID: m.ID()}
		}
	}
	for _, m := range members {
		delete(l.members, m.ID())
	}
	mode := l.mode
	held := l.held
	fake := l.fake
	l.mu.Unlock()

	out := &Lock{
		seq:     lockSeq.Add(1),
		members: make(map[member.ID]member.Member, len(members)),
		mode:    mode,
		held:    held,
		fake:    fake,
	}
	for _, m := range members {
		out.members[m.ID()] = m
	}
	return out, nil
}

// Transfer moves other's members into l. Both locks must share mode and
// held-state; other is left empty. Fails with MismatchError otherwise.
//
// The two locks' own bookkeeping mutexes are acquired in ascending
// creation-order (l.seq), never in call-argument order, so that concurrent
// a.Transfer(b) and b.Transfer(a) calls can't deadlock each other the way
// acquiring l.mu then other.mu unconditionally would.
func (l *Lock) Transfer(other *Lock) error {
	if l == other {
		return &MismatchError{Op: "transfer"}
	}
	first, second := l, other
	if second.seq < first.seq {
		first, second = second, first
	}
	first.mu.Lock()
	second.mu.Lock()
	if l.mode != other.mode || l.held != other.held {
		second.mu.Unlock()
		first.mu.Unlock()
		return &MismatchError{Op: "transfer"}
	}
	for id, m := range other.members {
		l.members[id] = m
	}
	other.members = make(map[member.ID]member.Member)
	second.mu.Unlock()
	first.mu.Unlock()
	return nil
}

// Guard is returned by Supplement; calling Release removes the supplemented
// members added by that call.
type Guard struct {
	lock    *Lock
	members []member.Member
}

// Release removes the members this guard added, unlocking them if held.
func (g *Guard) Release() error {
	if g == nil || len(g.members) == 0 {
		return nil
	}
	removed, err := g.lock.Remove(g.members...)
	if err != nil {
		return err
	}
	if removed.Held() {
		return removed.Unlock()
	}
	return nil
}

// Supplement is a scope-based Add: it extends the lock's set and returns a
// Guard that, on Release, removes exactly the members this call added.
func (l *Lock) Supplement(members ...member.Member) (*Guard, error) {
	l.mu.Lock()
	added := make([]member.Member, 0, len(members))
	for _, m := range members {
		if _, exists := l.members[m.ID()]; !exists {
			added = append(added, m)
		}
	}
	l.mu.Unlock()
	if err := l.Add(added...); err != nil {
		return nil, err
	}
	return &Guard{lock: l, members: added}, nil
}
