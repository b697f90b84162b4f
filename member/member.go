// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package member implements component A of the simulation kernel: process-
// unique member identity and the Base type concrete members embed to get a
// stable ID, a fixed classification, a per-member reader/writer lock, and a
// weak back-reference to the owning simulation.
package member

import (
	"sync"
	"sync/atomic"
)

// ID is a process-unique, monotonically increasing member identifier. IDs
// are never reused, even after a member is removed.
type ID uint64

var idCounter atomic.Uint64

// NextID returns the next process-unique ID. Safe for concurrent use.
func NextID() ID {
	return ID(idCounter.Add(1))
}

// Classification is the fixed, lifetime-long category of a Member; it
// determines which typed container of the Registry holds the member.
type Classification uint8

const (
	Agent Classification = iota
	Good
	Market
	Other
)

func (c Classification) String() string {
	switch c {
	case Agent:
		return "Agent"
	case Good:
		return "Good"
	case Market:
		return "Market"
	case Other:
		return "Other"
	default:
		return "Unknown"
	}
}

// Simulation is the minimal surface a Member needs from its owning
// simulation. It is declared here, at the consumer side, rather than
// imported from package simulation, to avoid an import cycle: package
// simulation depends on package member, not the reverse. This mirrors the
// teacher's separate *runtime.Runtime wiring struct threaded through VMs
// instead of a direct type dependency (runtime/runtime.go).
type Simulation interface {
	// T returns the current period number.
	T() uint64
	// MaxThreads returns the configured worker pool size (0 == single
	// threaded / fake-lock mode).
	MaxThreads() int
	// RegisterDependency and RegisterWeakDependency record a strong or
	// weak dependency edge `dependent depends on target`.
	RegisterDependency(dependent, target ID)
	RegisterWeakDependency(dependent, target ID)
	// Subscribe records m's participation in stage at priority, overriding
	// the default-priority auto-subscription performed at insertion time.
	// Typically called from a Member's Added() hook (spec §4.F, §6).
	Subscribe(m Member, stage Stage, priority float64)
}

// Member is implemented by every entity the Registry can hold. Concrete
// members embed Base to satisfy it; Base supplies identity, classification,
// the per-member lock, and the weak simulation back-reference.
type Member interface {
	ID() ID
	Classification() Classification
	Simulation() (Simulation, bool)
	AttachSimulation(sim Simulation)
	DetachSimulation()
	RWMutex() *sync.RWMutex
}

// Base is embedded by concrete Agent/Good/Market/Other implementations. It
// is not itself useful as a Member: a concrete type embedding Base and
// setting its classification via NewBase is required.
type Base struct {
	id    ID
	class Classification
	mu    sync.RWMutex
	simMu sync.Mutex
	sim   Simulation
}

// NewBase constructs a Base with a fresh process-unique ID and the given
// fixed classification.
func NewBase(class Classification) Base {
	return Base{id: NextID(), class: class}
}

func (b *Base) ID() ID                      { return b.id }
func (b *Base) Classification() Classification { return b.class }
func (b *Base) RWMutex() *sync.RWMutex      { return &b.mu }

// Simulation resolves the weak back-reference, returning ok=false once the
// member has been removed (or was never inserted).
func (b *Base) Simulation() (Simulation, bool) {
	b.simMu.Lock()
	defer b.simMu.Unlock()
	if b.sim == nil {
		return nil, false
	}
	return b.sim, true
}

// AttachSimulation sets the back-reference; called by the Simulation right
// after container insertion (spec §4.D).
func (b *Base) AttachSimulation(sim Simulation) {
	b.simMu.Lock()
	defer b.simMu.Unlock()
	b.sim = sim
}

// DetachSimulation clears the back-reference; called by the Simulation after
// a member is removed, though its id() and (briefly, during removed())
// simulation() must still resolve beforehand -- the Simulation clears this
// only after invoking the removed() hook (spec §4.D, §4.G).
func (b *Base) DetachSimulation() {
	b.simMu.Lock()
	defer b.simMu.Unlock()
	b.sim = nil
}
