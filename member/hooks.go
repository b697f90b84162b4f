// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package member

// Stage identifies one of the ten named points in the per-period schedule
// (spec §4.F) at which subscribed members may act.
type Stage uint8

const (
	InterBegin Stage = iota
	InterOptimize
	InterApply
	InterAdvance
	IntraInitialize
	IntraReset
	IntraOptimize
	IntraReoptimize
	IntraApply
	IntraFinish
	numStages
)

// NumStages is the fixed count of scheduler stages.
const NumStages = int(numStages)

func (s Stage) String() string {
	switch s {
	case InterBegin:
		return "InterBegin"
	case InterOptimize:
		return "InterOptimize"
	case InterApply:
		return "InterApply"
	case InterAdvance:
		return "InterAdvance"
	case IntraInitialize:
		return "IntraInitialize"
	case IntraReset:
		return "IntraReset"
	case IntraOptimize:
		return "IntraOptimize"
	case IntraReoptimize:
		return "IntraReoptimize"
	case IntraApply:
		return "IntraApply"
	case IntraFinish:
		return "IntraFinish"
	default:
		return "Unknown"
	}
}

// Capability interfaces a Member may optionally implement. The scheduler
// discovers which of these a freshly-inserted member satisfies and
// subscribes it only to the matching stages (spec §4.F, §6, §9 "Virtual
// hook dispatch" design note: Go's interface satisfaction stands in for the
// sum-type/trait dispatch the note asks for).
type (
	InterBeginHook    interface{ InterBegin() error }
	InterOptimizeHook interface{ InterOptimize() error }
	InterApplyHook    interface{ InterApply() error }
	InterAdvanceHook  interface{ InterAdvance() error }

	IntraInitializeHook interface{ IntraInitialize() error }
	IntraResetHook      interface{ IntraReset() error }
	IntraOptimizeHook   interface{ IntraOptimize() error }
	// IntraReoptimizeHook's bool return means "schedule another intra
	// loop"; results from every member implementing it in the stage are
	// OR-ed together (spec §6).
	IntraReoptimizeHook interface {
		IntraReoptimize() (bool, error)
	}
	IntraApplyHook interface{ IntraApply() error }
	IntraFinishHook interface{ IntraFinish() error }
)

// Lifecycle hooks (spec §4.G). All default to no-op: a Member simply does
// not implement the interface it has no use for.
type (
	// AddedHook is called once, right after classification-container
	// insertion. Typical use: register dependencies, subscribe to stages.
	AddedHook interface{ Added() }
	// RemovedHook is called once, right after container removal; ID() and
	// Simulation() still resolve during the call.
	RemovedHook interface{ Removed() }
	// WeakDepRemovedHook is called on each weak dependent of a just-removed
	// member, after that member's Removed() and after the strong cascade.
	WeakDepRemovedHook interface {
		WeakDepRemoved(removedID ID)
	}
)

// Capabilities reports, for a given Member, the set of hook interfaces it
// implements, keyed by Stage. A Stage absent from the result means the
// member is not subscribed to it.
func Capabilities(m Member) map[Stage]struct{} {
	caps := make(map[Stage]struct{}, NumStages)
	if _, ok := m.(InterBeginHook); ok {
		caps[InterBegin] = struct{}{}
	}
	if _, ok := m.(InterOptimizeHook); ok {
		caps[InterOptimize] = struct{}{}
	}
	if _, ok := m.(InterApplyHook); ok {
		caps[InterApply] = struct{}{}
	}
	if _, ok := m.(InterAdvanceHook); ok {
		caps[InterAdvance] = struct{}{}
	}
	if _, ok := m.(IntraInitializeHook); ok {
		caps[IntraInitialize] = struct{}{}
	}
	if _, ok := m.(IntraResetHook); ok {
		caps[IntraReset] = struct{}{}
	}
	if _, ok := m.(IntraOptimizeHook); ok {
		caps[IntraOptimize] = struct{}{}
	}
	if _, ok := m.(IntraReoptimizeHook); ok {
		caps[IntraReoptimize] = struct{}{}
	}
	if _, ok := m.(IntraApplyHook); ok {
		caps[IntraApply] = struct{}{}
	}
	if _, ok := m.(IntraFinishHook); ok {
		caps[IntraFinish] = struct{}{}
	}
	return caps
}

// InvokeStage runs m's hook for stage s, if implemented. redo is only
// meaningful for IntraReoptimize.
func InvokeStage(m Member, s Stage) (redo bool, err error) {
	switch s {
	case InterBegin:
		if h, ok := m.(InterBeginHook); ok {
			err = h.InterBegin()
		}
	case InterOptimize:
		if h, ok := m.(InterOptimizeHook); ok {
			err = h.InterOptimize()
		}
	case InterApply:
		if h, ok := m.(InterApplyHook); ok {
			err = h.InterApply()
		}
	case InterAdvance:
		if h, ok := m.(InterAdvanceHook); ok {
			err = h.InterAdvance()
		}
	case IntraInitialize:
		if h, ok := m.(IntraInitializeHook); ok {
			err = h.IntraInitialize()
		}
	case IntraReset:
		if h, ok := m.(IntraResetHook); ok {
			err = h.IntraReset()
		}
	case IntraOptimize:
		if h, ok := m.(IntraOptimizeHook); ok {
			err = h.IntraOptimize()
		}
	case IntraReoptimize:
		if h, ok := m.(IntraReoptimizeHook); ok {
			redo, err = h.IntraReoptimize()
		}
	case IntraApply:
		if h, ok := m.(IntraApplyHook); ok {
			err = h.IntraApply()
		}
	case IntraFinish:
		if h, ok := m.(IntraFinishHook); ok {
			err = h.IntraFinish()
		}
	}
	return redo, err
}
