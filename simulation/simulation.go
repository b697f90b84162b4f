// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package simulation wires together the registry, dependency graph,
// scheduler, and per-member lock into the single facade collaborators
// program against: component G plus the public interface of spec §6.
package simulation

import (
	"context"
	"sync/atomic"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/erisproject/ersim/depgraph"
	"github.com/erisproject/ersim/member"
	"github.com/erisproject/ersim/registry"
	"github.com/erisproject/ersim/scheduler"
	"github.com/erisproject/ersim/simlock"
)

// Config configures a Simulation (spec_full §3 functional options,
// grounded on the teacher's options-struct-plus-Option-func convention).
type Config struct {
	MaxThreads        int
	Logger            log.Logger
	Registerer        prometheus.Registerer
	MaxIntraopRounds  int
}

// Option configures a Simulation at construction time.
type Option func(*Config)

// WithMaxThreads sets the worker pool ceiling. 0 (default) means
// single-threaded / fake-lock mode.
func WithMaxThreads(n int) Option { return func(c *Config) { c.MaxThreads = n } }

// WithLogger installs a structured logger. The Simulation stores it and
// passes it to its scheduler; neither writes log records through it.
func WithLogger(l log.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithMetricsRegisterer installs a prometheus registry for the scheduler's
// instrumentation (the registry has none). Pass nil (the default) to
// disable metrics.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(c *Config) { c.Registerer = r }
}

// WithMaxIntraopRounds bounds the number of intra-period loop iterations
// (spec_full supplemented safety valve; 0, the default, means unbounded,
// matching the bare spec's loop-until-no-redo semantics).
func WithMaxIntraopRounds(n int) Option { return func(c *Config) { c.MaxIntraopRounds = n } }

// Simulation is the concrete, non-economic kernel a model's agents, goods,
// and markets are built on top of (spec §1, §4.G). It implements
// member.Simulation so Members can hold it as their weak back-reference.
type Simulation struct {
	log     log.Logger
	reg     *registry.Registry
	graph   *depgraph.Graph
	sched   *scheduler.Scheduler
	t       atomic.Uint64
	maxOpt  int
	running atomic.Bool
}

var _ member.Simulation = (*Simulation)(nil)
var _ scheduler.Hooks = (*Simulation)(nil)

// New constructs an empty Simulation.
func New(opts ...Option) *Simulation {
	cfg := Config{Logger: log.NewNoOpLogger()}
	for _, o := range opts {
		o(&cfg)
	}
	var metrics *scheduler.Metrics
	if cfg.Registerer != nil {
		metrics = scheduler.NewMetrics(cfg.Registerer)
	}
	return &Simulation{
		log:    cfg.Logger,
		reg:    registry.New(),
		graph:  depgraph.New(),
		sched:  scheduler.New(scheduler.WithMaxThreads(cfg.MaxThreads), scheduler.WithLogger(cfg.Logger), scheduler.WithMetrics(metrics)),
		maxOpt: cfg.MaxIntraopRounds,
	}
}

// T returns the current period number; 0 before the first Run.
func (s *Simulation) T() uint64 { return s.t.Load() }

// MaxThreads returns the configured worker pool ceiling.
func (s *Simulation) MaxThreads() int { return s.sched.MaxThreads() }

// RegisterDependency records `dependent depends on target` (strong).
func (s *Simulation) RegisterDependency(dependent, target member.ID) {
	s.graph.AddDependency(dependent, target)
}

// RegisterWeakDependency records `dependent depends weakly on target`.
func (s *Simulation) RegisterWeakDependency(dependent, target member.ID) {
	s.graph.AddWeakDependency(dependent, target)
}

// Subscribe records m's participation in stage at priority.
func (s *Simulation) Subscribe(m member.Member, stage member.Stage, priority float64) {
	s.sched.Subscribe(stage, m, priority)
}

// Insert installs m: registry insertion, simulation attach, capability
// auto-subscription at priority 0, then the Added() hook — which may call
// Subscribe again to override priority, or RegisterDependency (spec §4.D,
// §4.G). If called while a priority bucket is draining, the insertion is
// deferred to the end of that bucket (spec §4.F).
func (s *Simulation) Insert(m member.Member) {
	s.sched.DeferInsert(s, m)
}

// ApplyInsert performs the insertion described by Insert immediately,
// bypassing the deferred-op queue. It implements scheduler.Hooks and is
// also what DeferInsert calls once no bucket is active.
func (s *Simulation) ApplyInsert(m member.Member) {
	s.reg.Insert(m)
	m.AttachSimulation(s)
	for stage := range member.Capabilities(m) {
		s.sched.Subscribe(stage, m, 0)
	}
	if h, ok := m.(member.AddedHook); ok {
		h.Added()
	}
}

// Remove triggers the cascading removal (spec §4.D) of id, deferred to the
// end of the current priority bucket if one is draining.
func (s *Simulation) Remove(id member.ID) {
	s.sched.DeferRemove(s, id)
}

// ApplyRemove performs the full cascading removal of id immediately. It
// implements scheduler.Hooks and is also what DeferRemove calls once no
// bucket is active.
func (s *Simulation) ApplyRemove(id member.ID) {
	plan := s.graph.Plan(id)
	for _, rid := range plan.RemovalOrder {
		s.removeOne(rid)
	}
	for _, rid := range plan.RemovalOrder {
		for _, weakID := range plan.WeakNotify[rid] {
			if w, err := s.lookupAny(weakID); err == nil {
				if h, ok := w.(member.WeakDepRemovedHook); ok {
					h.WeakDepRemoved(rid)
				}
			}
		}
		s.graph.Forget(rid)
	}
}

func (s *Simulation) removeOne(id member.ID) {
	m, err := s.lookupAny(id)
	if err != nil {
		return
	}
	s.reg.Delete(m.Classification(), id)
	s.sched.Unsubscribe(id)
	if h, ok := m.(member.RemovedHook); ok {
		h.Removed()
	}
	m.DetachSimulation()
}

// lookupAny finds a member by id across all four classifications.
func (s *Simulation) lookupAny(id member.ID) (member.Member, error) {
	for class := member.Agent; int(class) < 4; class++ {
		if m, err := s.reg.Get(class, id); err == nil {
			return m, nil
		}
	}
	return nil, &registry.NotFoundError{ID: id}
}

// Lookup resolves id within class and downcasts it to T (spec §6 typed
// lookup `simulation().agent<T>(id)` and its good/market/other siblings).
func Lookup[T member.Member](s *Simulation, class member.Classification, id member.ID) (T, error) {
	return registry.Lookup[T](s.reg, class, id)
}

// Filter returns every live member of class whose dynamic type is T and
// which satisfies predicate, if non-nil (spec §6 filtered enumeration).
func Filter[T member.Member](s *Simulation, class member.Classification, predicate func(T) bool) []T {
	return registry.Filter[T](s.reg, class, predicate)
}

// Count returns the cached-count shortcut of spec §6 `countX<T>`.
func Count[T member.Member](s *Simulation, class member.Classification, predicate func(T) bool) int {
	return registry.Count[T](s.reg, class, predicate)
}

// StrongDependents and WeakDependents expose the dependency graph's direct
// edges for introspection (spec_full §5.7).
func (s *Simulation) StrongDependents(id member.ID) []member.ID { return s.graph.StrongDependents(id) }
func (s *Simulation) WeakDependents(id member.ID) []member.ID   { return s.graph.WeakDependents(id) }

// NewLock constructs a simlock.Lock over members in the given mode,
// automatically falling back to a fake (no-op) lock when running single-
// threaded (spec §4.B "isFake").
func (s *Simulation) NewLock(mode simlock.Mode, members ...member.Member) *simlock.Lock {
	return simlock.New(mode, s.MaxThreads() == 0, members...)
}

// RunLockShared / RunLockTryShared let external observers see a consistent
// snapshot outside of Run (spec §4.F).
func (s *Simulation) RunLockShared() func()                    { return s.sched.RunLockShared() }
func (s *Simulation) RunLockTryShared() (func(), bool)          { return s.sched.RunLockTryShared() }

// Run executes exactly one period: increments T, then delegates the full
// inter/intra stage machine to the scheduler under the exclusive runLock
// (spec §4.F). maxThreads may not be changed while Run is executing.
func (s *Simulation) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)
	s.t.Add(1)
	return s.sched.Run(ctx, s, s.maxOpt)
}
