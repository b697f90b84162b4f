// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package scheduler implements component F: the per-period stage machine,
// priority-bucketed worker-pool dispatch, the deferred insert/remove queue,
// and the runLock exclusive/shared gate (spec §4.F).
//
// Grounded on the teacher's context-cancellable goroutine fan-out pattern
// (engine/chain/bootstrap), rebuilt here with golang.org/x/sync/errgroup
// bounding concurrency to a per-stage worker pool instead of a hand-rolled
// condition-variable pool: errgroup.Group.SetLimit gives the same "at most N
// bucket members running concurrently" contract without a teacher-specific
// worker lifecycle to reinvent (spec_full domain stack).
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/erisproject/ersim/member"
)

// Subscription records that a member is subscribed to a stage at a given
// priority (ascending priority order, unspecified order within a bucket).
type Subscription struct {
	Priority float64
	Member   member.Member
}

// DeferredOp is a queued insertion or removal requested from inside a
// running priority bucket. Ops are applied, in call order, once the bucket
// that produced them has fully drained (spec §4.D, §4.F).
type DeferredOp struct {
	Insert member.Member // non-nil for an insert op
	Remove member.ID     // meaningful when Insert == nil
	isRem  bool
}

// Hooks is the subset of simulation-level behaviour the scheduler needs but
// does not itself own: registry mutation and stage subscription
// bookkeeping. Declared consumer-side (as
// member.Simulation is) to avoid an import cycle with package simulation.
type Hooks interface {
	// ApplyInsert installs a deferred-inserted member for real: registry
	// insertion, simulation attach, added() hook, subscription recording.
	ApplyInsert(m member.Member)
	// ApplyRemove performs the full cascading removal of id for real.
	ApplyRemove(id member.ID)
}

// Metrics holds the optional prometheus instrumentation for stage dispatch
// and bucket sizes (spec_full ambient stack, grounded on the teacher's
// metrics.Averager pattern, metrics/metrics.go).
type Metrics struct {
	StageDispatches *prometheus.CounterVec
	BucketSize      *prometheus.GaugeVec
}

// NewMetrics registers the scheduler's counters/gauges against reg. reg may
// be nil, in which case metrics calls are no-ops (teacher's nil-Registerer
// tolerance, metrics/metrics.go).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageDispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ersim",
			Subsystem: "scheduler",
			Name:      "stage_dispatches_total",
			Help:      "Number of times a stage has been run.",
		}, []string{"stage"}),
		BucketSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ersim",
			Subsystem: "scheduler",
			Name:      "bucket_size",
			Help:      "Size of the most recently dispatched priority bucket.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.StageDispatches, m.BucketSize)
	}
	return m
}

// Scheduler owns the per-stage subscription maps, the deferred-op queue,
// the runLock, and worker pool sizing.
type Scheduler struct {
	log        log.Logger
	maxThreads int
	metrics    *Metrics

	runLock sync.RWMutex // exclusive for run(), shared for external observers

	mu      sync.Mutex
	byStage [member.NumStages]map[member.ID]Subscription

	inBucket bool // true while run_stage is draining a bucket
	deferred []DeferredOp
}

// Config configures a new Scheduler (spec_full §3 functional options).
type Config struct {
	MaxThreads int
	Logger     log.Logger
	Metrics    *Metrics
}

// Option configures a Scheduler at construction time.
type Option func(*Config)

// WithMaxThreads sets the worker pool ceiling. 0 (the default) means
// single-threaded / fake-lock mode (spec §4.B, §4.F).
func WithMaxThreads(n int) Option { return func(c *Config) { c.MaxThreads = n } }

// WithLogger installs a structured logger.
func WithLogger(l log.Logger) Option { return func(c *Config) { c.Logger = l } }

// WithMetrics installs a prometheus instrumentation bundle.
func WithMetrics(m *Metrics) Option { return func(c *Config) { c.Metrics = m } }

// New constructs a Scheduler with no subscriptions.
func New(opts ...Option) *Scheduler {
	cfg := Config{Logger: log.NewNoOpLogger()}
	for _, o := range opts {
		o(&cfg)
	}
	s := &Scheduler{log: cfg.Logger, maxThreads: cfg.MaxThreads, metrics: cfg.Metrics}
	for i := range s.byStage {
		s.byStage[i] = make(map[member.ID]Subscription)
	}
	return s
}

// MaxThreads returns the configured worker pool ceiling.
func (s *Scheduler) MaxThreads() int { return s.maxThreads }

// Subscribe registers m for stage at priority. Called by a member's added()
// hook, or by the simulation on insertion for capabilities it discovers
// automatically (spec §4.F, §4.G).
func (s *Scheduler) Subscribe(stage member.Stage, m member.Member, priority float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byStage[stage][m.ID()] = Subscription{Priority: priority, Member: m}
}

// Unsubscribe removes id from every stage, typically on removal.
func (s *Scheduler) Unsubscribe(id member.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.byStage {
		delete(s.byStage[i], id)
	}
}

// DeferInsert queues m for insertion once the current priority bucket (if
// any) finishes draining. If no bucket is running, the insert is applied
// immediately via hooks.
func (s *Scheduler) DeferInsert(hooks Hooks, m member.Member) {
	s.mu.Lock()
	if s.inBucket {
		s.deferred = append(s.deferred, DeferredOp{Insert: m})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	hooks.ApplyInsert(m)
}

// DeferRemove queues id for removal once the current priority bucket (if
// any) finishes draining. If no bucket is running, the removal is applied
// immediately via hooks.
func (s *Scheduler) DeferRemove(hooks Hooks, id member.ID) {
	s.mu.Lock()
	if s.inBucket {
		s.deferred = append(s.deferred, DeferredOp{Remove: id, isRem: true})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	hooks.ApplyRemove(id)
}

// RunLockShared acquires the runLock in shared mode, for external observers
// that want a consistent snapshot outside of run() (spec §4.F).
func (s *Scheduler) RunLockShared() func() {
	s.runLock.RLock()
	return s.runLock.RUnlock
}

// RunLockTryShared attempts to acquire the runLock in shared mode without
// blocking. ok is false if run() currently holds it exclusively.
func (s *Scheduler) RunLockTryShared() (release func(), ok bool) {
	if !s.runLock.TryRLock() {
		return nil, false
	}
	return s.runLock.RUnlock, true
}

// interStages and introStages are the fixed stage orders of spec §4.F.
var interStages = []member.Stage{member.InterBegin, member.InterOptimize, member.InterApply, member.InterAdvance}
var introStages = []member.Stage{member.IntraInitialize, member.IntraReset, member.IntraOptimize, member.IntraReoptimize}
var postStages = []member.Stage{member.IntraApply, member.IntraFinish}

// Run executes one full period: the inter stages, the intra loop (repeated
// while any IntraReoptimize hook reports redo, bounded by maxIntraopRounds
// if positive), and the post stages, all under the exclusive runLock (spec
// §4.F). hooks drains the deferred insert/remove queue between buckets.
func (s *Scheduler) Run(ctx context.Context, hooks Hooks, maxIntraopRounds int) error {
	s.runLock.Lock()
	defer s.runLock.Unlock()

	for _, stage := range interStages {
		if err := s.runStage(ctx, hooks, stage); err != nil {
			return err
		}
	}

	for round := 0; maxIntraopRounds <= 0 || round < maxIntraopRounds; round++ {
		redo := false
		for _, stage := range introStages {
			r, err := s.runStageRedo(ctx, hooks, stage)
			if err != nil {
				return err
			}
			if stage == member.IntraReoptimize {
				redo = r
			}
		}
		if !redo {
			break
		}
	}

	for _, stage := range postStages {
		if err := s.runStage(ctx, hooks, stage); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) runStage(ctx context.Context, hooks Hooks, stage member.Stage) error {
	_, err := s.runStageRedo(ctx, hooks, stage)
	return err
}

// runStageRedo dispatches every priority bucket of stage in ascending
// order, returning the OR of any IntraReoptimize redo signal.
func (s *Scheduler) runStageRedo(ctx context.Context, hooks Hooks, stage member.Stage) (bool, error) {
	if s.metrics != nil {
		s.metrics.StageDispatches.WithLabelValues(stage.String()).Inc()
	}

	buckets := s.buckets(stage)
	redo := false
	for _, bucket := range buckets {
		if s.metrics != nil {
			s.metrics.BucketSize.WithLabelValues(stage.String()).Set(float64(len(bucket)))
		}
		r, err := s.dispatchBucket(ctx, stage, bucket)
		if err != nil {
			return redo, err
		}
		redo = redo || r
		s.drainDeferred(hooks)
	}
	return redo, nil
}

// buckets groups stage's subscribers by ascending priority.
func (s *Scheduler) buckets(stage member.Stage) [][]member.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPriority := make(map[float64][]member.Member)
	for _, sub := range s.byStage[stage] {
		byPriority[sub.Priority] = append(byPriority[sub.Priority], sub.Member)
	}
	priorities := make([]float64, 0, len(byPriority))
	for p := range byPriority {
		priorities = append(priorities, p)
	}
	sort.Float64s(priorities)

	buckets := make([][]member.Member, len(priorities))
	for i, p := range priorities {
		buckets[i] = byPriority[p]
	}
	return buckets
}

// dispatchBucket runs stage's hook on every member of bucket. With
// maxThreads == 0 it runs sequentially on the calling goroutine; otherwise
// it fans out across an errgroup bounded to min(maxThreads, len(bucket))
// (spec §4.F "worker pool").
func (s *Scheduler) dispatchBucket(ctx context.Context, stage member.Stage, bucket []member.Member) (bool, error) {
	s.mu.Lock()
	s.inBucket = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inBucket = false
		s.mu.Unlock()
	}()

	if len(bucket) == 0 {
		return false, nil
	}

	if s.maxThreads == 0 {
		redo := false
		for _, m := range bucket {
			r, err := member.InvokeStage(m, stage)
			if err != nil {
				return redo, err
			}
			redo = redo || r
		}
		return redo, nil
	}

	limit := s.maxThreads
	if len(bucket) < limit {
		limit = len(bucket)
	}

	var redoMu sync.Mutex
	redo := false

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, m := range bucket {
		m := m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			r, err := member.InvokeStage(m, stage)
			if err != nil {
				return err
			}
			if r {
				redoMu.Lock()
				redo = true
				redoMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return redo, err
	}
	return redo, nil
}

// drainDeferred applies every queued deferred op, in call order, then
// clears the queue (spec §4.D, §4.F).
func (s *Scheduler) drainDeferred(hooks Hooks) {
	s.mu.Lock()
	ops := s.deferred
	s.deferred = nil
	s.mu.Unlock()

	for _, op := range ops {
		if op.isRem {
			hooks.ApplyRemove(op.Remove)
		} else {
			hooks.ApplyInsert(op.Insert)
		}
	}
}
