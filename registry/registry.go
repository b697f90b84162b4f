// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry implements component D: four disjoint typed containers
// of live Members (agent/good/market/other) plus filtered enumeration with
// a per-(base,derived) cache, grounded on the teacher's set.Set[T] generic
// container (set/set.go) for the per-classification id sets.
package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/erisproject/ersim/internal/errs"
	"github.com/erisproject/ersim/member"
)

// NotFoundError reports a failed id lookup.
type NotFoundError struct {
	ID member.ID
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("registry: member %d not found", e.ID) }
func (e *NotFoundError) Unwrap() error { return errs.ErrNotFound }

// InvalidCastError reports that a found member does not have the requested
// dynamic type.
type InvalidCastError struct {
	ID   member.ID
	Want reflect.Type
}

func (e *InvalidCastError) Error() string {
	return fmt.Sprintf("registry: member %d cannot be cast to %s", e.ID, e.Want)
}
func (e *InvalidCastError) Unwrap() error { return errs.ErrInvalidCast }

type cacheKey struct {
	class member.Classification
	typ   reflect.Type
}

// Registry holds the four classification containers and the filter cache.
// All mutation holds a single recursive-in-effect mutex (re-entrancy is
// achieved here by having Insert/Delete never call back into the exported
// locking API from within themselves; see simulation.Simulation.ApplyRemove,
// which orchestrates the cascade from depgraph.Graph.Plan and calls Registry
// methods one member at a time rather than holding a lock across the whole
// cascade).
type Registry struct {
	mu sync.Mutex

	byClass [4]map[member.ID]member.Member

	cacheMu sync.Mutex
	cache   map[cacheKey][]member.Member
}

// New constructs an empty Registry.
func New() *Registry {
	r := &Registry{cache: make(map[cacheKey][]member.Member)}
	for i := range r.byClass {
		r.byClass[i] = make(map[member.ID]member.Member)
	}
	return r
}

// Insert installs m in its classification's container and invalidates the
// cache for that classification. It does not invoke lifecycle hooks or
// attach the simulation back-reference; callers (simulation.Simulation)
// perform insertion, back-reference attachment, hook invocation, and stage
// subscription together as one atomic sequence (spec §4.D).
func (r *Registry) Insert(m member.Member) {
	r.mu.Lock()
	r.byClass[m.Classification()][m.ID()] = m
	r.mu.Unlock()
	r.invalidate(m.Classification())
}

// Delete removes m's id from its classification's container, if present,
// and invalidates the cache for that classification. Returns whether it was
// present.
func (r *Registry) Delete(class member.Classification, id member.ID) bool {
	r.mu.Lock()
	_, ok := r.byClass[class][id]
	delete(r.byClass[class], id)
	r.mu.Unlock()
	if ok {
		r.invalidate(class)
	}
	return ok
}

// Get returns the raw Member for id within class, or NotFoundError.
func (r *Registry) Get(class member.Classification, id member.ID) (member.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byClass[class][id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return m, nil
}

// Count returns the number of live members in class.
func (r *Registry) Count(class member.Classification) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byClass[class])
}

// All returns every live member of class, order unspecified.
func (r *Registry) All(class member.Classification) []member.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Values(r.byClass[class])
}

func (r *Registry) invalidate(class member.Classification) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	for k := range r.cache {
		if k.class == class {
			delete(r.cache, k)
		}
	}
}

// Lookup resolves id within class and downcasts it to T, returning
// NotFoundError or InvalidCastError on failure.
func Lookup[T member.Member](r *Registry, class member.Classification, id member.ID) (T, error) {
	var zero T
	m, err := r.Get(class, id)
	if err != nil {
		return zero, err
	}
	t, ok := m.(T)
	if !ok {
		return zero, &InvalidCastError{ID: id, Want: reflect.TypeOf(zero)}
	}
	return t, nil
}

// Filter returns every live member of class whose dynamic type is T and
// which satisfies predicate (if non-nil). If T is member.Member itself
// (the base interface) results are produced directly from the live
// container; otherwise the (class, T) filter cache is populated on first
// use and invalidated whenever class is mutated (spec §4.D).
func Filter[T member.Member](r *Registry, class member.Classification, predicate func(T) bool) []T {
	typed := typedSlice[T](r, class)
	if predicate == nil {
		out := make([]T, len(typed))
		copy(out, typed)
		return out
	}
	out := make([]T, 0, len(typed))
	for _, t := range typed {
		if predicate(t) {
			out = append(out, t)
		}
	}
	return out
}

// Count returns len(Filter[T](r, class, predicate)) without necessarily
// materializing the slice when predicate is nil (cached-count shortcut,
// spec §6 countX<T>).
func Count[T member.Member](r *Registry, class member.Classification, predicate func(T) bool) int {
	typed := typedSlice[T](r, class)
	if predicate == nil {
		return len(typed)
	}
	n := 0
	for _, t := range typed {
		if predicate(t) {
			n++
		}
	}
	return n
}

// typedSlice returns (populating the cache as needed) every live member of
// class whose dynamic type is exactly T. When T is member.Member itself, no
// cache is used: the live container is filtered directly every call, since
// that "cache" would just be the container.
func typedSlice[T member.Member](r *Registry, class member.Classification) []T {
	var probe T
	if reflect.TypeOf(&probe).Elem() == reflect.TypeOf((*member.Member)(nil)).Elem() {
		all := r.All(class)
		out := make([]T, 0, len(all))
		for _, m := range all {
			out = append(out, m.(T))
		}
		return out
	}

	typ := reflect.TypeOf(&probe).Elem()
	key := cacheKey{class: class, typ: typ}

	r.cacheMu.Lock()
	if cached, ok := r.cache[key]; ok {
		r.cacheMu.Unlock()
		out := make([]T, len(cached))
		for i, m := range cached {
			out[i] = m.(T)
		}
		return out
	}
	r.cacheMu.Unlock()

	all := r.All(class)
	matched := make([]member.Member, 0, len(all))
	for _, m := range all {
		if _, ok := m.(T); ok {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID() < matched[j].ID() })

	out := make([]T, len(matched))
	for i, m := range matched {
		out[i] = m.(T)
	}

	r.cacheMu.Lock()
	r.cache[key] = matched
	r.cacheMu.Unlock()
	return out
}
