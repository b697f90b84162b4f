// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package depgraph implements component E: strong and weak dependency
// edges between members, and the cascading, post-order removal algorithm
// driven by a strong-dependency removal (spec §4.D-E).
//
// Grounded on the teacher's dag.DAG (dag/dag.go): a small sync.RWMutex-
// protected adjacency structure, generalized from block-parent edges to
// named strong/weak dependency edges with two different removal semantics.
package depgraph

import (
	"sort"
	"sync"

	"github.com/erisproject/ersim/member"
)

// Graph holds the strong and weak dependency adjacency maps. `A depends on
// B` (strong) means removing B removes A, after B is removed. `A depends
// weakly on B` means removing B calls A.WeakDepRemoved(B) but does not
// remove A.
type Graph struct {
	mu sync.Mutex
	// strongDependents[target] = set of members that depend on target.
	strongDependents map[member.ID]map[member.ID]struct{}
	// weakDependents[target] = set of members weakly depending on target.
	weakDependents map[member.ID]map[member.ID]struct{}
}

// New constructs an empty Graph.
func New() *Graph {
	return &Graph{
		strongDependents: make(map[member.ID]map[member.ID]struct{}),
		weakDependents:   make(map[member.ID]map[member.ID]struct{}),
	}
}

// AddDependency records `dependent depends on target` (strong).
func (g *Graph) AddDependency(dependent, target member.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.strongDependents[target]
	if !ok {
		set = make(map[member.ID]struct{})
		g.strongDependents[target] = set
	}
	set[dependent] = struct{}{}
}

// AddWeakDependency records `dependent depends weakly on target`.
func (g *Graph) AddWeakDependency(dependent, target member.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set, ok := g.weakDependents[target]
	if !ok {
		set = make(map[member.ID]struct{})
		g.weakDependents[target] = set
	}
	set[dependent] = struct{}{}
}

// StrongDependents returns the ids that directly strong-depend on target,
// in ascending order (spec_full §5.7 introspection accessor).
func (g *Graph) StrongDependents(target member.ID) []member.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.strongDependents[target])
}

// WeakDependents returns the ids that weakly depend on target, ascending.
func (g *Graph) WeakDependents(target member.ID) []member.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return sortedKeys(g.weakDependents[target])
}

func sortedKeys(m map[member.ID]struct{}) []member.ID {
	out := make([]member.ID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// forget removes every edge mentioning id, as either target or dependent.
func (g *Graph) forget(id member.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.strongDependents, id)
	delete(g.weakDependents, id)
	for _, set := range g.strongDependents {
		delete(set, id)
	}
	for _, set := range g.weakDependents {
		delete(set, id)
	}
}

// Plan is the result of planning a cascading removal of a victim: the
// strong-dependent closure in post-order (leaves first, victim last), and
// the full set of weak dependents (of the victim and of every cascaded
// strong dependent) to notify afterward. Cycles among strong dependencies
// are tolerated: a member already scheduled for removal is never scheduled
// twice (spec §3, §4.D).
type Plan struct {
	// RemovalOrder lists ids to remove, leaves first, victim last.
	RemovalOrder []member.ID
	// WeakNotify maps each removed id to the set of members weakly
	// depending on it, to notify (in any order) after the strong cascade
	// and each member's own Removed() hook.
	WeakNotify map[member.ID][]member.ID
}

// Plan computes the removal cascade for victim without mutating the graph.
func (g *Graph) Plan(victim member.ID) Plan {
	g.mu.Lock()
	defer g.mu.Unlock()

	visited := map[member.ID]struct{}{victim: {}}
	order := []member.ID{} // leaves first; victim appended last
	var visit func(id member.ID)
	visit = func(id member.ID) {
		for _, dep := range sortedKeys(g.strongDependents[id]) {
			if _, seen := visited[dep]; seen {
				continue
			}
			visited[dep] = struct{}{}
			visit(dep)
			order = append(order, dep)
		}
	}
	visit(victim)
	order = append(order, victim)

	weakNotify := make(map[member.ID][]member.ID, len(order))
	for _, id := range order {
		weakNotify[id] = sortedKeys(g.weakDependents[id])
	}

	return Plan{RemovalOrder: order, WeakNotify: weakNotify}
}

// Forget drops every edge mentioning id; callers invoke this once id has
// actually been removed from the Registry.
func (g *Graph) Forget(id member.ID) {
	g.forget(id)
}
