// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erisproject/ersim/member"
)

type agentA struct{ member.Base }
type agentB struct{ member.Base }

func newAgentA() *agentA { return &agentA{Base: member.NewBase(member.Agent)} }
func newAgentB() *agentB { return &agentB{Base: member.NewBase(member.Agent)} }

func TestInsertGetDelete(t *testing.T) {
	r := New()
	a := newAgentA()
	r.Insert(a)

	got, err := r.Get(member.Agent, a.ID())
	require.NoError(t, err)
	require.Same(t, a, got)

	require.True(t, r.Delete(member.Agent, a.ID()))
	_, err = r.Get(member.Agent, a.ID())
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDeleteAbsentReturnsFalse(t *testing.T) {
	r := New()
	require.False(t, r.Delete(member.Agent, member.ID(99999)))
}

func TestCountAndAll(t *testing.T) {
	r := New()
	a1, a2 := newAgentA(), newAgentA()
	r.Insert(a1)
	r.Insert(a2)
	require.Equal(t, 2, r.Count(member.Agent))
	require.Equal(t, 0, r.Count(member.Good))
	require.ElementsMatch(t, []member.Member{a1, a2}, r.All(member.Agent))
}

func TestLookupTypedCastFailure(t *testing.T) {
	r := New()
	a := newAgentA()
	r.Insert(a)

	_, err := Lookup[*agentB](r, member.Agent, a.ID())
	require.Error(t, err)
	var ic *InvalidCastError
	require.ErrorAs(t, err, &ic)

	got, err := Lookup[*agentA](r, member.Agent, a.ID())
	require.NoError(t, err)
	require.Same(t, a, got)
}

func TestFilterByType(t *testing.T) {
	r := New()
	a1 := newAgentA()
	b1 := newAgentB()
	r.Insert(a1)
	r.Insert(b1)

	onlyA := Filter[*agentA](r, member.Agent, nil)
	require.Equal(t, []*agentA{a1}, onlyA)

	onlyB := Filter[*agentB](r, member.Agent, nil)
	require.Equal(t, []*agentB{b1}, onlyB)

	everyone := Filter[member.Member](r, member.Agent, nil)
	require.Len(t, everyone, 2)
}

func TestFilterWithPredicate(t *testing.T) {
	r := New()
	a1, a2 := newAgentA(), newAgentA()
	r.Insert(a1)
	r.Insert(a2)

	matchingFirst := Filter[*agentA](r, member.Agent, func(a *agentA) bool { return a.ID() == a1.ID() })
	require.Equal(t, []*agentA{a1}, matchingFirst)
}

func TestFilterOrderStableAcrossCachePopulation(t *testing.T) {
	r := New()
	a1, a2, a3 := newAgentA(), newAgentA(), newAgentA()
	r.Insert(a1)
	r.Insert(a2)
	r.Insert(a3)
	want := []*agentA{a1, a2, a3}
	sort.Slice(want, func(i, j int) bool { return want[i].ID() < want[j].ID() })

	// First call populates the (class, T) cache; second call serves it.
	// Both must return members in the same ascending-ID order regardless of
	// the registry's internal map-iteration order on the cache-miss path.
	first := Filter[*agentA](r, member.Agent, nil)
	second := Filter[*agentA](r, member.Agent, nil)
	require.Equal(t, want, first)
	require.Equal(t, want, second)
}

func TestCountMatchesFilterLength(t *testing.T) {
	r := New()
	r.Insert(newAgentA())
	r.Insert(newAgentA())
	r.Insert(newAgentB())

	require.Equal(t, 2, Count[*agentA](r, member.Agent, nil))
	require.Equal(t, 3, Count[member.Member](r, member.Agent, nil))
}

func TestFilterCacheInvalidatedOnMutation(t *testing.T) {
	r := New()
	a1 := newAgentA()
	r.Insert(a1)
	require.Len(t, Filter[*agentA](r, member.Agent, nil), 1)

	a2 := newAgentA()
	r.Insert(a2)
	require.Len(t, Filter[*agentA](r, member.Agent, nil), 2)

	r.Delete(member.Agent, a1.ID())
	require.Len(t, Filter[*agentA](r, member.Agent, nil), 1)
}
