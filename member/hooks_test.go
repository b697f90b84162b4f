// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

package member

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type capableMember struct {
	Base
	interApplyCalled  int
	reoptimizeCalls   int
	reoptimizeResults []bool
	failOn            Stage
}

func (m *capableMember) InterApply() error {
	m.interApplyCalled++
	if m.failOn == InterApply {
		return errors.New("boom")
	}
	return nil
}

func (m *capableMember) IntraReoptimize() (bool, error) {
	redo := false
	if m.reoptimizeCalls < len(m.reoptimizeResults) {
		redo = m.reoptimizeResults[m.reoptimizeCalls]
	}
	m.reoptimizeCalls++
	return redo, nil
}

func TestCapabilitiesOnlyImplementedHooks(t *testing.T) {
	m := &capableMember{Base: NewBase(Agent)}
	caps := Capabilities(m)
	_, hasInterApply := caps[InterApply]
	_, hasReopt := caps[IntraReoptimize]
	_, hasInterBegin := caps[InterBegin]
	require.True(t, hasInterApply)
	require.True(t, hasReopt)
	require.False(t, hasInterBegin)
	require.Len(t, caps, 2)
}

func TestInvokeStageDispatchesAndReturnsError(t *testing.T) {
	m := &capableMember{Base: NewBase(Agent), failOn: InterApply}
	_, err := InvokeStage(m, InterApply)
	require.Error(t, err)
	require.Equal(t, 1, m.interApplyCalled)
}

func TestInvokeStageNoOpForUnimplemented(t *testing.T) {
	m := &capableMember{Base: NewBase(Agent)}
	redo, err := InvokeStage(m, InterBegin)
	require.NoError(t, err)
	require.False(t, redo)
}

func TestInvokeStageReoptimizeRedo(t *testing.T) {
	m := &capableMember{Base: NewBase(Agent), reoptimizeResults: []bool{true, false}}
	redo, err := InvokeStage(m, IntraReoptimize)
	require.NoError(t, err)
	require.True(t, redo)

	redo, err = InvokeStage(m, IntraReoptimize)
	require.NoError(t, err)
	require.False(t, redo)
}

func TestStageString(t *testing.T) {
	require.Equal(t, "InterBegin", InterBegin.String())
	require.Equal(t, "IntraFinish", IntraFinish.String())
	require.Equal(t, "Unknown", Stage(255).String())
}
