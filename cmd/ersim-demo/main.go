// Copyright (C) 2019-2026, Eris Project Contributors. All rights reserved.
// See the file LICENSE for licensing terms.

// Command ersim-demo is a minimal smoke driver: it wires up a Simulation,
// a good, and two agents that trade a fixed quantity every period, and
// runs a handful of periods. It is not a deliverable model, just enough
// to exercise member insertion, stage dispatch, bundle transfer, and a
// BayesianLinear belief update end to end (spec §1 Non-goals).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	lxlog "github.com/luxfi/log"
	"gonum.org/v1/gonum/mat"

	"github.com/erisproject/ersim/belief"
	"github.com/erisproject/ersim/bundle"
	"github.com/erisproject/ersim/member"
	"github.com/erisproject/ersim/simulation"
)

// good is a Member of classification member.Good; its ID doubles as the
// bundle.Good key agents trade in.
type good struct {
	member.Base
}

func newGood() *good {
	return &good{Base: member.NewBase(member.Good)}
}

// trader is an Agent that sells one unit of a good to its partner every
// InterApply stage, tracking its running wallet as a belief about resale
// value (purely to exercise package belief, not a real valuation model).
type trader struct {
	member.Base
	wallet  bundle.NonNeg
	partner *trader
	valueBelief *belief.Linear
	priceGood member.ID
	sell    bool
}

func newTrader(sell bool, priceGood member.ID) *trader {
	b, err := belief.NewNoninformative(1, belief.WithNames([]string{"price"}))
	if err != nil {
		panic(err)
	}
	w, _ := bundle.NonNegOf(nil)
	return &trader{
		Base:        member.NewBase(member.Agent),
		wallet:      w,
		valueBelief: b,
		priceGood:   priceGood,
		sell:        sell,
	}
}

// InterApply implements member.InterApplyHook: the seller transfers one
// unit of priceGood to the buyer every period, and both traders record an
// observation of the (fixed, here) trade price into their belief.
func (t *trader) InterApply() error {
	if !t.sell || t.partner == nil {
		return nil
	}
	if _, ok := t.Simulation(); !ok {
		return nil
	}

	delta, err := bundle.NonNegOf(map[member.ID]float64{t.priceGood: 1})
	if err != nil {
		return err
	}
	if _, err := bundle.Transfer(t.wallet.Signed, delta, t.partner.wallet.Signed, bundle.DefaultEpsilon); err != nil {
		return err
	}

	x := mat.NewDense(1, 1, []float64{1})
	y := mat.NewVecDense(1, []float64{1})
	if err := t.valueBelief.Update(x, y); err != nil {
		return err
	}
	return t.partner.valueBelief.Update(x, y)
}

func main() {
	logger := lxlog.NewNoOpLogger()
	sim := simulation.New(
		simulation.WithMaxThreads(0),
		simulation.WithLogger(logger),
	)

	g := newGood()
	sim.Insert(g)

	seller := newTrader(true, g.ID())
	buyer := newTrader(false, g.ID())
	seller.partner = buyer
	if err := seller.wallet.Set(g.ID(), 100); err != nil {
		slog.Error("seed wallet", "err", err)
		os.Exit(1)
	}

	sim.Insert(seller)
	sim.Insert(buyer)

	ctx := context.Background()
	for period := 0; period < 5; period++ {
		if err := sim.Run(ctx); err != nil {
			slog.Error("run period", "period", period, "err", err)
			os.Exit(1)
		}
	}

	fmt.Printf("seller good balance: %g\n", seller.wallet.Get(g.ID()))
	fmt.Printf("buyer good balance: %g\n", buyer.wallet.Get(g.ID()))
	if n := buyer.valueBelief.N(); n > 0 {
		fmt.Printf("buyer belief n: %g noninformative: %v\n", n, buyer.valueBelief.Noninformative())
	}
}
