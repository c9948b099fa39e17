// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"errors"
	"testing"
)

// opaqueOp is an Op that does not implement Rebinder.
type opaqueOp struct {
	BaseOp
}

func (o *opaqueOp) Perform() error {
	o.OpOutputs[0].SetData(o.OpInputs[0].Data())
	return nil
}

// diamond builds x -> (a, b) -> out with ops added in reverse dependency order.
func diamond(t *testing.T) (*Graph, map[string]Op) {
	t.Helper()
	x := NewSlot("x")
	a, b, out := NewSlot("a"), NewSlot("b"), NewSlot("out")

	join := addOp("join", []*Slot{a, b}, out)
	left := addOp("left", []*Slot{x}, a)
	right := addOp("right", []*Slot{x}, b)

	g, err := NewBuilder("diamond").
		Inputs(x).
		Outputs(out).
		AddOp(join).
		AddOp(right).
		AddOp(left).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g, map[string]Op{"join": join, "left": left, "right": right}
}

func opNames(ops []Op) []string {
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return names
}

func TestToposort_DependenciesFirst(t *testing.T) {
	g, _ := diamond(t)

	order := g.Toposort()
	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 ops", opNames(order))
	}

	pos := make(map[Op]int)
	for i, op := range order {
		pos[op] = i
	}
	for _, op := range order {
		for _, in := range op.Inputs() {
			if p, ok := g.Producer(in); ok && pos[p] >= pos[op] {
				t.Errorf("%s runs before its producer %s", op.Name(), p.Name())
			}
		}
	}
}

func TestToposort_InsertionOrderBreaksTies(t *testing.T) {
	g, _ := diamond(t)

	got := opNames(g.Toposort())
	want := []string{"right", "left", "join"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestToposort_Deterministic(t *testing.T) {
	g, _ := diamond(t)

	first := opNames(g.Toposort())
	for i := 0; i < 10; i++ {
		again := opNames(g.Toposort())
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d: order %v differs from %v", i, again, first)
			}
		}
	}
}

func TestToposort_SkipsUnneededOps(t *testing.T) {
	x, e, unused := NewSlot("x"), NewSlot("e"), NewSlot("unused")

	g, err := NewBuilder("g").
		Inputs(x).
		Outputs(e).
		AddOp(addOp("dead", []*Slot{x}, unused)).
		AddOp(addOp("live", []*Slot{x}, e)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got := opNames(g.Toposort())
	if len(got) != 1 || got[0] != "live" {
		t.Errorf("order = %v, want [live]", got)
	}
}

func TestToposort_OutputIsInput(t *testing.T) {
	x := NewSlot("x")

	g, err := NewBuilder("identity").Inputs(x).Outputs(x).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if order := g.Toposort(); len(order) != 0 {
		t.Errorf("order = %v, want empty", opNames(order))
	}
}

func TestGraph_Producer(t *testing.T) {
	g, ops := diamond(t)

	out := g.Outputs()[0]
	p, ok := g.Producer(out)
	if !ok || p != ops["join"] {
		t.Errorf("Producer(out) = %v, %v; want join", p, ok)
	}
	if _, ok := g.Producer(g.Inputs()[0]); ok {
		t.Error("inputs should have no producer")
	}
}

func TestGraph_Slots(t *testing.T) {
	g, _ := diamond(t)

	slots := g.Slots()
	if len(slots) != 4 {
		t.Fatalf("Slots = %v, want 4 distinct slots", slots)
	}
	if slots[0] != g.Inputs()[0] {
		t.Errorf("first slot should be the first input, got %v", slots[0])
	}
}

func TestClone_Isolation(t *testing.T) {
	x, y, e := NewSlot("x"), NewSlot("y"), NewSlot("e")
	g, err := NewBuilder("sum").
		Inputs(x, y).
		Outputs(e).
		AddOp(addOp("add", []*Slot{x, y}, e)).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	c, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	c.Inputs()[0].SetData(1.0)
	c.Inputs()[1].SetData(2.0)
	for _, op := range c.Toposort() {
		if err := op.Perform(); err != nil {
			t.Fatalf("Perform: %v", err)
		}
	}

	if got := c.Outputs()[0].Data(); got != 3.0 {
		t.Errorf("clone output = %v, want 3", got)
	}
	for _, s := range []*Slot{x, y, e} {
		if s.HasData() {
			t.Errorf("original slot %s was written: %v", s.Name(), s.Data())
		}
	}
}

func TestClone_PositionalCorrespondence(t *testing.T) {
	g, _ := diamond(t)

	c, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	orig, cloned := g.Ops(), c.Ops()
	if len(orig) != len(cloned) {
		t.Fatalf("clone has %d ops, want %d", len(cloned), len(orig))
	}
	for i := range orig {
		if orig[i].Name() != cloned[i].Name() {
			t.Errorf("op %d: name %q, want %q", i, cloned[i].Name(), orig[i].Name())
		}
		if orig[i] == cloned[i] {
			t.Errorf("op %d was not rebound", i)
		}
		if len(orig[i].Trace()) != len(cloned[i].Trace()) {
			t.Errorf("op %d: trace not preserved", i)
		}
	}
	for i, s := range g.Inputs() {
		if c.Inputs()[i] == s || c.Inputs()[i].Name() != s.Name() {
			t.Errorf("input %d: clone shares storage or lost its name", i)
		}
	}

	// Shared slots stay shared inside the clone.
	cx := c.Inputs()[0]
	for _, op := range c.Ops() {
		if op.Name() == "left" || op.Name() == "right" {
			if op.Inputs()[0] != cx {
				t.Errorf("%s reads a different slot than the cloned input", op.Name())
			}
		}
	}
}

func TestClone_CopiesConstantsDeeply(t *testing.T) {
	x, e := NewSlot("x"), NewSlot("e")
	table := NewConstant("table", map[string]float64{"k": 1})

	lookup := NewFuncOp("lookup", func(args []any) ([]any, error) {
		return []any{args[1].(map[string]float64)["k"] + args[0].(float64)}, nil
	}, []*Slot{x, table}, []*Slot{e})

	g, err := NewBuilder("g").Inputs(x).Outputs(e).AddOp(lookup).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	c, err := g.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}

	clonedTable := c.Ops()[0].Inputs()[1]
	clonedTable.Data().(map[string]float64)["k"] = 99

	if got := table.Data().(map[string]float64)["k"]; got != 1 {
		t.Errorf("original constant mutated through clone: %v", got)
	}
}

func TestClone_NotCloneable(t *testing.T) {
	x, e := NewSlot("x"), NewSlot("e")
	op := &opaqueOp{BaseOp{OpName: "opaque", OpInputs: []*Slot{x}, OpOutputs: []*Slot{e}}}

	g, err := NewBuilder("g").Inputs(x).Outputs(e).AddOp(op).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if g.Cloneable() {
		t.Error("Cloneable should be false")
	}
	_, err = g.Clone()
	if !errors.Is(err, ErrNotCloneable) {
		t.Errorf("expected ErrNotCloneable, got: %v", err)
	}
}

func TestFuncOp_ResultCount(t *testing.T) {
	x, e := NewSlot("x"), NewSlot("e")
	x.SetData(1.0)

	op := NewFuncOp("bad", func(args []any) ([]any, error) {
		return []any{1.0, 2.0}, nil
	}, []*Slot{x}, []*Slot{e})

	if err := op.Perform(); !errors.Is(err, ErrResultCount) {
		t.Errorf("expected ErrResultCount, got: %v", err)
	}
	if e.HasData() {
		t.Error("output written despite result count mismatch")
	}
}

func TestFuncOp_NilKernel(t *testing.T) {
	op := &FuncOp{BaseOp: BaseOp{OpName: "empty"}}
	if err := op.Perform(); !errors.Is(err, ErrInvalidOp) {
		t.Errorf("expected ErrInvalidOp, got: %v", err)
	}
}

func TestBaseOp_PerformNotOverridden(t *testing.T) {
	op := &BaseOp{OpName: "base"}
	if err := op.Perform(); !errors.Is(err, ErrInvalidOp) {
		t.Errorf("expected ErrInvalidOp, got: %v", err)
	}
}
