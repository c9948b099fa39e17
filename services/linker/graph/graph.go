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
	"fmt"
	"slices"
	"sort"
)

// Graph is an immutable dataflow graph.
//
// Description:
//
//	Graph holds the declared input and output slots and the ops connecting
//	them. It must be built using a Builder (or Clone) and never changes
//	topology afterwards.
//
// Thread Safety:
//
//	Graph is safe for concurrent read access. The slots it references are not.
type Graph struct {
	name    string
	inputs  []*Slot
	outputs []*Slot
	ops     []Op

	producers map[*Slot]int // slot → index of the op writing it
}

// newGraph indexes producers. Callers must have validated the ops.
func newGraph(name string, inputs, outputs []*Slot, ops []Op) *Graph {
	g := &Graph{
		name:      name,
		inputs:    slices.Clone(inputs),
		outputs:   slices.Clone(outputs),
		ops:       slices.Clone(ops),
		producers: make(map[*Slot]int),
	}
	for i, op := range g.ops {
		for _, out := range op.Outputs() {
			g.producers[out] = i
		}
	}
	return g
}

// Name returns the graph's name.
func (g *Graph) Name() string {
	return g.name
}

// Inputs returns the declared input slots in declaration order.
// The slots are the graph's own storage; the slice is a copy.
func (g *Graph) Inputs() []*Slot {
	return slices.Clone(g.inputs)
}

// Outputs returns the declared output slots in declaration order.
func (g *Graph) Outputs() []*Slot {
	return slices.Clone(g.outputs)
}

// Ops returns all ops in insertion order.
func (g *Graph) Ops() []Op {
	return slices.Clone(g.ops)
}

// OpCount returns the number of ops.
func (g *Graph) OpCount() int {
	return len(g.ops)
}

// Producer returns the op writing the given slot.
//
// Outputs:
//
//	Op - The producing op, if any.
//	bool - False for inputs, constants and slots outside the graph.
func (g *Graph) Producer(s *Slot) (Op, bool) {
	i, ok := g.producers[s]
	if !ok {
		return nil, false
	}
	return g.ops[i], true
}

// Slots returns every slot the graph references, each once, in order of
// first appearance: inputs, then op slots in insertion order, then outputs.
func (g *Graph) Slots() []*Slot {
	seen := make(map[*Slot]bool)
	var slots []*Slot
	add := func(list []*Slot) {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				slots = append(slots, s)
			}
		}
	}
	add(g.inputs)
	for _, op := range g.ops {
		add(op.Inputs())
		add(op.Outputs())
	}
	add(g.outputs)
	return slots
}

// dependencies returns the indexes of the ops producing op i's inputs,
// each once, in ascending order.
func (g *Graph) dependencies(i int) []int {
	var deps []int
	for _, in := range g.ops[i].Inputs() {
		if p, ok := g.producers[in]; ok && !slices.Contains(deps, p) {
			deps = append(deps, p)
		}
	}
	slices.Sort(deps)
	return deps
}

// needed marks the ops the declared outputs transitively depend on.
func (g *Graph) needed() []bool {
	need := make([]bool, len(g.ops))
	var mark func(i int)
	mark = func(i int) {
		if need[i] {
			return
		}
		need[i] = true
		for _, dep := range g.dependencies(i) {
			mark(dep)
		}
	}
	for _, out := range g.outputs {
		if p, ok := g.producers[out]; ok {
			mark(p)
		}
	}
	return need
}

// insertSorted inserts an index into a sorted slice maintaining sort order.
func insertSorted(queue []int, i int) []int {
	idx := sort.SearchInts(queue, i)
	return slices.Insert(queue, idx, i)
}

// Toposort returns the ops needed to compute the declared outputs, ordered
// so that every op follows all ops producing its inputs.
//
// Description:
//
//	Uses Kahn's algorithm. Among ops that are ready at the same time, the
//	one added to the builder first runs first, so the order is
//	deterministic. Ops no declared output depends on are left out.
//
// Outputs:
//
//	[]Op - The execution order. Empty if every output is an input or constant.
func (g *Graph) Toposort() []Op {
	need := g.needed()

	inDegree := make([]int, len(g.ops))
	dependents := make([][]int, len(g.ops))
	for i := range g.ops {
		if !need[i] {
			continue
		}
		for _, dep := range g.dependencies(i) {
			inDegree[i]++
			dependents[dep] = append(dependents[dep], i)
		}
	}

	queue := make([]int, 0, len(g.ops))
	for i := range g.ops {
		if need[i] && inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]Op, 0, len(g.ops))
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, g.ops[i])

		for _, child := range dependents[i] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = insertSorted(queue, child)
			}
		}
	}
	return order
}

// Cloneable reports whether every op implements Rebinder.
func (g *Graph) Cloneable() bool {
	for _, op := range g.ops {
		if _, ok := op.(Rebinder); !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the graph with fresh slots.
//
// Description:
//
//	Every slot is replaced by a new slot with the same name and a deep copy
//	of its current value; every op is rebound to the new slots. The clone's
//	inputs, outputs and ops correspond positionally to the original's, and
//	the ops keep their traces. Running the clone never touches the
//	original's storage.
//
// Outputs:
//
//	*Graph - The clone.
//	error - ErrNotCloneable if an op does not implement Rebinder.
func (g *Graph) Clone() (*Graph, error) {
	fresh := make(map[*Slot]*Slot)
	remap := func(list []*Slot) []*Slot {
		mapped := make([]*Slot, len(list))
		for i, s := range list {
			c, ok := fresh[s]
			if !ok {
				c = copySlot(s)
				fresh[s] = c
			}
			mapped[i] = c
		}
		return mapped
	}

	inputs := remap(g.inputs)
	ops := make([]Op, len(g.ops))
	for i, op := range g.ops {
		rb, ok := op.(Rebinder)
		if !ok {
			return nil, &OpError{
				OpName: op.Name(),
				Err:    fmt.Errorf("%w: %T does not implement Rebinder", ErrNotCloneable, op),
			}
		}
		ops[i] = rb.Rebind(remap(op.Inputs()), remap(op.Outputs()))
	}
	outputs := remap(g.outputs)

	return newGraph(g.name, inputs, outputs, ops), nil
}
