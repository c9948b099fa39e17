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

import "fmt"

// Builder constructs a Graph with validation.
//
// Description:
//
//	Builder provides a fluent API for declaring a graph's inputs, outputs
//	and ops. Errors are accumulated and reported by Build.
//
// Thread Safety:
//
//	Builder is NOT safe for concurrent use. Build the graph in a single goroutine.
//
// Example:
//
//	g, err := graph.NewBuilder("sum").
//	    Inputs(x, y).
//	    Outputs(e).
//	    AddOp(ops.Add(x, y, e)).
//	    Build()
type Builder struct {
	name    string
	inputs  []*Slot
	outputs []*Slot
	ops     []Op
	errors  []error
}

// NewBuilder creates a new graph builder.
//
// Inputs:
//
//	name - The name for the graph (used in logs and spans).
//
// Outputs:
//
//	*Builder - The builder instance.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:   name,
		ops:    make([]Op, 0),
		errors: make([]error, 0),
	}
}

// Inputs appends declared input slots, in call-argument order.
func (b *Builder) Inputs(slots ...*Slot) *Builder {
	for _, s := range slots {
		if s == nil {
			b.errors = append(b.errors, fmt.Errorf("%w: declared input", ErrNilSlot))
			continue
		}
		b.inputs = append(b.inputs, s)
	}
	return b
}

// Outputs appends declared output slots, in result order.
func (b *Builder) Outputs(slots ...*Slot) *Builder {
	for _, s := range slots {
		if s == nil {
			b.errors = append(b.errors, fmt.Errorf("%w: declared output", ErrNilSlot))
			continue
		}
		b.outputs = append(b.outputs, s)
	}
	return b
}

// AddOp adds an op to the graph.
//
// Description:
//
//	Insertion order is the tie-breaker for Toposort, so adding ops in a
//	sensible order gives a readable execution order.
//
// Inputs:
//
//	op - The op to add. Must not be nil.
//
// Outputs:
//
//	*Builder - The builder for chaining.
func (b *Builder) AddOp(op Op) *Builder {
	if op == nil {
		b.errors = append(b.errors, ErrNilOp)
		return b
	}
	for _, s := range append(append([]*Slot(nil), op.Inputs()...), op.Outputs()...) {
		if s == nil {
			b.errors = append(b.errors, &OpError{OpName: op.Name(), Err: ErrNilSlot})
			return b
		}
	}
	b.ops = append(b.ops, op)
	return b
}

// Build validates and constructs the graph.
//
// Description:
//
//	Checks that every slot has at most one producer, that no op writes a
//	declared input, that every slot read or declared as output is provided
//	by an input, a producer or a constant value, and that there are no
//	cycles.
//
// Outputs:
//
//	*Graph - The constructed graph.
//	error - Non-nil if validation fails.
func (b *Builder) Build() (*Graph, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	isInput := make(map[*Slot]bool, len(b.inputs))
	for _, s := range b.inputs {
		isInput[s] = true
	}

	produced := make(map[*Slot]bool)
	for _, op := range b.ops {
		for _, out := range op.Outputs() {
			if isInput[out] {
				return nil, &OpError{OpName: op.Name(), Err: fmt.Errorf("%w: %s", ErrInputOverwritten, out.Name())}
			}
			if produced[out] {
				return nil, &OpError{OpName: op.Name(), Err: fmt.Errorf("%w: %s", ErrDuplicateProducer, out.Name())}
			}
			produced[out] = true
		}
	}

	provided := func(s *Slot) bool {
		return isInput[s] || produced[s] || s.HasData()
	}
	for _, op := range b.ops {
		for _, in := range op.Inputs() {
			if !provided(in) {
				return nil, &OpError{OpName: op.Name(), Err: fmt.Errorf("%w: %s", ErrUnboundSlot, in.Name())}
			}
		}
	}
	for _, out := range b.outputs {
		if !provided(out) {
			return nil, fmt.Errorf("%w: declared output %s", ErrUnboundSlot, out.Name())
		}
	}

	g := newGraph(b.name, b.inputs, b.outputs, b.ops)
	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// detectCycles uses DFS over op dependencies to find cycles.
func (g *Graph) detectCycles() error {
	visited := make([]bool, len(g.ops))
	recStack := make([]bool, len(g.ops))
	path := make([]int, 0)

	var dfs func(i int) error
	dfs = func(i int) error {
		visited[i] = true
		recStack[i] = true
		path = append(path, i)

		for _, dep := range g.dependencies(i) {
			if !visited[dep] {
				if err := dfs(dep); err != nil {
					return err
				}
			} else if recStack[dep] {
				cycleStart := 0
				for j, n := range path {
					if n == dep {
						cycleStart = j
						break
					}
				}
				names := make([]string, 0, len(path)-cycleStart+1)
				for _, n := range path[cycleStart:] {
					names = append(names, g.ops[n].Name())
				}
				names = append(names, g.ops[dep].Name())
				return &CycleError{Path: names}
			}
		}

		path = path[:len(path)-1]
		recStack[i] = false
		return nil
	}

	for i := range g.ops {
		if !visited[i] {
			if err := dfs(i); err != nil {
				return err
			}
		}
	}
	return nil
}
