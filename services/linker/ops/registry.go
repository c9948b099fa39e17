// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ops

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/AleutianAI/opgraph/services/linker/graph"
)

var (
	// ErrUnknownKind is returned when a registry has no entry for a kind.
	ErrUnknownKind = errors.New("unknown op kind")

	// ErrKindArity is returned when an op is declared with the wrong number
	// of arguments or results for its kind.
	ErrKindArity = errors.New("wrong number of slots for op kind")
)

// Kind describes one registered op kind.
type Kind struct {
	// Name is the kind name used in graph definition files.
	Name string

	// Args is the required argument count, or -1 for any count.
	Args int

	// Kernel computes the single result.
	Kernel graph.Kernel
}

// Registry maps kind names to kernels.
//
// Thread Safety:
//
//	Registry is safe for concurrent lookups once populated. Register is
//	NOT safe for concurrent use.
type Registry struct {
	kinds map[string]Kind
}

// NewRegistry returns a registry holding the arithmetic kinds
// add, sub, mul, div, neg and sum.
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]Kind)}
	r.Register(Kind{Name: "add", Args: 2, Kernel: addKernel})
	r.Register(Kind{Name: "sub", Args: 2, Kernel: subKernel})
	r.Register(Kind{Name: "mul", Args: 2, Kernel: mulKernel})
	r.Register(Kind{Name: "div", Args: 2, Kernel: divKernel})
	r.Register(Kind{Name: "neg", Args: 1, Kernel: negKernel})
	r.Register(Kind{Name: "sum", Args: -1, Kernel: sumKernel})
	return r
}

// Register adds or replaces a kind.
func (r *Registry) Register(k Kind) {
	r.kinds[k.Name] = k
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	names := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an op of the given kind.
//
// Inputs:
//
//	kind - The registered kind name.
//	name - The op name.
//	inputs - Argument slots.
//	outputs - Result slots. Every kind has exactly one result.
//
// Outputs:
//
//	*graph.FuncOp - The op. Its trace is the caller of New; callers that know
//	                a better origin (such as a file position) may replace it.
//	error - ErrUnknownKind or ErrKindArity.
func (r *Registry) New(kind, name string, inputs, outputs []*graph.Slot) (*graph.FuncOp, error) {
	k, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownKind, kind, r.Kinds())
	}
	if k.Args >= 0 && len(inputs) != k.Args {
		return nil, fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrKindArity, kind, k.Args, len(inputs))
	}
	if len(outputs) != 1 {
		return nil, fmt.Errorf("%w: %s has 1 result, got %d", ErrKindArity, kind, len(outputs))
	}
	return graph.NewFuncOpDepth(1, name, k.Kernel, slices.Clone(inputs), slices.Clone(outputs)), nil
}
