// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package link

// Linker turns a graph into runnable units.
//
// Description:
//
//	A Linker is bound to one graph at construction. ProduceThunk returns a
//	repeatable unit of work together with the slots it reads and writes;
//	ProduceCallable wraps that unit as a positional function. A linker that
//	cannot honour a binding returns a *CapabilityError before anything runs.
type Linker interface {
	// ProduceThunk returns a thunk bound to the graph's slots (BindOriginal)
	// or to the slots of an independent clone (BindClone).
	ProduceThunk(b Binding) (*Thunk, error)

	// ProduceCallable returns a Function over ProduceThunk's result. With
	// unpackSingle set and exactly one output, Call returns that value
	// directly; otherwise it returns a []any in declared output order.
	ProduceCallable(b Binding, unpackSingle bool) (*Function, error)
}

var _ Linker = (*PerformLinker)(nil)
