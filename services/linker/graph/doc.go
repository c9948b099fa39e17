// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the dataflow graph container consumed by the linker.
//
// A Graph is a set of operations (Op) connected through shared storage
// cells (Slot). Some slots are declared as the graph's inputs and outputs;
// the remaining slots are intermediate results or constants.
//
//	x ──┐
//	    ├─► add ──► s ──┐
//	y ──┘               ├─► mul ──► e
//	            two ────┘
//
// Graphs are built once with a Builder and never change topology
// afterwards. Two operations support the linker:
//   - Toposort returns a deterministic dependency order of the ops the
//     outputs depend on.
//   - Clone returns an independent copy with fresh slots, so that running
//     the copy never touches the original graph's storage.
//
// # Provenance
//
// Every op may carry a Trace: the place where it was constructed. NewFuncOp
// captures the caller's stack; ops decoded from files carry a SourceTrace
// pointing at their definition. An op built as a struct literal has an empty
// trace, which is a valid state and not an error.
//
// # Thread Safety
//
// A built Graph is safe for concurrent reads. Slots are not synchronized:
// running two thunks against the same slot set concurrently is a data race.
//
// # Example
//
//	x, y, e := graph.NewSlot("x"), graph.NewSlot("y"), graph.NewSlot("e")
//	add := ops.Add(x, y, e)
//
//	g, err := graph.NewBuilder("sum").
//	    Inputs(x, y).
//	    Outputs(e).
//	    AddOp(add).
//	    Build()
package graph
