// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package link turns a dataflow graph into runnable thunks and callables.
//
// # Overview
//
// A linker is bound to one graph.Graph. ProduceThunk fixes a topological
// order once and returns a Thunk that replays it on every Run; ProduceCallable
// wraps a thunk as a Function taking one positional argument per graph input.
//
//	graph.Graph ──ProduceThunk──▶ Thunk{order, inputs, outputs}
//	                                  │
//	              ProduceCallable ────┘──▶ Function.Call(args...) ──▶ outputs
//
// # Bindings
//
// BindClone, the zero value, runs against an independent clone: the
// original graph's slots never change. BindOriginal runs against the graph's
// own slots, so every run leaves its latest values there.
//
// # Failures
//
// A failing op stops the run. The returned *ExecutionError names the op and
// carries its construction trace; the op's own error stays reachable through
// errors.Is and errors.As. The report package renders the trace.
//
// # Example
//
//	x, y, e := graph.NewSlot("x"), graph.NewSlot("y"), graph.NewSlot("e")
//	g, _ := graph.NewBuilder("sum").Inputs(x, y).Outputs(e).AddOp(ops.Add(x, y, e)).Build()
//
//	l, _ := link.NewPerformLinker(g)
//	fn, _ := l.ProduceCallable(link.BindClone, true)
//	v, _ := fn.Call(1.0, 2.0) // 3.0; e is still empty
package link
