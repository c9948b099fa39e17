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

import (
	"context"

	"github.com/AleutianAI/opgraph/services/linker/graph"
)

// Function calls a thunk with positional arguments.
//
// Description:
//
//	Call writes its arguments into the thunk's input slots by position, runs
//	the thunk and reads the output slots in declared order. A Function built
//	with BindOriginal writes the original graph's slots on every call, so
//	the caller sees the latest arguments and results there.
//
// Thread Safety:
//
//	Function is NOT safe for concurrent use.
type Function struct {
	thunk        *Thunk
	unpackSingle bool
}

// Thunk returns the underlying thunk.
func (f *Function) Thunk() *Thunk {
	return f.thunk
}

// Arity returns the number of arguments Call expects.
func (f *Function) Arity() int {
	return len(f.thunk.inputs)
}

// Call is CallContext with a background context.
func (f *Function) Call(args ...any) (any, error) {
	return f.CallContext(context.Background(), args...)
}

// CallContext runs the graph on args.
//
// Inputs:
//
//	ctx - Parent context for the run's span.
//	args - One value per graph input, in declared order.
//
// Outputs:
//
//	any - The single output value when unpacking applies, else a []any
//	      holding every output in declared order.
//	error - *ArityError (before any slot is written) or *ExecutionError.
func (f *Function) CallContext(ctx context.Context, args ...any) (any, error) {
	inputs := f.thunk.inputs
	if len(args) != len(inputs) {
		return nil, &ArityError{Expected: len(inputs), Got: len(args)}
	}
	for i, arg := range args {
		inputs[i].SetData(arg)
	}

	if err := f.thunk.Run(ctx); err != nil {
		return nil, err
	}

	return f.results(f.thunk.outputs), nil
}

func (f *Function) results(outputs []*graph.Slot) any {
	if f.unpackSingle && len(outputs) == 1 {
		return outputs[0].Data()
	}
	values := make([]any, len(outputs))
	for i, out := range outputs {
		values[i] = out.Data()
	}
	return values
}
