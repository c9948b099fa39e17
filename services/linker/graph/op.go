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

// Op is a computation node in a graph.
//
// Description:
//
//	An op references a fixed list of input and output slots. Perform reads
//	the inputs and writes the outputs; it has no other effect the linker
//	relies on. Ops are invoked, never mutated, by the linker.
type Op interface {
	// Name returns a human-readable identifier (not required to be unique).
	Name() string

	// Inputs returns the slots the op reads, in argument order.
	Inputs() []*Slot

	// Outputs returns the slots the op writes, in result order.
	Outputs() []*Slot

	// Perform runs the op's kernel against its slots.
	//
	// Outputs:
	//   error - Non-nil if the computation failed. Slots written before the
	//           failure keep their new values.
	Perform() error

	// Trace returns where the op was constructed. An empty trace is valid.
	Trace() Trace
}

// Rebinder is implemented by ops that can be re-created against different
// slots. Graph.Clone requires every op to implement it.
type Rebinder interface {
	Op

	// Rebind returns a new op performing the same computation on the given
	// slots. The receiver is left unchanged and the trace is preserved.
	Rebind(inputs, outputs []*Slot) Op
}

// BaseOp provides the slot and provenance bookkeeping shared by ops.
//
// Embed it in concrete ops and override Perform.
type BaseOp struct {
	OpName    string
	OpInputs  []*Slot
	OpOutputs []*Slot
	OpTrace   Trace
}

// Name returns the op's name.
func (o *BaseOp) Name() string {
	return o.OpName
}

// Inputs returns the input slots.
func (o *BaseOp) Inputs() []*Slot {
	return o.OpInputs
}

// Outputs returns the output slots.
func (o *BaseOp) Outputs() []*Slot {
	return o.OpOutputs
}

// Trace returns the construction-site trace.
func (o *BaseOp) Trace() Trace {
	return o.OpTrace
}

// Perform returns an error if called directly.
// Concrete ops must override this method.
func (o *BaseOp) Perform() error {
	return fmt.Errorf("%w: BaseOp.Perform must be overridden by concrete op %q", ErrInvalidOp, o.OpName)
}

// String implements fmt.Stringer.
func (o *BaseOp) String() string {
	return fmt.Sprintf("%s(%v -> %v)", o.OpName, o.OpInputs, o.OpOutputs)
}

// Kernel computes an op's results from its argument values.
type Kernel func(args []any) ([]any, error)

// FuncOp wraps a Kernel as an Op.
//
// Example:
//
//	double := graph.NewFuncOp("double", func(args []any) ([]any, error) {
//	    return []any{args[0].(float64) * 2}, nil
//	}, []*graph.Slot{x}, []*graph.Slot{y})
type FuncOp struct {
	BaseOp
	Kernel Kernel
}

// NewFuncOp creates an op from a kernel and records the caller as its
// construction site.
//
// Inputs:
//
//	name - The op name.
//	kernel - The computation. Must return one value per output slot.
//	inputs - Slots read, in argument order.
//	outputs - Slots written, in result order.
//
// Outputs:
//
//	*FuncOp - The op, with a trace starting at the caller of NewFuncOp.
func NewFuncOp(name string, kernel Kernel, inputs, outputs []*Slot) *FuncOp {
	return NewFuncOpDepth(1, name, kernel, inputs, outputs)
}

// NewFuncOpDepth is NewFuncOp for constructor helpers: depth is the number of
// wrapper frames between the user's call and NewFuncOpDepth, so the trace
// starts at the user's call rather than inside the helper.
func NewFuncOpDepth(depth int, name string, kernel Kernel, inputs, outputs []*Slot) *FuncOp {
	return &FuncOp{
		BaseOp: BaseOp{
			OpName:    name,
			OpInputs:  inputs,
			OpOutputs: outputs,
			OpTrace:   CaptureTrace(depth + 1),
		},
		Kernel: kernel,
	}
}

// Perform reads the input slots, runs the kernel and writes its results.
func (o *FuncOp) Perform() error {
	if o.Kernel == nil {
		return fmt.Errorf("%w: op %q has no kernel", ErrInvalidOp, o.OpName)
	}

	args := make([]any, len(o.OpInputs))
	for i, in := range o.OpInputs {
		args[i] = in.Data()
	}

	results, err := o.Kernel(args)
	if err != nil {
		return err
	}
	if len(results) != len(o.OpOutputs) {
		return fmt.Errorf("%w: op %q returned %d values for %d outputs",
			ErrResultCount, o.OpName, len(results), len(o.OpOutputs))
	}

	for i, out := range o.OpOutputs {
		out.SetData(results[i])
	}
	return nil
}

// Rebind implements Rebinder.
func (o *FuncOp) Rebind(inputs, outputs []*Slot) Op {
	return &FuncOp{
		BaseOp: BaseOp{
			OpName:    o.OpName,
			OpInputs:  inputs,
			OpOutputs: outputs,
			OpTrace:   o.OpTrace,
		},
		Kernel: o.Kernel,
	}
}

var _ Rebinder = (*FuncOp)(nil)
