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
	"errors"
	"fmt"

	"github.com/AleutianAI/opgraph/services/linker/graph"
)

// Sentinel errors for the link package.
var (
	// ErrNilGraph is returned when a linker is created without a graph.
	ErrNilGraph = errors.New("graph must not be nil")

	// ErrArity is matched by *ArityError.
	ErrArity = errors.New("wrong number of arguments")

	// ErrCapability is matched by *CapabilityError.
	ErrCapability = errors.New("linker does not support the requested binding")

	// ErrExecution is matched by *ExecutionError.
	ErrExecution = errors.New("op execution failed")
)

// ArityError is returned by Function.Call when the argument count does not
// match the graph's input count. No slot is written when it is returned.
type ArityError struct {
	Expected int
	Got      int
}

// Error returns the error message.
func (e *ArityError) Error() string {
	noun := "argument"
	if e.Expected > 1 {
		noun = "arguments"
	}
	return fmt.Sprintf("function call takes exactly %d %s (%d given)", e.Expected, noun, e.Got)
}

// Is reports whether target is ErrArity.
func (e *ArityError) Is(target error) bool {
	return target == ErrArity
}

// CapabilityError is returned when a linker cannot honour a binding for its
// graph. It is always returned before anything runs.
type CapabilityError struct {
	Binding Binding
	Reason  error
}

// Error returns the error message.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrCapability, e.Binding, e.Reason)
}

// Is reports whether target is ErrCapability.
func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

// Unwrap returns the reason.
func (e *CapabilityError) Unwrap() error {
	return e.Reason
}

// ExecutionError annotates a failure raised while running an op.
//
// Description:
//
//	Err is the op's original error, unchanged. Op is the op that was running
//	and Trace its construction site; an empty Trace means provenance is not
//	available for that op, which is a reporting mode and not a fault.
type ExecutionError struct {
	Op    graph.Op
	Trace graph.Trace
	Err   error
}

// Error returns the error message.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("op %q: %v", e.Op.Name(), e.Err)
}

// Is reports whether target is ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// Unwrap returns the op's original error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// PanicError holds a panic recovered from an op's Perform.
type PanicError struct {
	Value any
	Stack []byte
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
