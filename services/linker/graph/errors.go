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
	"fmt"
	"strings"
)

// Sentinel errors for the graph package.
var (
	// ErrNilOp is returned when a nil op is added to a builder.
	ErrNilOp = errors.New("op must not be nil")

	// ErrNilSlot is returned when a nil slot is declared or referenced.
	ErrNilSlot = errors.New("slot must not be nil")

	// ErrDuplicateProducer is returned when two ops write the same slot.
	ErrDuplicateProducer = errors.New("slot has more than one producer")

	// ErrInputOverwritten is returned when an op writes a declared input slot.
	ErrInputOverwritten = errors.New("op writes a declared input slot")

	// ErrUnboundSlot is returned when a slot is read but nothing provides it:
	// it is not a declared input, no op produces it and it holds no value.
	ErrUnboundSlot = errors.New("slot is never provided")

	// ErrCycleDetected is returned when the producer/consumer relation has a cycle.
	ErrCycleDetected = errors.New("cycle detected in graph")

	// ErrNotCloneable is returned when a graph contains an op that cannot
	// be rebound to fresh slots.
	ErrNotCloneable = errors.New("graph is not cloneable")

	// ErrInvalidOp is returned when an op is not runnable as constructed.
	ErrInvalidOp = errors.New("invalid op")

	// ErrResultCount is returned when a kernel returns the wrong number of values.
	ErrResultCount = errors.New("kernel result count mismatch")
)

// OpError wraps a construction error with the op that caused it.
type OpError struct {
	OpName string
	Err    error
}

// Error returns the error message.
func (e *OpError) Error() string {
	return fmt.Sprintf("op %q: %v", e.OpName, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// CycleError provides details about a detected cycle.
type CycleError struct {
	// Path lists op names along the cycle; the first and last entries match.
	Path []string
}

// Error returns the cycle description.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycleDetected, strings.Join(e.Path, " -> "))
}

// Is reports whether target is ErrCycleDetected.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}
