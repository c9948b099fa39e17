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

	"github.com/mohae/deepcopy"
)

// Slot is a mutable storage cell holding the value that flows along one
// graph edge.
//
// Description:
//
//	A slot holds exactly one current value, or none before its first write.
//	It is shared by every op that reads or writes it. Slot identity matters:
//	two slots with the same name are still different storage.
//
// Thread Safety:
//
//	Slot is NOT safe for concurrent use.
type Slot struct {
	name string
	data any
	set  bool
}

// NewSlot creates an empty slot.
func NewSlot(name string) *Slot {
	return &Slot{name: name}
}

// NewConstant creates a slot that already holds a value.
//
// Constants are slots no op produces and the caller never writes; they keep
// their value for the graph's lifetime and are copied into clones.
func NewConstant(name string, value any) *Slot {
	return &Slot{name: name, data: value, set: true}
}

// Name returns the slot's name.
func (s *Slot) Name() string {
	return s.name
}

// Data returns the current value, or nil if the slot was never written.
func (s *Slot) Data() any {
	return s.data
}

// SetData replaces the current value.
func (s *Slot) SetData(v any) {
	s.data = v
	s.set = true
}

// HasData reports whether the slot has been written.
func (s *Slot) HasData() bool {
	return s.set
}

// String implements fmt.Stringer.
func (s *Slot) String() string {
	if !s.set {
		return s.name + "=<empty>"
	}
	return fmt.Sprintf("%s=%v", s.name, s.data)
}

// copySlot returns a fresh slot with the same name and a deep copy of the
// value, so that mutating the copy's value never reaches the original.
func copySlot(s *Slot) *Slot {
	if !s.set {
		return NewSlot(s.name)
	}
	return NewConstant(s.name, deepcopy.Copy(s.data))
}
