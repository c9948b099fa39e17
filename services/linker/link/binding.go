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

// Binding selects which storage a thunk runs against.
type Binding int

const (
	// BindClone runs against an independent clone of the graph. Results
	// never reach the original graph's slots. It is the zero value.
	BindClone Binding = iota

	// BindOriginal runs against the graph's own slots. Every run overwrites
	// the values the caller sees in the original graph's inputs, outputs and
	// intermediate slots.
	BindOriginal
)

// String returns the binding's name.
func (b Binding) String() string {
	switch b {
	case BindClone:
		return "clone"
	case BindOriginal:
		return "original"
	default:
		return fmt.Sprintf("Binding(%d)", int(b))
	}
}

// binder selects the graph a thunk is bound to.
type binder interface {
	bind(g *graph.Graph) (*graph.Graph, error)
}

type originalBinder struct{}

func (originalBinder) bind(g *graph.Graph) (*graph.Graph, error) {
	return g, nil
}

type cloneBinder struct{}

func (cloneBinder) bind(g *graph.Graph) (*graph.Graph, error) {
	if !g.Cloneable() {
		return nil, &CapabilityError{Binding: BindClone, Reason: graph.ErrNotCloneable}
	}
	c, err := g.Clone()
	if err != nil {
		return nil, &CapabilityError{Binding: BindClone, Reason: err}
	}
	return c, nil
}

// binderFor maps a Binding to its variant.
func binderFor(b Binding) (binder, error) {
	switch b {
	case BindClone:
		return cloneBinder{}, nil
	case BindOriginal:
		return originalBinder{}, nil
	default:
		return nil, &CapabilityError{Binding: b, Reason: errors.New("unknown binding")}
	}
}
