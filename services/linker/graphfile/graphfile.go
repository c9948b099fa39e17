// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graphfile loads graphs from HCL definition files.
//
// A file declares the graph's inputs and outputs by slot name, constant
// slots, and ops whose kind is looked up in an ops.Registry:
//
//	name    = "scaled_sum"
//	inputs  = ["x", "y"]
//	outputs = ["e"]
//
//	constant "two" { value = 2 }
//
//	op "add" "sum" {
//	  args    = ["x", "y"]
//	  results = ["s"]
//	}
//
//	op "mul" "scale" {
//	  args    = ["s", "two"]
//	  results = ["e"]
//	}
//
// Ops may appear in any order. Each op's trace points at its block, so a
// failing op reports the file and line it was defined on.
package graphfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/AleutianAI/opgraph/services/linker/graph"
	"github.com/AleutianAI/opgraph/services/linker/ops"
)

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "name"},
		{Name: "inputs"},
		{Name: "outputs", Required: true},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "constant", LabelNames: []string{"name"}},
		{Type: "op", LabelNames: []string{"kind", "name"}},
	},
}

var constantSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "value", Required: true},
	},
}

var opSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "args"},
		{Name: "results", Required: true},
	},
}

// Option configures loading.
type Option func(*loader)

// WithRegistry sets the registry op kinds are resolved against.
// The default is ops.NewRegistry().
func WithRegistry(r *ops.Registry) Option {
	return func(l *loader) {
		if r != nil {
			l.registry = r
		}
	}
}

// Load parses the HCL file at path and builds its graph.
//
// Outputs:
//
//	*graph.Graph - The graph.
//	error - Wraps hcl.Diagnostics for syntax and definition errors, or a
//	        graph construction error such as *graph.CycleError.
func Load(path string, opts ...Option) (*graph.Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}
	return newLoader(opts).build(file.Body, path)
}

// Parse builds a graph from HCL source. filename is used in diagnostics and
// op traces.
func Parse(src []byte, filename string, opts ...Option) (*graph.Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	return newLoader(opts).build(file.Body, filename)
}

type loader struct {
	registry *ops.Registry
	slots    map[string]*graph.Slot
	diags    hcl.Diagnostics
}

func newLoader(opts []Option) *loader {
	l := &loader{
		registry: ops.NewRegistry(),
		slots:    make(map[string]*graph.Slot),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// opDecl is an op block with its slot names decoded.
type opDecl struct {
	kind, name    string
	args, results []string
	argsRange     hcl.Range
	defRange      hcl.Range
}

func (l *loader) build(body hcl.Body, filename string) (*graph.Graph, error) {
	content, diags := body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if attr, ok := content.Attributes["name"]; ok {
		l.diags = append(l.diags, gohcl.DecodeExpression(attr.Expr, nil, &name)...)
	}

	var inputNames []string
	var inputsRange hcl.Range
	if attr, ok := content.Attributes["inputs"]; ok {
		l.diags = append(l.diags, gohcl.DecodeExpression(attr.Expr, nil, &inputNames)...)
		inputsRange = attr.Range
	}
	var outputNames []string
	outputsAttr := content.Attributes["outputs"]
	l.diags = append(l.diags, gohcl.DecodeExpression(outputsAttr.Expr, nil, &outputNames)...)

	inputs := make([]*graph.Slot, 0, len(inputNames))
	for _, n := range inputNames {
		s := graph.NewSlot(n)
		if l.define(n, s, inputsRange) {
			inputs = append(inputs, s)
		}
	}

	for _, block := range content.Blocks.OfType("constant") {
		l.constant(block)
	}

	decls := l.decodeOps(content.Blocks.OfType("op"))
	if l.diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, l.diags)
	}

	b := graph.NewBuilder(name).Inputs(inputs...)
	for _, d := range decls {
		op, ok := l.newOp(d)
		if ok {
			b.AddOp(op)
		}
	}
	outputs := make([]*graph.Slot, 0, len(outputNames))
	for _, n := range outputNames {
		if s, ok := l.lookup(n, outputsAttr.Range); ok {
			outputs = append(outputs, s)
		}
	}
	if l.diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, l.diags)
	}

	g, err := b.Outputs(outputs...).Build()
	if err != nil {
		return nil, fmt.Errorf("invalid graph in %s: %w", filename, err)
	}
	return g, nil
}

// define registers a slot name, reporting a diagnostic on redefinition.
func (l *loader) define(name string, s *graph.Slot, rng hcl.Range) bool {
	if _, exists := l.slots[name]; exists {
		l.diags = append(l.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Duplicate slot definition",
			Detail:   fmt.Sprintf("A slot named '%s' has already been defined.", name),
			Subject:  rng.Ptr(),
		})
		return false
	}
	l.slots[name] = s
	return true
}

func (l *loader) lookup(name string, rng hcl.Range) (*graph.Slot, bool) {
	s, ok := l.slots[name]
	if !ok {
		l.diags = append(l.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Undefined slot",
			Detail:   fmt.Sprintf("No input, constant or op result is named '%s'.", name),
			Subject:  rng.Ptr(),
		})
	}
	return s, ok
}

func (l *loader) constant(block *hcl.Block) {
	name := block.Labels[0]
	content, diags := block.Body.Content(constantSchema)
	l.diags = append(l.diags, diags...)
	if diags.HasErrors() {
		return
	}

	attr := content.Attributes["value"]
	v, diags := attr.Expr.Value(nil)
	l.diags = append(l.diags, diags...)
	if diags.HasErrors() {
		return
	}

	native, err := ctyToNative(v)
	if err != nil {
		l.diags = append(l.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unsupported constant value",
			Detail:   err.Error(),
			Subject:  attr.Expr.Range().Ptr(),
		})
		return
	}
	l.define(name, graph.NewConstant(name, native), block.DefRange)
}

// decodeOps decodes every op block and defines its result slots, so args can
// refer to results of ops declared later in the file.
func (l *loader) decodeOps(blocks hcl.Blocks) []opDecl {
	seen := make(map[string]bool)
	decls := make([]opDecl, 0, len(blocks))

	for _, block := range blocks {
		d := opDecl{kind: block.Labels[0], name: block.Labels[1], defRange: block.DefRange}

		if seen[d.name] {
			l.diags = append(l.diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate op definition",
				Detail:   fmt.Sprintf("An op named '%s' has already been defined.", d.name),
				Subject:  &block.DefRange,
			})
			continue
		}
		seen[d.name] = true

		if _, ok := l.registry.Lookup(d.kind); !ok {
			l.diags = append(l.diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unknown op kind",
				Detail:   fmt.Sprintf("Op kind '%s' is not registered. Known kinds: %s.", d.kind, strings.Join(l.registry.Kinds(), ", ")),
				Subject:  block.LabelRanges[0].Ptr(),
			})
			continue
		}

		content, diags := block.Body.Content(opSchema)
		l.diags = append(l.diags, diags...)
		if diags.HasErrors() {
			continue
		}
		if attr, ok := content.Attributes["args"]; ok {
			l.diags = append(l.diags, gohcl.DecodeExpression(attr.Expr, nil, &d.args)...)
			d.argsRange = attr.Range
		}
		results := content.Attributes["results"]
		l.diags = append(l.diags, gohcl.DecodeExpression(results.Expr, nil, &d.results)...)

		for _, r := range d.results {
			l.define(r, graph.NewSlot(r), results.Range)
		}
		decls = append(decls, d)
	}
	return decls
}

func (l *loader) newOp(d opDecl) (graph.Op, bool) {
	args := make([]*graph.Slot, 0, len(d.args))
	for _, n := range d.args {
		s, ok := l.lookup(n, d.argsRange)
		if !ok {
			return nil, false
		}
		args = append(args, s)
	}
	results := make([]*graph.Slot, len(d.results))
	for i, n := range d.results {
		results[i] = l.slots[n]
	}

	op, err := l.registry.New(d.kind, d.name, args, results)
	if err != nil {
		l.diags = append(l.diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid op",
			Detail:   err.Error(),
			Subject:  d.defRange.Ptr(),
		})
		return nil, false
	}
	op.OpTrace = graph.SourceTrace(
		fmt.Sprintf("op %q %q", d.kind, d.name),
		d.defRange.Filename,
		d.defRange.Start.Line,
	)
	return op, true
}

// ctyToNative converts a constant's value to the Go value ops read.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, fmt.Errorf("constant must be a known, non-null value")
	}

	ty := v.Type()
	switch {
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert number to float64: %w", err)
		}
		return f, nil

	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType():
		values := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			values = append(values, native)
		}
		return values, nil

	default:
		return nil, fmt.Errorf("unsupported constant type %s", ty.FriendlyName())
	}
}
