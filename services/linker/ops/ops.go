// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ops provides arithmetic kernels over float64 values for building
// graphs by hand or from graph definition files.
//
// Every constructor records the caller as the op's construction site, so a
// failing op reports where it was created.
package ops

import (
	"errors"
	"fmt"

	"github.com/AleutianAI/opgraph/services/linker/graph"
)

var (
	// ErrDivisionByZero is returned by Div when the divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNotNumeric is returned when an argument is not a number.
	ErrNotNumeric = errors.New("argument is not numeric")
)

// Add returns an op computing out = x + y.
func Add(x, y, out *graph.Slot) *graph.FuncOp {
	return newOp("add", addKernel, []*graph.Slot{x, y}, out)
}

// Sub returns an op computing out = x - y.
func Sub(x, y, out *graph.Slot) *graph.FuncOp {
	return newOp("sub", subKernel, []*graph.Slot{x, y}, out)
}

// Mul returns an op computing out = x * y.
func Mul(x, y, out *graph.Slot) *graph.FuncOp {
	return newOp("mul", mulKernel, []*graph.Slot{x, y}, out)
}

// Div returns an op computing out = x / y. It fails with ErrDivisionByZero
// when y is zero.
func Div(x, y, out *graph.Slot) *graph.FuncOp {
	return newOp("div", divKernel, []*graph.Slot{x, y}, out)
}

// Neg returns an op computing out = -x.
func Neg(x, out *graph.Slot) *graph.FuncOp {
	return newOp("neg", negKernel, []*graph.Slot{x}, out)
}

// Sum returns an op adding any number of arguments. Zero arguments give 0.
func Sum(out *graph.Slot, xs ...*graph.Slot) *graph.FuncOp {
	return newOp("sum", sumKernel, xs, out)
}

// newOp is called by exported constructors only; the trace starts two
// frames up, at the constructor's caller.
func newOp(name string, kernel graph.Kernel, inputs []*graph.Slot, out *graph.Slot) *graph.FuncOp {
	return graph.NewFuncOpDepth(2, name, kernel, inputs, []*graph.Slot{out})
}

func addKernel(args []any) ([]any, error) {
	x, y, err := binary(args)
	if err != nil {
		return nil, err
	}
	return []any{x + y}, nil
}

func subKernel(args []any) ([]any, error) {
	x, y, err := binary(args)
	if err != nil {
		return nil, err
	}
	return []any{x - y}, nil
}

func mulKernel(args []any) ([]any, error) {
	x, y, err := binary(args)
	if err != nil {
		return nil, err
	}
	return []any{x * y}, nil
}

func divKernel(args []any) ([]any, error) {
	x, y, err := binary(args)
	if err != nil {
		return nil, err
	}
	if y == 0 {
		return nil, fmt.Errorf("%w: %v / %v", ErrDivisionByZero, x, y)
	}
	return []any{x / y}, nil
}

func negKernel(args []any) ([]any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("neg takes 1 argument, got %d", len(args))
	}
	x, err := toFloat(args[0])
	if err != nil {
		return nil, err
	}
	return []any{-x}, nil
}

func sumKernel(args []any) ([]any, error) {
	var total float64
	for _, a := range args {
		v, err := toFloat(a)
		if err != nil {
			return nil, err
		}
		total += v
	}
	return []any{total}, nil
}

func binary(args []any) (float64, float64, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("binary op takes 2 arguments, got %d", len(args))
	}
	x, err := toFloat(args[0])
	if err != nil {
		return 0, 0, err
	}
	y, err := toFloat(args[1])
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// toFloat accepts Go's built-in numeric types.
func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %v (%T)", ErrNotNumeric, v, v)
	}
}
