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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/opgraph/services/linker/graph"
	"github.com/AleutianAI/opgraph/services/linker/ops"
)

func TestFunction_Sum(t *testing.T) {
	testCases := []struct {
		name         string
		binding      Binding
		originalSeen bool
	}{
		{"clone", BindClone, false},
		{"original", BindOriginal, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, _, _, e := sumGraph(t)
			l, err := NewPerformLinker(g)
			require.NoError(t, err)

			fn, err := l.ProduceCallable(tc.binding, true)
			require.NoError(t, err)

			v, err := fn.Call(1.0, 2.0)
			require.NoError(t, err)
			assert.Equal(t, 3.0, v)

			assert.Equal(t, tc.originalSeen, e.HasData())
			if tc.originalSeen {
				assert.Equal(t, 3.0, e.Data())
			}
		})
	}
}

func TestFunction_RepeatedCalls(t *testing.T) {
	g, _, _, e := sumGraph(t)
	l, err := NewPerformLinker(g)
	require.NoError(t, err)

	fn, err := l.ProduceCallable(BindOriginal, true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := fn.Call(float64(i), 10.0)
		require.NoError(t, err)
		assert.Equal(t, float64(i)+10, v)
		assert.Equal(t, float64(i)+10, e.Data())
	}
}

func TestFunction_CloneLeavesSeededOriginal(t *testing.T) {
	g, x, y, e := sumGraph(t)
	x.SetData(10.0)
	y.SetData(20.0)
	e.SetData(30.0)

	l, err := NewPerformLinker(g)
	require.NoError(t, err)
	fn, err := l.ProduceCallable(BindClone, true)
	require.NoError(t, err)

	v, err := fn.Call(1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = fn.Call(4.0, 5.0)
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	assert.Equal(t, 10.0, x.Data())
	assert.Equal(t, 20.0, y.Data())
	assert.Equal(t, 30.0, e.Data())
}

func TestFunction_Arity(t *testing.T) {
	g, x, y, _ := sumGraph(t)
	l, err := NewPerformLinker(g)
	require.NoError(t, err)

	fn, err := l.ProduceCallable(BindOriginal, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fn.Arity())

	_, err = fn.Call(1.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArity)
	assert.Equal(t, "function call takes exactly 2 arguments (1 given)", err.Error())

	var arityErr *ArityError
	require.ErrorAs(t, err, &arityErr)
	assert.Equal(t, 2, arityErr.Expected)
	assert.Equal(t, 1, arityErr.Got)

	_, err = fn.Call(1.0, 2.0, 3.0)
	assert.ErrorIs(t, err, ErrArity)

	assert.False(t, x.HasData(), "input written despite arity error")
	assert.False(t, y.HasData(), "input written despite arity error")
}

func TestArityError_Singular(t *testing.T) {
	err := &ArityError{Expected: 1, Got: 0}
	assert.Equal(t, "function call takes exactly 1 argument (0 given)", err.Error())
}

func TestFunction_Unpacking(t *testing.T) {
	g, _, _, _ := sumGraph(t)
	l, err := NewPerformLinker(g)
	require.NoError(t, err)

	packed, err := l.ProduceCallable(BindClone, false)
	require.NoError(t, err)

	v, err := packed.Call(1.0, 2.0)
	require.NoError(t, err)
	assert.Equal(t, []any{3.0}, v)
}

func TestFunction_MultipleOutputs(t *testing.T) {
	x, y := graph.NewSlot("x"), graph.NewSlot("y")
	s, d := graph.NewSlot("s"), graph.NewSlot("d")

	g, err := graph.NewBuilder("sumdiff").
		Inputs(x, y).
		Outputs(d, s).
		AddOp(ops.Add(x, y, s)).
		AddOp(ops.Sub(x, y, d)).
		Build()
	require.NoError(t, err)

	l, err := NewPerformLinker(g)
	require.NoError(t, err)

	for _, unpack := range []bool{true, false} {
		fn, err := l.ProduceCallable(BindClone, unpack)
		require.NoError(t, err)

		v, err := fn.Call(5.0, 3.0)
		require.NoError(t, err)
		assert.Equal(t, []any{2.0, 8.0}, v, "outputs follow declared order")
	}
}

func TestFunction_NoInputs(t *testing.T) {
	c := graph.NewConstant("c", 4.0)
	out := graph.NewSlot("out")
	g, err := graph.NewBuilder("const").Outputs(out).AddOp(ops.Neg(c, out)).Build()
	require.NoError(t, err)

	l, err := NewPerformLinker(g)
	require.NoError(t, err)
	fn, err := l.ProduceCallable(BindClone, true)
	require.NoError(t, err)

	v, err := fn.Call()
	require.NoError(t, err)
	assert.Equal(t, -4.0, v)

	_, err = fn.Call(1.0)
	assert.EqualError(t, err, "function call takes exactly 0 argument (1 given)")
}
