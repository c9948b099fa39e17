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
	"strings"
	"testing"
)

func TestCaptureTrace_StartsAtCaller(t *testing.T) {
	trace := CaptureTrace(0)
	if trace.IsEmpty() {
		t.Fatal("expected a non-empty trace")
	}
	if !strings.HasSuffix(trace[0].Function, "TestCaptureTrace_StartsAtCaller") {
		t.Errorf("first frame = %q, want the test function", trace[0].Function)
	}
	if !strings.HasSuffix(trace[0].File, "trace_test.go") {
		t.Errorf("first frame file = %q, want trace_test.go", trace[0].File)
	}
	if trace[0].Line <= 0 {
		t.Errorf("line = %d, want positive", trace[0].Line)
	}
}

func TestCaptureTrace_SkipOutOfRange(t *testing.T) {
	if trace := CaptureTrace(10000); !trace.IsEmpty() {
		t.Errorf("expected empty trace, got %d frames", len(trace))
	}
}

func TestNewFuncOp_RecordsConstructionSite(t *testing.T) {
	op := NewFuncOp("noop", nil, nil, nil)

	trace := op.Trace()
	if trace.IsEmpty() {
		t.Fatal("expected a construction trace")
	}
	if !strings.HasSuffix(trace[0].Function, "TestNewFuncOp_RecordsConstructionSite") {
		t.Errorf("first frame = %q, want the caller of NewFuncOp", trace[0].Function)
	}
}

func TestSourceTrace(t *testing.T) {
	trace := SourceTrace(`op "add" "sum"`, "graph.hcl", 7)

	want := `File "graph.hcl", line 7, in op "add" "sum"`
	if trace.String() != want {
		t.Errorf("String = %q, want %q", trace.String(), want)
	}
}

func TestTrace_StringJoinsFrames(t *testing.T) {
	trace := Trace{
		{Function: "main.build", File: "main.go", Line: 10},
		{Function: "main.main", File: "main.go", Line: 3},
	}

	lines := strings.Split(trace.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[1] != `File "main.go", line 3, in main.main` {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestSlot_State(t *testing.T) {
	s := NewSlot("x")
	if s.HasData() || s.Data() != nil {
		t.Error("new slot should be empty")
	}
	if s.String() != "x=<empty>" {
		t.Errorf("String = %q", s.String())
	}

	s.SetData(nil)
	if !s.HasData() {
		t.Error("writing nil should still mark the slot written")
	}

	c := NewConstant("k", 2.5)
	if !c.HasData() || c.Data() != 2.5 {
		t.Errorf("constant = %v", c)
	}
}
