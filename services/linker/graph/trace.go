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
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Frame is one entry of a construction-site trace.
type Frame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// String renders the frame the way tracebacks list entries.
func (f Frame) String() string {
	return fmt.Sprintf("File %q, line %d, in %s", f.File, f.Line, f.Function)
}

// Trace records where an op was constructed, innermost frame first.
//
// An empty Trace means provenance is unavailable: the op was built without
// a constructor that captures it, or a rewrite pass produced it.
type Trace []Frame

// IsEmpty reports whether the trace carries no frames.
func (t Trace) IsEmpty() bool {
	return len(t) == 0
}

// String renders one frame per line.
func (t Trace) String() string {
	lines := make([]string, len(t))
	for i, f := range t {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

// stackTracer is implemented by errors created with github.com/pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// CaptureTrace records the calling goroutine's stack.
//
// Inputs:
//
//	skip - Number of frames above the caller of CaptureTrace to drop.
//	       Zero keeps the caller of CaptureTrace as the first frame.
//
// Outputs:
//
//	Trace - The captured frames, or an empty trace if none could be read.
func CaptureTrace(skip int) Trace {
	st, ok := errors.New("construction site").(stackTracer)
	if !ok {
		return nil
	}
	stack := st.StackTrace()

	// stack[0] is CaptureTrace itself.
	skip++
	if skip < 0 || skip >= len(stack) {
		return nil
	}

	trace := make(Trace, 0, len(stack)-skip)
	for _, pc := range stack[skip:] {
		if frame, ok := parseFrame(pc); ok {
			trace = append(trace, frame)
		}
	}
	return trace
}

// SourceTrace builds a single-frame trace for an op defined outside Go code,
// such as a block in a graph definition file.
func SourceTrace(function, file string, line int) Trace {
	return Trace{{Function: function, File: file, Line: line}}
}

// parseFrame converts a pkg/errors frame, whose text form is
// "function file:line", into a Frame.
func parseFrame(pc errors.Frame) (Frame, bool) {
	text, err := pc.MarshalText()
	if err != nil {
		return Frame{}, false
	}
	s := string(text)

	sp := strings.IndexByte(s, ' ')
	if sp < 0 {
		return Frame{}, false
	}
	fn, loc := s[:sp], s[sp+1:]

	colon := strings.LastIndexByte(loc, ':')
	if colon < 0 {
		return Frame{}, false
	}
	line, err := strconv.Atoi(loc[colon+1:])
	if err != nil {
		return Frame{}, false
	}

	return Frame{Function: fn, File: loc[:colon], Line: line}, true
}
