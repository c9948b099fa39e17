// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders linker failures for humans.
//
// A Chain runs its handlers in order against one writer. Compose puts the
// provenance handler in front of a previously installed reporter, so an
// execution failure prints where the failing op was defined before the
// usual error report. Every handler in a chain runs even when an earlier
// one fails; Report returns their failures combined.
package report

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"

	"github.com/AleutianAI/opgraph/services/linker/link"
)

// Handler reports an error to w.
type Handler interface {
	Handle(w io.Writer, err error) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(w io.Writer, err error) error

// Handle calls f(w, err).
func (f HandlerFunc) Handle(w io.Writer, err error) error {
	return f(w, err)
}

// Chain is an ordered list of handlers.
type Chain []Handler

// Handle runs every handler in order and combines their failures.
func (c Chain) Handle(w io.Writer, err error) error {
	var errs error
	for _, h := range c {
		if h == nil {
			continue
		}
		errs = multierr.Append(errs, h.Handle(w, err))
	}
	return errs
}

// Report is Handle, named for call sites.
func (c Chain) Report(w io.Writer, err error) error {
	return c.Handle(w, err)
}

// Compose returns a chain running the provenance handler and then prev.
// A nil prev is replaced by DefaultHandler.
func Compose(prev Handler) Chain {
	if prev == nil {
		prev = DefaultHandler
	}
	return Chain{ProvenanceHandler, prev}
}

// DefaultHandler prints "error: <err>".
var DefaultHandler Handler = HandlerFunc(func(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "error: %v\n", err)
	return werr
})

// ProvenanceHandler prints the definition site of the op behind a
// *link.ExecutionError. Other errors are ignored.
var ProvenanceHandler Handler = HandlerFunc(writeProvenance)

// Text printed when an execution error carries no trace.
const (
	missingTrace     = "Could not find where this Op was defined."
	hintConstructor  = " * You might have instantiated this Op directly instead of using a constructor."
	hintOptimization = " * The Op you constructed might have been optimized. Try turning off optimizations."
	definitionHeader = "Definition in:"
)

func writeProvenance(w io.Writer, err error) error {
	var execErr *link.ExecutionError
	if !errors.As(err, &execErr) {
		return nil
	}

	var errs error
	line := func(s string) {
		_, werr := fmt.Fprintln(w, s)
		errs = multierr.Append(errs, werr)
	}

	if execErr.Trace.IsEmpty() {
		line(missingTrace)
		line(hintConstructor)
		line(hintOptimization)
		return errs
	}

	line(definitionHeader)
	for _, frame := range execErr.Trace {
		line("  " + frame.String())
	}
	return errs
}

var (
	installOnce sync.Once
	installed   Chain
)

// Install sets the process-wide chain. Only the first call has an effect;
// it reports whether this call installed c.
func Install(c Chain) bool {
	done := false
	installOnce.Do(func() {
		installed = c
		done = true
	})
	return done
}

// Installed returns the process-wide chain. If nothing was installed yet it
// installs Compose(DefaultHandler), after which Install has no effect.
func Installed() Chain {
	installOnce.Do(func() {
		installed = Compose(DefaultHandler)
	})
	return installed
}

// Report sends err through the installed chain.
func Report(w io.Writer, err error) error {
	return Installed().Report(w, err)
}
