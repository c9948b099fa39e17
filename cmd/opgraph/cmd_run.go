// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/opgraph/services/linker/graph"
	"github.com/AleutianAI/opgraph/services/linker/graphfile"
	"github.com/AleutianAI/opgraph/services/linker/link"
	"github.com/AleutianAI/opgraph/services/telemetry"
)

var tracer = otel.Tracer("opgraph.cli")

func (c *cli) loadGraph(path string) (*graph.Graph, error) {
	if err := checkGraphPath(path); err != nil {
		return nil, err
	}
	g, err := graphfile.Load(path)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("graph loaded",
		slog.String("path", path),
		slog.String("graph", g.Name()),
		slog.Int("ops", g.OpCount()),
	)
	return g, nil
}

func (c *cli) runGraph(cmd *cobra.Command, args []string) error {
	g, err := c.loadGraph(args[0])
	if err != nil {
		return err
	}

	values, err := parseArgs(args[1:])
	if err != nil {
		return err
	}

	binding := link.BindClone
	if c.cfg.Linker.InPlace {
		binding = link.BindOriginal
	}

	ctx, span := tracer.Start(cmd.Context(), "opgraph.run",
		trace.WithAttributes(
			attribute.String("graph", g.Name()),
			attribute.String("binding", binding.String()),
		),
	)
	defer span.End()
	logger := telemetry.LoggerWithTrace(ctx, c.logger.Slog())

	l, err := link.NewPerformLinker(g, link.WithLogger(logger))
	if err != nil {
		return err
	}
	fn, err := l.ProduceCallable(binding, c.cfg.Linker.UnpackSingle)
	if err != nil {
		return err
	}

	result, err := fn.CallContext(ctx, values...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), formatValue(result))
	return nil
}

func (c *cli) printOrder(cmd *cobra.Command, args []string) error {
	g, err := c.loadGraph(args[0])
	if err != nil {
		return err
	}
	writeOrder(cmd.OutOrStdout(), g.Toposort())
	return nil
}

// writeOrder prints one line per op: position, name and definition site.
func writeOrder(w io.Writer, order []graph.Op) {
	for i, op := range order {
		site := "<unknown>"
		if tr := op.Trace(); !tr.IsEmpty() {
			site = fmt.Sprintf("%s:%d", tr[0].File, tr[0].Line)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, op.Name(), site)
	}
}

// parseArgs parses command-line arguments as float64 values.
func parseArgs(args []string) ([]any, error) {
	values := make([]any, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q) is not a number: %w", i+1, a, err)
		}
		values[i] = v
	}
	return values, nil
}

// formatValue renders a result; lists print as [a b c].
func formatValue(v any) string {
	list, ok := v.([]any)
	if !ok {
		return fmt.Sprint(v)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = formatValue(item)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
