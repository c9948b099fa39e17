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
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/opgraph/services/linker/graph"
)

var (
	tracer = otel.Tracer("opgraph.link")
	meter  = otel.Meter("opgraph.link")
)

// PerformLinker runs a graph by calling each op's Perform in a fixed
// topological order.
//
// Description:
//
//	The order is computed once per thunk and replayed on every run. A
//	failing op stops the run; the error is returned as an *ExecutionError
//	carrying the op and its construction trace. Slots written before the
//	failure keep their values.
//
// Thread Safety:
//
//	PerformLinker is safe for concurrent use. The thunks it produces are not:
//	a thunk must not run concurrently with itself or with any other thunk
//	bound to the same slots.
type PerformLinker struct {
	graph  *graph.Graph
	logger *slog.Logger

	// Metrics (initialized lazily)
	metricsOnce   sync.Once
	thunkRuns     metric.Int64Counter
	thunkFailures metric.Int64Counter
	thunkLatency  metric.Float64Histogram
}

// Option configures a PerformLinker.
type Option func(*PerformLinker)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *PerformLinker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewPerformLinker creates a linker for a graph.
//
// Inputs:
//
//	g - The graph to link. Must not be nil.
//	opts - Optional configuration.
//
// Outputs:
//
//	*PerformLinker - The linker.
//	error - ErrNilGraph if g is nil.
func NewPerformLinker(g *graph.Graph, opts ...Option) (*PerformLinker, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	l := &PerformLinker{
		graph:  g,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Graph returns the graph the linker was created for.
func (l *PerformLinker) Graph() *graph.Graph {
	return l.graph
}

// initMetrics lazily initializes metrics.
// Logs errors if metric creation fails but continues (graceful degradation).
func (l *PerformLinker) initMetrics() {
	l.metricsOnce.Do(func() {
		var initErrors []string

		var err error
		l.thunkRuns, err = meter.Int64Counter("linker_thunk_runs_total",
			metric.WithDescription("Number of thunk runs"),
		)
		if err != nil {
			initErrors = append(initErrors, "thunk_runs: "+err.Error())
		}

		l.thunkFailures, err = meter.Int64Counter("linker_thunk_failures_total",
			metric.WithDescription("Number of thunk runs that stopped on a failing op"),
		)
		if err != nil {
			initErrors = append(initErrors, "thunk_failures: "+err.Error())
		}

		l.thunkLatency, err = meter.Float64Histogram("linker_thunk_duration_seconds",
			metric.WithDescription("Time spent running a thunk"),
			metric.WithUnit("s"),
		)
		if err != nil {
			initErrors = append(initErrors, "thunk_latency: "+err.Error())
		}

		if len(initErrors) > 0 {
			l.logger.Error("failed to initialize some linker metrics (observability degraded)",
				slog.Int("failed_count", len(initErrors)),
				slog.Any("errors", initErrors),
			)
		}
	})
}

// ProduceThunk returns a thunk for the requested binding.
//
// Description:
//
//	BindOriginal binds the thunk to the graph's own slots. BindClone binds
//	it to the slots of a fresh clone, so every call to ProduceThunk with
//	BindClone yields storage independent of the original and of other
//	thunks.
//
// Outputs:
//
//	*Thunk - The thunk.
//	error - *CapabilityError if the binding cannot be honoured, such as
//	        BindClone on a graph with an op that does not implement
//	        graph.Rebinder.
func (l *PerformLinker) ProduceThunk(b Binding) (*Thunk, error) {
	bd, err := binderFor(b)
	if err != nil {
		return nil, err
	}
	g, err := bd.bind(l.graph)
	if err != nil {
		return nil, err
	}

	l.initMetrics()

	order := g.Toposort()
	l.logger.Debug("thunk produced",
		slog.String("graph", g.Name()),
		slog.String("binding", b.String()),
		slog.Int("ops", len(order)),
	)

	return &Thunk{
		linker:  l,
		graph:   g,
		binding: b,
		order:   order,
		inputs:  g.Inputs(),
		outputs: g.Outputs(),
	}, nil
}

// ProduceCallable returns a Function for the requested binding.
//
// Outputs:
//
//	*Function - The callable.
//	error - *CapabilityError if the binding cannot be honoured.
func (l *PerformLinker) ProduceCallable(b Binding, unpackSingle bool) (*Function, error) {
	t, err := l.ProduceThunk(b)
	if err != nil {
		return nil, err
	}
	return &Function{thunk: t, unpackSingle: unpackSingle}, nil
}

// Thunk is a repeatable run of a graph over one fixed slot set.
//
// Set values on Inputs, call Run, read values from Outputs.
type Thunk struct {
	linker  *PerformLinker
	graph   *graph.Graph
	binding Binding
	order   []graph.Op
	inputs  []*graph.Slot
	outputs []*graph.Slot
}

// Inputs returns the slots Run reads, in declared order.
func (t *Thunk) Inputs() []*graph.Slot {
	return t.inputs
}

// Outputs returns the slots Run leaves results in, in declared order.
func (t *Thunk) Outputs() []*graph.Slot {
	return t.outputs
}

// Order returns the fixed execution order.
func (t *Thunk) Order() []graph.Op {
	return t.order
}

// Binding returns the binding the thunk was produced with.
func (t *Thunk) Binding() Binding {
	return t.binding
}

// Run calls Perform on every op in order.
//
// Description:
//
//	Stops at the first op that returns an error or panics. ctx only
//	carries the tracing span; it is not checked for cancellation.
//
// Inputs:
//
//	ctx - Parent context for the run's span. nil is treated as Background.
//
// Outputs:
//
//	error - *ExecutionError wrapping the op's error, or nil.
func (t *Thunk) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	l := t.linker

	invocationID := uuid.NewString()[:12]
	ctx, span := tracer.Start(ctx, "link.Thunk.Run",
		trace.WithAttributes(
			attribute.String("link.graph", t.graph.Name()),
			attribute.String("link.binding", t.binding.String()),
			attribute.Int("link.op_count", len(t.order)),
			attribute.String("link.invocation_id", invocationID),
		),
	)
	defer span.End()

	start := time.Now()
	err := t.perform()
	duration := time.Since(start)

	attrs := metric.WithAttributes(attribute.String("graph", t.graph.Name()))
	if l.thunkRuns != nil {
		l.thunkRuns.Add(ctx, 1, attrs)
	}
	if l.thunkLatency != nil {
		l.thunkLatency.Record(ctx, duration.Seconds(), attrs)
	}

	if err != nil {
		if l.thunkFailures != nil {
			l.thunkFailures.Add(ctx, 1, attrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		opName := ""
		if err.Op != nil {
			opName = err.Op.Name()
		}
		l.logger.Error("op failed",
			slog.String("graph", t.graph.Name()),
			slog.String("invocation_id", invocationID),
			slog.String("op", opName),
			slog.Bool("has_trace", !err.Trace.IsEmpty()),
			slog.String("error", err.Err.Error()),
		)
		return err
	}

	span.SetStatus(codes.Ok, "")
	l.logger.Debug("thunk completed",
		slog.String("graph", t.graph.Name()),
		slog.String("invocation_id", invocationID),
		slog.Duration("duration", duration),
	)
	return nil
}

// perform runs the order and annotates the first failure.
func (t *Thunk) perform() *ExecutionError {
	for _, op := range t.order {
		if err := performOp(op); err != nil {
			return &ExecutionError{Op: op, Trace: op.Trace(), Err: err}
		}
	}
	return nil
}

// performOp calls Perform, converting a panic into *PanicError.
func performOp(op graph.Op) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	if err := op.Perform(); err != nil {
		return err
	}
	return nil
}

// String implements fmt.Stringer.
func (t *Thunk) String() string {
	return fmt.Sprintf("Thunk(%s, %s, %d ops)", t.graph.Name(), t.binding, len(t.order))
}
