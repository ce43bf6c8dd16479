package search

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "deppy-fd.search"

type counters struct {
	nodes, failures, solutions, runs metric.Int64Counter
}

// newCounters creates the run counters on the installed meter provider. It
// is called once per run so that a provider installed after start up gets
// them; the SDK hands back the same instrument for a repeated name.
func newCounters() (*counters, error) {
	meter := otel.Meter(instrumentation)
	var (
		c   counters
		err error
	)

	c.nodes, err = meter.Int64Counter(
		"search_nodes_total",
		metric.WithDescription("Decisions taken by the search loop"),
	)
	if err != nil {
		return nil, err
	}

	c.failures, err = meter.Int64Counter(
		"search_failures_total",
		metric.WithDescription("Branches that ended in a contradiction"),
	)
	if err != nil {
		return nil, err
	}

	c.solutions, err = meter.Int64Counter(
		"search_solutions_total",
		metric.WithDescription("Solutions found by the search loop"),
	)
	if err != nil {
		return nil, err
	}

	c.runs, err = meter.Int64Counter(
		"search_runs_total",
		metric.WithDescription("Search runs by terminal state"),
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func recordRun(ctx context.Context, state State, stats Stats) {
	c, err := newCounters()
	if err != nil {
		otel.Handle(err)
		return
	}
	attrs := metric.WithAttributes(attribute.String("state", state.String()))
	c.nodes.Add(ctx, stats.Nodes, attrs)
	c.failures.Add(ctx, stats.Failures, attrs)
	c.solutions.Add(ctx, stats.Solutions, attrs)
	c.runs.Add(ctx, 1, attrs)
}

func (s *Search) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	// The provider is looked up per call so that one installed after start
	// up still receives the spans.
	return otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attribute.String("search.run_id", s.runID)))
}

func (s *Search) endSpan(span trace.Span, err error) {
	span.SetAttributes(
		attribute.String("search.state", s.state.String()),
		attribute.Int64("search.nodes", s.stats.Nodes),
		attribute.Int64("search.failures", s.stats.Failures),
		attribute.Int64("search.solutions", s.stats.Solutions),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
