package dialect

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TraceDriver wraps a Driver with OpenTelemetry spans. Every execution
// becomes one client span carrying the statement text and, when the
// statement is in the context, its store, labels and read-only flag.
type TraceDriver struct {
	Driver
	tracer trace.Tracer
	system string
}

// TraceOption configures the TraceDriver.
type TraceOption func(*TraceDriver)

// WithTracer sets the tracer. Defaults to otel.Tracer("github.com/syssam/cypher").
func WithTracer(tracer trace.Tracer) TraceOption {
	return func(d *TraceDriver) {
		d.tracer = tracer
	}
}

// WithSystem sets the db.system attribute, e.g. dialect.Neo4j.
func WithSystem(system string) TraceOption {
	return func(d *TraceDriver) {
		d.system = system
	}
}

// Trace wraps the driver with a TraceDriver.
func Trace(drv Driver, opts ...TraceOption) *TraceDriver {
	d := &TraceDriver{
		Driver: drv,
		tracer: otel.Tracer("github.com/syssam/cypher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute executes the statement inside a span.
func (d *TraceDriver) Execute(ctx context.Context, query string, params map[string]any) ([]Row, error) {
	attrs := []attribute.KeyValue{
		attribute.String("db.statement", query),
		attribute.Int("db.cypher.params", len(params)),
	}
	if d.system != "" {
		attrs = append(attrs, attribute.String("db.system", d.system))
	}
	if s, ok := FromContext(ctx); ok {
		attrs = append(attrs,
			attribute.Bool("db.cypher.read_only", s.ReadOnly),
			attribute.String("db.operation", s.Ops.String()),
			attribute.StringSlice("db.cypher.labels", s.Labels),
		)
		if s.Store != "" {
			attrs = append(attrs, attribute.String("db.name", s.Store))
		}
	}
	ctx, span := d.tracer.Start(ctx, "cypher.execute",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	rows, err := d.Driver.Execute(ctx, query, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return rows, err
	}
	span.SetAttributes(attribute.Int("db.cypher.rows", len(rows)))
	span.SetStatus(codes.Ok, "")
	return rows, nil
}

var _ Driver = (*TraceDriver)(nil)
