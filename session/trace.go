package session

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-dbsession/session/types"
)

// startSpan opens the span covering one outermost transaction.
func (m *Manager) startSpan(ctx context.Context, tc *TxContext) (context.Context, trace.Span) {
	return m.tracer.Start(ctx, "db.transaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", m.source.Vendor()),
			attribute.String("db.transaction.id", tc.ID()),
		),
	)
}

// endSpan records the transaction outcome and closes the span.
func (m *Manager) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err).String())
		if Classify(err) == FailurePoisoned {
			span.SetAttributes(attribute.Bool("db.connection.discarded", true))
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// spanIsolationAttr is set lazily once the first connection is acquired.
func spanIsolationAttr(ctx context.Context, level types.Isolation, readOnly bool) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("db.transaction.isolation", level.String()),
		attribute.Bool("db.transaction.read_only", readOnly),
	)
}
