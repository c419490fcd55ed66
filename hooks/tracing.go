package hooks

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook implements OpenTelemetry tracing for queries and transactions.
// Query spans are children of the context passed to the query. A guarded
// transaction gets one db.transaction span from acquisition to finalization.
type TracingHook struct {
	tracer trace.Tracer
}

// NewTracingHook creates a new tracing hook
func NewTracingHook(tracer trace.Tracer) *TracingHook {
	return &TracingHook{tracer: tracer}
}

type (
	querySpanKey struct{}
	txSpanKey    struct{}
)

// BeforeQuery is called before a query is executed
func (h *TracingHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	if h.tracer == nil {
		return ctx
	}

	ctx, span := h.tracer.Start(ctx, "db."+OperationType(event.Query),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return context.WithValue(ctx, querySpanKey{}, span)
}

// AfterQuery is called after a query is executed
func (h *TracingHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", truncate(event.Query)),
		attribute.String("db.operation", OperationType(event.Query)),
	)

	if event.Err != nil {
		span.RecordError(event.Err)
		span.SetStatus(codes.Error, event.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// BeforeTx opens a span covering the whole transaction
func (h *TracingHook) BeforeTx(ctx context.Context, event *TxEvent) context.Context {
	if h.tracer == nil {
		return ctx
	}

	ctx, span := h.tracer.Start(ctx, "db.transaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(event.StartTime),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.transaction.id", event.ID),
			attribute.Bool("db.transaction.read_only", event.ReadOnly),
		),
	)
	return context.WithValue(ctx, txSpanKey{}, span)
}

// AfterTx ends the transaction span with its outcome
func (h *TracingHook) AfterTx(ctx context.Context, event *TxEvent) {
	span, ok := ctx.Value(txSpanKey{}).(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(
		attribute.String("db.transaction.outcome", string(event.Outcome)),
		attribute.Bool("db.transaction.leaked", event.Leaked),
	)

	switch event.Outcome {
	case OutcomeCommitted, OutcomeRolledBack:
		span.SetStatus(codes.Ok, "")
	default:
		if event.Err != nil {
			span.RecordError(event.Err)
			span.SetStatus(codes.Error, event.Err.Error())
		} else {
			span.SetStatus(codes.Error, string(event.Outcome))
		}
	}
}
