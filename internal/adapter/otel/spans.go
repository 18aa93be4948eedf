package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "taskbazaar"

// StartCommandSpan starts a span for one lifecycle command on a task.
func StartCommandSpan(ctx context.Context, command, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "lifecycle."+command,
		trace.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
}

// StartLedgerSpan starts a span for an escrow ledger call.
func StartLedgerSpan(ctx context.Context, op, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "ledger."+op,
		trace.WithAttributes(
			attribute.String("task.id", taskID),
		),
	)
}
