package consumer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/codes"

	"fabric/internal/fabric"
	"fabric/internal/fabric/tracing"
)

// TracedHandler wraps a fabric.Handler with a span per applied envelope.
// Duplicate applies are recorded as clean spans with a marker attribute, not
// as errors, since they are the idempotence machinery working as intended.
func TracedHandler(queue string, next fabric.Handler, tracer *tracing.Tracer) fabric.Handler {
	return func(ctx context.Context, env fabric.Envelope) error {
		ctx, span := tracer.StartSpan(ctx, "consumer.apply")
		defer span.End()

		span.SetAttributes(tracer.ConsumerAttributes(queue, env.Event, env.EventID)...)

		err := next(ctx, env)

		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(err, fabric.ErrAlreadyApplied):
			span.SetStatus(codes.Ok, "already applied")
		default:
			tracer.RecordError(ctx, err)
		}

		span.SetAttributes(tracer.ErrorAttributes(err)...)

		return err
	}
}

// TracedTable wraps every handler in the table.
func TracedTable(queue string, table fabric.HandlerTable, tracer *tracing.Tracer) fabric.HandlerTable {
	wrapped := make(fabric.HandlerTable, len(table))
	for event, h := range table {
		wrapped[event] = TracedHandler(queue, h, tracer)
	}
	return wrapped
}
