package publisher

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"fabric/internal/fabric"
	"fabric/internal/fabric/broker"
	"fabric/internal/fabric/tracing"
)

// TracedPublisher wraps a fabric.Publisher with distributed tracing
// Layer order: TracedPublisher -> MetricsPublisher -> Publisher (real thing)
type TracedPublisher struct {
	publisher fabric.Publisher
	tracer    *tracing.Tracer
}

// NewTracedPublisher creates a new traced publisher that wraps a metrics publisher
func NewTracedPublisher(publisher fabric.Publisher, tracer *tracing.Tracer) fabric.Publisher {
	return &TracedPublisher{
		publisher: publisher,
		tracer:    tracer,
	}
}

// Publish implements fabric.Publisher.Publish with distributed tracing
func (p *TracedPublisher) Publish(ctx context.Context, env fabric.Envelope) error {
	ctx, span := p.tracer.StartSpan(ctx, "publisher.publish")
	defer span.End()

	span.SetAttributes(p.tracer.PublisherAttributes(broker.PlatformExchange, env.Event, env.EventID)...)

	err := p.publisher.Publish(ctx, env)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return err
}

// PublishToQueue implements fabric.Publisher.PublishToQueue with distributed tracing
func (p *TracedPublisher) PublishToQueue(ctx context.Context, queue string, env fabric.Envelope) error {
	ctx, span := p.tracer.StartSpan(ctx, "publisher.publish_to_queue")
	defer span.End()

	span.SetAttributes(p.tracer.PublisherAttributes(queue, env.Event, env.EventID)...)

	err := p.publisher.PublishToQueue(ctx, queue, env)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return err
}
