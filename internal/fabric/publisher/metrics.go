package publisher

import (
	"context"
	"errors"
	"time"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
)

// MetricsPublisher wraps a fabric.Publisher with metrics collection
type MetricsPublisher struct {
	publisher fabric.Publisher
	registry  *metrics.Registry
}

// NewMetricsPublisher creates a new instrumented publisher
func NewMetricsPublisher(publisher fabric.Publisher, registry *metrics.Registry) fabric.Publisher {
	return &MetricsPublisher{
		publisher: publisher,
		registry:  registry,
	}
}

// Publish implements fabric.Publisher.Publish with metrics collection
func (p *MetricsPublisher) Publish(ctx context.Context, env fabric.Envelope) error {
	start := time.Now()

	err := p.publisher.Publish(ctx, env)

	p.registry.RecordPublish(env.Event, publishStatus(err), time.Since(start))

	return err
}

// PublishToQueue implements fabric.Publisher.PublishToQueue with metrics collection
func (p *MetricsPublisher) PublishToQueue(ctx context.Context, queue string, env fabric.Envelope) error {
	start := time.Now()

	err := p.publisher.PublishToQueue(ctx, queue, env)

	p.registry.RecordPublish(env.Event, publishStatus(err), time.Since(start))

	return err
}

// publishStatus distinguishes a drop (broker down, fire-and-forget) from a
// hard publish error so undercounting stays observable on a dashboard.
func publishStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, fabric.ErrBrokerUnavailable):
		return metrics.StatusDropped
	default:
		return metrics.StatusError
	}
}
