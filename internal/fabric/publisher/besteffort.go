package publisher

import (
	"context"

	"go.uber.org/zap"

	"fabric/internal/fabric"
)

// BestEffort is the outermost publisher wrapper for HTTP write paths. Event
// delivery is not part of the transactional boundary: a broker outage degrades
// to a logged drop and the business operation that triggered the publish still
// succeeds. Every drop is logged so loss is never silent.
type BestEffort struct {
	publisher fabric.Publisher
	logger    *zap.Logger
}

// NewBestEffort wraps a publisher with swallow-and-log semantics.
func NewBestEffort(p fabric.Publisher, logger *zap.Logger) *BestEffort {
	return &BestEffort{
		publisher: p,
		logger:    logger.Named("publisher"),
	}
}

// Publish implements fabric.Publisher.Publish, never returning an error.
func (b *BestEffort) Publish(ctx context.Context, env fabric.Envelope) error {
	if err := b.publisher.Publish(ctx, env); err != nil {
		b.logger.Warn("event dropped",
			zap.String("event", env.Event),
			zap.String("eventId", env.EventID),
			zap.Error(err),
		)
	}

	return nil
}

// PublishToQueue implements fabric.Publisher.PublishToQueue, never returning
// an error.
func (b *BestEffort) PublishToQueue(ctx context.Context, queue string, env fabric.Envelope) error {
	if err := b.publisher.PublishToQueue(ctx, queue, env); err != nil {
		b.logger.Warn("event dropped",
			zap.String("event", env.Event),
			zap.String("queue", queue),
			zap.Error(err),
		)
	}

	return nil
}
