package publisher

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/fabric/broker"
	"fabric/internal/validator"
)

// Broker is the slice of the connection manager the publisher depends on.
type Broker interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// Publisher is the concrete implementation of fabric.Publisher. Messages are
// marked persistent and routed by event tag; no publisher confirms are used,
// so durability starts once the broker has the message.
type Publisher struct {
	broker   Broker
	logger   *zap.Logger
	exchange string
}

// NewPublisher creates a publisher bound to the platform exchange.
func NewPublisher(b Broker, logger *zap.Logger) (*Publisher, error) {
	p := Publisher{
		broker:   b,
		logger:   logger.Named("publisher"),
		exchange: broker.PlatformExchange,
	}

	if err := validator.Validate("publisher", p.broker, p.logger); err != nil {
		return nil, fmt.Errorf("failed to validate publisher deps: %w", err)
	}

	return &p, nil
}

// Publish implements fabric.Publisher.Publish.
func (p *Publisher) Publish(ctx context.Context, env fabric.Envelope) error {
	return p.publish(ctx, p.exchange, env.Event, env)
}

// PublishToQueue implements fabric.Publisher.PublishToQueue. The default
// exchange routes by queue name, which is the legacy point-to-point path.
func (p *Publisher) PublishToQueue(ctx context.Context, queue string, env fabric.Envelope) error {
	return p.publish(ctx, "", queue, env)
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, env fabric.Envelope) error {
	if err := env.Validate(); err != nil {
		return fmt.Errorf("refusing to publish: %w", err)
	}

	body, err := env.Encode()
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Timestamp:    env.OccurredAt,
		Type:         env.Event,
		Body:         body,
	}

	if err := p.broker.Publish(ctx, exchange, routingKey, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", env.Event, err)
	}

	p.logger.Debug("published event",
		zap.String("event", env.Event),
		zap.String("eventId", env.EventID),
		zap.String("routingKey", routingKey),
	)

	return nil
}
