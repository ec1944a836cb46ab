package consumer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
	"fabric/internal/validator"
)

// Broker is the slice of the connection manager the consumer depends on.
type Broker interface {
	Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp.Delivery, error)
}

// OutcomeRecorder receives the terminal outcome of every handled delivery,
// typically satisfied by the metrics registry. A nil recorder is valid.
type OutcomeRecorder interface {
	RecordHandle(queue, event, outcome string, duration time.Duration)
}

// Config holds the consumption settings for one queue.
type Config struct {
	// Queue is the durable queue to drain.
	Queue string
	// MaxRedeliveries bounds transient retries per message before the
	// delivery is dead-lettered.
	MaxRedeliveries int
	// RequeueDelay throttles redelivery of transiently failed messages so a
	// dead downstream is not hot-looped.
	RequeueDelay time.Duration
	// ResubscribeDelay paces resubscription attempts while the broker link
	// is down.
	ResubscribeDelay time.Duration
}

// Consumer drains a durable queue with manual acknowledgment and dispatches
// each envelope through a handler table. A delivery is acknowledged only after
// its handler reports success (or a recognized duplicate); everything the
// handler cannot ever process is dead-lettered rather than silently dropped,
// and transient failures are requeued with a throttle.
type Consumer struct {
	broker   Broker
	logger   *zap.Logger
	cfg      Config
	handlers fabric.HandlerTable
	outcomes OutcomeRecorder

	mu       sync.Mutex
	attempts map[string]int
}

// NewConsumer creates a consumer for the given queue and handler table.
func NewConsumer(b Broker, handlers fabric.HandlerTable, cfg Config, logger *zap.Logger, outcomes OutcomeRecorder) (*Consumer, error) {
	c := Consumer{
		broker:   b,
		logger:   logger.Named("consumer").With(zap.String("queue", cfg.Queue)),
		cfg:      cfg,
		handlers: handlers,
		outcomes: outcomes,
		attempts: make(map[string]int),
	}

	if c.cfg.MaxRedeliveries <= 0 {
		c.cfg.MaxRedeliveries = 5
	}
	if c.cfg.RequeueDelay <= 0 {
		c.cfg.RequeueDelay = time.Second
	}
	if c.cfg.ResubscribeDelay <= 0 {
		c.cfg.ResubscribeDelay = 5 * time.Second
	}

	if err := validator.Validate("consumer", c.broker, c.handlers, c.cfg.Queue); err != nil {
		return nil, fmt.Errorf("failed to validate consumer deps: %w", err)
	}

	return &c, nil
}

// Run implements fabric.Consumer.Run. It resubscribes whenever the delivery
// stream closes, which happens on every broker reconnect.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.broker.Consume(ctx, c.cfg.Queue, 1)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Warn("failed to subscribe, retrying", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ResubscribeDelay):
			}
			continue
		}

		c.logger.Info("waiting for platform events")

		if err := c.drain(ctx, deliveries); err != nil {
			return err
		}

		// Requeued deliveries we never see again would otherwise leak their
		// counters across broker churn. Anything still in flight restarts its
		// redelivery budget on the new stream.
		c.resetAttempts()

		c.logger.Warn("delivery stream closed, resubscribing")
	}
}

// drain processes deliveries until the stream closes or ctx is cancelled.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle applies one delivery and settles it. The outcome classification:
// malformed payloads are dead-lettered, duplicates and unknown event tags are
// acknowledged, transient failures are requeued with a delay until the
// redelivery budget runs out.
func (c *Consumer) Handle(ctx context.Context, d amqp.Delivery) {
	start := time.Now()

	env, err := fabric.Decode(d.Body)
	if err != nil {
		c.logger.Error("malformed envelope, dead-lettering", zap.Error(err))
		c.nack(d, false)
		c.record("", metrics.OutcomeDeadLettered, start)
		return
	}

	logger := c.logger.With(zap.String("event", env.Event), zap.String("eventId", env.EventID))

	handler, ok := c.handlers[env.Event]
	if !ok {
		// producers may introduce event types this consumer does not know yet
		logger.Debug("ignoring unknown event")
		c.ack(d)
		c.record(env.Event, metrics.OutcomeUnknownEvent, start)
		return
	}

	err = handler(ctx, env)
	switch {
	case err == nil:
		c.ack(d)
		c.clearAttempts(d)
		c.record(env.Event, metrics.OutcomeAcked, start)

	case errors.Is(err, fabric.ErrAlreadyApplied):
		logger.Debug("duplicate delivery, acknowledging", zap.Error(err))
		c.ack(d)
		c.clearAttempts(d)
		c.record(env.Event, metrics.OutcomeAlreadyApplied, start)

	case errors.Is(err, fabric.ErrMalformedEnvelope):
		logger.Error("unprocessable envelope, dead-lettering", zap.Error(err))
		c.nack(d, false)
		c.clearAttempts(d)
		c.record(env.Event, metrics.OutcomeDeadLettered, start)

	default:
		attempts := c.bumpAttempts(d)
		if attempts > c.cfg.MaxRedeliveries {
			logger.Error("redelivery budget exhausted, dead-lettering",
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			c.nack(d, false)
			c.clearAttempts(d)
			c.record(env.Event, metrics.OutcomeDeadLettered, start)
			return
		}

		logger.Warn("transient failure, requeueing",
			zap.Int("attempt", attempts),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
		case <-time.After(c.cfg.RequeueDelay):
		}
		c.nack(d, true)
		c.record(env.Event, metrics.OutcomeRequeued, start)
	}
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack delivery", zap.Error(err))
	}
}

func (c *Consumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.logger.Error("failed to nack delivery", zap.Error(err))
	}
}

func (c *Consumer) record(event, outcome string, start time.Time) {
	if c.outcomes != nil {
		c.outcomes.RecordHandle(c.cfg.Queue, event, outcome, time.Since(start))
	}
}

// deliveryKey identifies a message across redeliveries. The publisher sets
// MessageId from the envelope; bodies from legacy producers are hashed.
func deliveryKey(d amqp.Delivery) string {
	if d.MessageId != "" {
		return d.MessageId
	}

	h := fnv.New64a()
	h.Write(d.Body)
	return fmt.Sprintf("body:%x", h.Sum64())
}

func (c *Consumer) bumpAttempts(d amqp.Delivery) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := deliveryKey(d)
	c.attempts[key]++
	return c.attempts[key]
}

func (c *Consumer) clearAttempts(d amqp.Delivery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.attempts, deliveryKey(d))
}

func (c *Consumer) resetAttempts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = make(map[string]int)
}
