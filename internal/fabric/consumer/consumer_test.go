package consumer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"fabric/internal/fabric"
	"fabric/internal/fabric/metrics"
)

type fakeBroker struct {
	deliveries chan amqp.Delivery
	err        error
}

func (b *fakeBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.deliveries, nil
}

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

type outcomeCapture struct {
	event   string
	outcome string
}

func (o *outcomeCapture) RecordHandle(queue, event, outcome string, duration time.Duration) {
	o.event = event
	o.outcome = outcome
}

func newTestConsumer(t *testing.T, handlers fabric.HandlerTable, outcomes OutcomeRecorder) *Consumer {
	t.Helper()

	c, err := NewConsumer(
		&fakeBroker{deliveries: make(chan amqp.Delivery)},
		handlers,
		Config{Queue: "test_queue", MaxRedeliveries: 2, RequeueDelay: time.Millisecond, ResubscribeDelay: time.Millisecond},
		zap.NewNop(),
		outcomes,
	)
	if err != nil {
		t.Fatalf("failed to create consumer: %v", err)
	}

	return c
}

func delivery(t *testing.T, env fabric.Envelope, ack *fakeAcknowledger) amqp.Delivery {
	t.Helper()

	body, err := env.Encode()
	if err != nil {
		t.Fatalf("failed to encode envelope: %v", err)
	}

	return amqp.Delivery{
		Acknowledger: ack,
		MessageId:    env.EventID,
		Body:         body,
	}
}

func TestHandleAcksSuccessfulDelivery(t *testing.T) {
	var handled bool
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventListingCreated: func(ctx context.Context, env fabric.Envelope) error {
			handled = true
			return nil
		},
	}, outcomes)

	env, err := fabric.NewEnvelope(fabric.EventListingCreated, fabric.ListingSnapshot{ID: "lst-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))

	if !handled {
		t.Fatal("expected handler to run")
	}
	if !ack.acked || ack.nacked {
		t.Fatalf("expected ack, got acked=%v nacked=%v", ack.acked, ack.nacked)
	}
	if outcomes.outcome != metrics.OutcomeAcked {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeAcked, outcomes.outcome)
	}
}

func TestHandleAcksDuplicateDelivery(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventTransactionPaid: func(ctx context.Context, env fabric.Envelope) error {
			return fmt.Errorf("receipt exists: %w", fabric.ErrAlreadyApplied)
		},
	}, outcomes)

	env, err := fabric.NewEnvelope(fabric.EventTransactionPaid, fabric.TransactionPaid{Price: 100})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))

	if !ack.acked {
		t.Fatal("duplicate delivery must be acknowledged, not redelivered")
	}
	if outcomes.outcome != metrics.OutcomeAlreadyApplied {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeAlreadyApplied, outcomes.outcome)
	}
}

func TestHandleAcksUnknownEventTag(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventListingCreated: func(ctx context.Context, env fabric.Envelope) error {
			t.Fatal("handler must not run for an unknown tag")
			return nil
		},
	}, outcomes)

	env, err := fabric.NewEnvelope("price_alert_triggered", map[string]string{"listingId": "lst-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))

	if !ack.acked {
		t.Fatal("unknown event must be acknowledged so the queue keeps moving")
	}
	if outcomes.outcome != metrics.OutcomeUnknownEvent {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeUnknownEvent, outcomes.outcome)
	}
}

func TestHandleDeadLettersMalformedBody(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{}, outcomes)

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), amqp.Delivery{
		Acknowledger: ack,
		Body:         []byte(`{"event": `),
	})

	if !ack.nacked || ack.requeued {
		t.Fatalf("malformed body must be nacked without requeue, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
	if outcomes.outcome != metrics.OutcomeDeadLettered {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeDeadLettered, outcomes.outcome)
	}
}

func TestHandleDeadLettersUnprocessablePayload(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventListingCreated: func(ctx context.Context, env fabric.Envelope) error {
			return fmt.Errorf("%w: snapshot missing _id", fabric.ErrMalformedEnvelope)
		},
	}, outcomes)

	env, err := fabric.NewEnvelope(fabric.EventListingCreated, map[string]string{"title": "no id"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))

	if !ack.nacked || ack.requeued {
		t.Fatalf("unprocessable payload must be nacked without requeue, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
	if outcomes.outcome != metrics.OutcomeDeadLettered {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeDeadLettered, outcomes.outcome)
	}
}

func TestHandleRequeuesTransientFailure(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventReviewCreated: func(ctx context.Context, env fabric.Envelope) error {
			return errors.New("connection refused")
		},
	}, outcomes)

	env, err := fabric.NewEnvelope(fabric.EventReviewCreated, fabric.ReviewCreated{ReviewID: "rev-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))

	if !ack.nacked || !ack.requeued {
		t.Fatalf("transient failure must be requeued, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
	if outcomes.outcome != metrics.OutcomeRequeued {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeRequeued, outcomes.outcome)
	}
}

func TestHandleDeadLettersAfterRedeliveryBudget(t *testing.T) {
	outcomes := &outcomeCapture{}
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventReviewCreated: func(ctx context.Context, env fabric.Envelope) error {
			return errors.New("connection refused")
		},
	}, outcomes)

	env, err := fabric.NewEnvelope(fabric.EventReviewCreated, fabric.ReviewCreated{ReviewID: "rev-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	// Redeliveries of the same message are tied together by MessageId.
	for i := 0; i < 2; i++ {
		ack := &fakeAcknowledger{}
		c.Handle(context.Background(), delivery(t, env, ack))
		if !ack.requeued {
			t.Fatalf("attempt %d should be requeued", i+1)
		}
	}

	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))
	if !ack.nacked || ack.requeued {
		t.Fatalf("exhausted budget must dead-letter, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
	if outcomes.outcome != metrics.OutcomeDeadLettered {
		t.Fatalf("expected outcome %q, got %q", metrics.OutcomeDeadLettered, outcomes.outcome)
	}
}

func TestHandleSuccessResetsRedeliveryBudget(t *testing.T) {
	fail := true
	c := newTestConsumer(t, fabric.HandlerTable{
		fabric.EventReviewCreated: func(ctx context.Context, env fabric.Envelope) error {
			if fail {
				return errors.New("connection refused")
			}
			return nil
		},
	}, nil)

	env, err := fabric.NewEnvelope(fabric.EventReviewCreated, fabric.ReviewCreated{ReviewID: "rev-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	c.Handle(context.Background(), delivery(t, env, &fakeAcknowledger{}))
	c.Handle(context.Background(), delivery(t, env, &fakeAcknowledger{}))

	fail = false
	ack := &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))
	if !ack.acked {
		t.Fatal("expected success after transient failures to ack")
	}

	// A fresh failure starts the budget over instead of inheriting the
	// pre-success attempts.
	fail = true
	ack = &fakeAcknowledger{}
	c.Handle(context.Background(), delivery(t, env, ack))
	if !ack.requeued {
		t.Fatal("expected first failure after reset to be requeued")
	}
}

// reconnectingBroker serves the given streams in order and cancels the run
// once they are used up.
type reconnectingBroker struct {
	streams []<-chan amqp.Delivery
	calls   int
	cancel  context.CancelFunc
}

func (b *reconnectingBroker) Consume(ctx context.Context, queue string, prefetch int) (<-chan amqp.Delivery, error) {
	b.calls++
	if b.calls > len(b.streams) {
		b.cancel()
		return nil, ctx.Err()
	}
	return b.streams[b.calls-1], nil
}

func TestRunResetsRedeliveryCountersWhenStreamCloses(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := make(chan amqp.Delivery, 1)
	c, err := NewConsumer(
		&reconnectingBroker{streams: []<-chan amqp.Delivery{stream}, cancel: cancel},
		fabric.HandlerTable{
			fabric.EventReviewCreated: func(ctx context.Context, env fabric.Envelope) error {
				return errors.New("connection refused")
			},
		},
		Config{Queue: "test_queue", MaxRedeliveries: 2, RequeueDelay: time.Millisecond, ResubscribeDelay: time.Millisecond},
		zap.NewNop(),
		nil,
	)
	if err != nil {
		t.Fatalf("failed to create consumer: %v", err)
	}

	env, err := fabric.NewEnvelope(fabric.EventReviewCreated, fabric.ReviewCreated{ReviewID: "rev-1"})
	if err != nil {
		t.Fatalf("failed to build envelope: %v", err)
	}

	// One requeued delivery, then the broker drops the stream. The counter
	// for the in-flight message must not outlive the stream it belongs to.
	ack := &fakeAcknowledger{}
	stream <- delivery(t, env, ack)
	close(stream)

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if !ack.requeued {
		t.Fatal("expected the delivery to be requeued before the stream closed")
	}

	c.mu.Lock()
	leftover := len(c.attempts)
	c.mu.Unlock()
	if leftover != 0 {
		t.Fatalf("expected redelivery counters to be dropped on stream close, found %d", leftover)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	c := newTestConsumer(t, fabric.HandlerTable{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
