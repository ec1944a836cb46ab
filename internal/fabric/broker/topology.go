package broker

import (
	"fmt"

	"github.com/streadway/amqp"
)

const (
	// PlatformExchange is the shared exchange every producing service
	// publishes to.
	PlatformExchange = "platform_events"

	// PlatformDeadLetterExchange receives messages a consumer gave up on.
	PlatformDeadLetterExchange = "platform_events.dlx"

	// Legacy named queues addressed directly, bypassing the exchange.
	ListingEventsQueue = "listing_events"
	AuctionEventsQueue = "auction_events"
)

// Queue describes a durable queue and the routing keys binding it to the
// platform exchange. A queue with no bindings is a legacy point-to-point
// queue addressed by name.
type Queue struct {
	Name     string
	Bindings []string
}

// Topology is the full set of broker-side declarations a process depends on.
// Declare is idempotent and runs after every reconnect, so the declarations
// must be stable: a durable exchange or queue redeclared with the same
// parameters is a no-op on the broker.
type Topology struct {
	Exchange           string
	ExchangeType       string
	DeadLetterExchange string
	Queues             []Queue
}

// PlatformTopology returns the canonical topology: the durable topic exchange,
// its dead-letter companion, and the given queues. Event tags contain no dots,
// so topic routing degenerates to exact-match on the binding keys and each
// queue receives only the tags it binds.
func PlatformTopology(queues ...Queue) Topology {
	return Topology{
		Exchange:           PlatformExchange,
		ExchangeType:       amqp.ExchangeTopic,
		DeadLetterExchange: PlatformDeadLetterExchange,
		Queues:             queues,
	}
}

// Declare asserts the topology on the given channel.
func (t Topology) Declare(ch Channel) error {
	if t.Exchange != "" {
		if err := ch.ExchangeDeclare(
			t.Exchange,
			t.ExchangeType,
			true,  // durable
			false, // auto-delete
			false, // internal
			false, // no-wait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", t.Exchange, err)
		}
	}

	if t.DeadLetterExchange != "" {
		if err := ch.ExchangeDeclare(
			t.DeadLetterExchange,
			amqp.ExchangeDirect,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare dead-letter exchange %s: %w", t.DeadLetterExchange, err)
		}
	}

	for _, q := range t.Queues {
		var args amqp.Table
		if t.DeadLetterExchange != "" {
			args = amqp.Table{
				"x-dead-letter-exchange":    t.DeadLetterExchange,
				"x-dead-letter-routing-key": q.Name,
			}
		}

		if _, err := ch.QueueDeclare(
			q.Name,
			true,  // durable
			false, // auto-delete
			false, // exclusive
			false, // no-wait
			args,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q.Name, err)
		}

		if t.DeadLetterExchange != "" {
			dlq := q.Name + ".dlq"
			if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
				return fmt.Errorf("failed to declare dead-letter queue %s: %w", dlq, err)
			}
			if err := ch.QueueBind(dlq, q.Name, t.DeadLetterExchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind dead-letter queue %s: %w", dlq, err)
			}
		}

		for _, key := range q.Bindings {
			if err := ch.QueueBind(q.Name, key, t.Exchange, false, nil); err != nil {
				return fmt.Errorf("failed to bind queue %s to %s with key %s: %w", q.Name, t.Exchange, key, err)
			}
		}
	}

	return nil
}
