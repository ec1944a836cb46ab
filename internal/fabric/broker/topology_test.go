package broker

import (
	"testing"

	"github.com/streadway/amqp"

	"fabric/internal/fabric"
)

func TestPlatformTopologyUsesTopicExchange(t *testing.T) {
	topology := PlatformTopology(
		Queue{Name: "search_index", Bindings: []string{fabric.EventListingCreated}},
	)

	// Routing-key filtering only works on a topic exchange; fanout would
	// deliver the whole catalog to every queue regardless of bindings.
	if topology.ExchangeType != amqp.ExchangeTopic {
		t.Fatalf("expected topic exchange, got %q", topology.ExchangeType)
	}
	if topology.Exchange != PlatformExchange {
		t.Fatalf("expected exchange %q, got %q", PlatformExchange, topology.Exchange)
	}
	if topology.DeadLetterExchange != PlatformDeadLetterExchange {
		t.Fatalf("expected dead-letter exchange %q, got %q", PlatformDeadLetterExchange, topology.DeadLetterExchange)
	}
	if len(topology.Queues) != 1 || topology.Queues[0].Name != "search_index" {
		t.Fatalf("unexpected queues: %+v", topology.Queues)
	}
}

func TestEventTagsAreLiteralRoutingKeys(t *testing.T) {
	// Exact-match routing on the topic exchange relies on tags carrying no
	// AMQP wildcard or separator characters.
	for _, tag := range fabric.Catalog() {
		for _, c := range tag {
			if c == '.' || c == '*' || c == '#' {
				t.Fatalf("event tag %q contains topic routing character %q", tag, c)
			}
		}
	}
}
