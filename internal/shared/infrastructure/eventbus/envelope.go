package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/google/uuid"
)

// Envelope is the wire form of a domain event: routing information plus the
// event's own JSON payload.
type Envelope struct {
	EventID       uuid.UUID            `json:"event_id"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	AggregateType string               `json:"aggregate_type"`
	RoutingKey    string               `json:"routing_key"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Payload       json.RawMessage      `json:"payload"`
	Metadata      domain.EventMetadata `json:"metadata"`
}

// NewEnvelope wraps a domain event.
func NewEnvelope(event domain.DomainEvent) (*Envelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Metadata:      event.Metadata(),
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventConsumer handles envelopes for a set of routing key patterns.
// Patterns follow AMQP topic rules: "*" matches one word, "#" zero or more.
type EventConsumer interface {
	EventTypes() []string
	Handle(ctx context.Context, event *Envelope) error
}

// Consumer delivers published envelopes to registered consumers.
type Consumer interface {
	RegisterConsumer(consumer EventConsumer)
	Start(ctx context.Context) error
	Close() error
}
