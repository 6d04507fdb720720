package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// InProcessBus delivers envelopes synchronously to consumers in the same
// process. It stands in for RabbitMQ in local mode.
type InProcessBus struct {
	registry *Registry
	logger   *slog.Logger
}

func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{registry: NewRegistry(logger), logger: logger}
}

func (b *InProcessBus) RegisterConsumer(consumer EventConsumer) {
	b.registry.Register(consumer)
}

// Publish decodes payload as an Envelope and dispatches it. Consumer errors
// are returned so the outbox retries the message.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event := &Envelope{}
	if err := json.Unmarshal(payload, event); err != nil {
		b.logger.ErrorContext(ctx, "discarding undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, event); err != nil {
		return err
	}
	b.logger.DebugContext(ctx, "event dispatched",
		"routing_key", event.RoutingKey,
		"event_id", event.EventID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Start blocks until ctx is done; delivery happens inside Publish.
func (b *InProcessBus) Start(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (b *InProcessBus) Close() error { return nil }

// Registry exposes the consumer registry.
func (b *InProcessBus) Registry() *Registry { return b.registry }
