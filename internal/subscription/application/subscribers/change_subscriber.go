package subscribers

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

// MetricEventsConsumed counts subscription events seen by ChangeSubscriber.
const MetricEventsConsumed = "aromabox_subscription_events_consumed_total"

// ChangeSubscriber observes subscription change notifications published
// from the outbox. It is the hook point for refreshing read views and
// sending customer notifications; today it logs and counts.
type ChangeSubscriber struct {
	metrics observability.Metrics
	logger  *slog.Logger
}

func NewChangeSubscriber(metrics observability.Metrics, logger *slog.Logger) *ChangeSubscriber {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeSubscriber{metrics: metrics, logger: logger}
}

// EventTypes returns the routing keys this subscriber handles.
func (s *ChangeSubscriber) EventTypes() []string {
	return []string{"subscriptions.#"}
}

// Handle processes one envelope. Malformed payloads are logged and dropped
// so a poison message cannot block the queue.
func (s *ChangeSubscriber) Handle(ctx context.Context, event *eventbus.Envelope) error {
	s.metrics.Counter(MetricEventsConsumed, 1, observability.T("routing_key", event.RoutingKey))

	switch event.RoutingKey {
	case domain.RoutingKeyDeviceOilChanged:
		var payload domain.DeviceOilChanged
		if err := event.Decode(&payload); err != nil {
			s.logger.WarnContext(ctx, "dropping malformed oil change", "event_id", event.EventID, "error", err)
			return nil
		}
		s.logger.InfoContext(ctx, "oil selection changed",
			"account_id", payload.AccountID,
			"subscription_id", payload.SubscriptionID,
			"month", payload.Month.String(),
			"device_id", payload.DeviceID,
			"from", payload.PreviousOilID,
			"to", payload.OilID,
		)
	case domain.RoutingKeySubscriptionCreated:
		var payload domain.SubscriptionCreated
		if err := event.Decode(&payload); err != nil {
			s.logger.WarnContext(ctx, "dropping malformed subscription event", "event_id", event.EventID, "error", err)
			return nil
		}
		s.logger.InfoContext(ctx, "subscription created",
			"account_id", payload.AccountID,
			"subscription_id", payload.SubscriptionID,
			"plan_id", payload.PlanID,
		)
	case domain.RoutingKeySubscriptionSuperseded:
		var payload domain.SubscriptionSuperseded
		if err := event.Decode(&payload); err != nil {
			s.logger.WarnContext(ctx, "dropping malformed subscription event", "event_id", event.EventID, "error", err)
			return nil
		}
		s.logger.InfoContext(ctx, "subscription superseded",
			"account_id", payload.AccountID,
			"subscription_id", payload.SubscriptionID,
			"superseded_by", payload.SupersededBy,
		)
	default:
		s.logger.DebugContext(ctx, "ignoring subscription event", "routing_key", event.RoutingKey)
	}
	return nil
}
