package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Subscription"

const (
	RoutingKeySubscriptionCreated    = "subscriptions.subscription.created"
	RoutingKeyDeviceOilChanged       = "subscriptions.selection.oil_changed"
	RoutingKeySubscriptionSuperseded = "subscriptions.subscription.superseded"
)

// SubscriptionCreated is emitted when a subscription is created at signup
// or by a completed plan change.
type SubscriptionCreated struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	AccountID      uuid.UUID  `json:"account_id"`
	PlanID         string     `json:"plan_id"`
	StartMonth     MonthKey   `json:"start_month"`
	EndMonth       MonthKey   `json:"end_month"`
	DeviceCount    int        `json:"device_count"`
	PreviousID     *uuid.UUID `json:"previous_id,omitempty"`
}

func NewSubscriptionCreated(s *Subscription, at time.Time) *SubscriptionCreated {
	return &SubscriptionCreated{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionCreated, at),
		SubscriptionID: s.ID(),
		AccountID:      s.AccountID(),
		PlanID:         s.Plan().PlanID,
		StartMonth:     s.StartMonth(),
		EndMonth:       s.EndMonth(),
		DeviceCount:    len(s.devices),
		PreviousID:     s.PreviousID(),
	}
}

// DeviceOilChanged is emitted when a device's oil for a month changes.
// Observers use it to refresh views; prices do not depend on the oil.
type DeviceOilChanged struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	AccountID      uuid.UUID `json:"account_id"`
	Month          MonthKey  `json:"month"`
	DeviceID       uuid.UUID `json:"device_id"`
	PreviousOilID  string    `json:"previous_oil_id,omitempty"`
	OilID          string    `json:"oil_id"`
}

func NewDeviceOilChanged(s *Subscription, month MonthKey, deviceID uuid.UUID, previous, oil string, at time.Time) *DeviceOilChanged {
	return &DeviceOilChanged{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeyDeviceOilChanged, at),
		SubscriptionID: s.ID(),
		AccountID:      s.AccountID(),
		Month:          month,
		DeviceID:       deviceID,
		PreviousOilID:  previous,
		OilID:          oil,
	}
}

// SubscriptionSuperseded is emitted when a plan change replaces a subscription.
type SubscriptionSuperseded struct {
	sharedDomain.BaseEvent
	SubscriptionID uuid.UUID `json:"subscription_id"`
	AccountID      uuid.UUID `json:"account_id"`
	SupersededBy   uuid.UUID `json:"superseded_by"`
}

func NewSubscriptionSuperseded(s *Subscription, by uuid.UUID, at time.Time) *SubscriptionSuperseded {
	return &SubscriptionSuperseded{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, RoutingKeySubscriptionSuperseded, at),
		SubscriptionID: s.ID(),
		AccountID:      s.AccountID(),
		SupersededBy:   by,
	}
}
