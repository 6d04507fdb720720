package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/google/uuid"
)

// Status is the stored lifecycle of a subscription. Month statuses are
// derived, never stored.
type Status string

const (
	SubscriptionStatusActive     Status = "active"
	SubscriptionStatusSuperseded Status = "superseded"
)

// Subscription is the aggregate root: one account's plan, devices and the
// full run of monthly selections.
type Subscription struct {
	sharedDomain.BaseAggregateRoot
	accountID    uuid.UUID
	plan         PlanTerms
	startMonth   MonthKey
	devices      []Device
	months       []MonthlySelection
	status       Status
	previousID   *uuid.UUID
	supersededBy *uuid.UUID
}

// NewSubscriptionParams describes a subscription to create.
type NewSubscriptionParams struct {
	AccountID  uuid.UUID
	Plan       PlanTerms
	StartMonth MonthKey
	Devices    []Device
	// DefaultOils pre-fills selections, rotating per month and device.
	// When empty every slot starts unchosen.
	DefaultOils []string
	// PreviousID links a subscription created by a plan change to the one it replaces.
	PreviousID *uuid.UUID
	Now        time.Time
}

// NewSubscription creates a subscription and generates every month up front.
func NewSubscription(p NewSubscriptionParams) (*Subscription, error) {
	if p.AccountID == uuid.Nil {
		return nil, ErrInvalidSubscription.WithDetails("account id is empty")
	}
	if p.StartMonth.IsZero() {
		return nil, ErrInvalidSubscription.WithDetails("start month is empty")
	}
	if err := p.Plan.validate(); err != nil {
		return nil, err
	}

	s := &Subscription{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(uuid.New(), p.Now),
		accountID:         p.AccountID,
		plan:              p.Plan,
		startMonth:        p.StartMonth,
		devices:           append([]Device(nil), p.Devices...),
		status:            SubscriptionStatusActive,
		previousID:        p.PreviousID,
	}

	s.months = make([]MonthlySelection, p.Plan.DurationMonths)
	for i := range s.months {
		sel := MonthlySelection{
			Month:   p.StartMonth.AddMonths(i),
			Devices: make([]DeviceSelection, len(s.devices)),
		}
		for j, d := range s.devices {
			sel.Devices[j] = DeviceSelection{DeviceID: d.ID}
			if len(p.DefaultOils) > 0 {
				sel.Devices[j].OilID = p.DefaultOils[(i+j)%len(p.DefaultOils)]
			}
		}
		s.months[i] = sel
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	s.Record(NewSubscriptionCreated(s, p.Now))
	return s, nil
}

// RehydrateSubscriptionParams carries stored state.
type RehydrateSubscriptionParams struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	Plan         PlanTerms
	StartMonth   MonthKey
	Devices      []Device
	Months       []MonthlySelection
	Status       Status
	PreviousID   *uuid.UUID
	SupersededBy *uuid.UUID
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RehydrateSubscription rebuilds a subscription from storage and checks its
// structure.
func RehydrateSubscription(p RehydrateSubscriptionParams) (*Subscription, error) {
	entity := sharedDomain.RehydrateBaseEntity(p.ID, p.CreatedAt, p.UpdatedAt)
	months := make([]MonthlySelection, len(p.Months))
	for i, m := range p.Months {
		months[i] = m.clone()
	}
	s := &Subscription{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(entity, p.Version),
		accountID:         p.AccountID,
		plan:              p.Plan,
		startMonth:        p.StartMonth,
		devices:           append([]Device(nil), p.Devices...),
		months:            months,
		status:            p.Status,
		previousID:        p.PreviousID,
		supersededBy:      p.SupersededBy,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscription) AccountID() uuid.UUID     { return s.accountID }
func (s *Subscription) Plan() PlanTerms          { return s.plan }
func (s *Subscription) StartMonth() MonthKey     { return s.startMonth }
func (s *Subscription) Status() Status           { return s.status }
func (s *Subscription) PreviousID() *uuid.UUID   { return s.previousID }
func (s *Subscription) SupersededBy() *uuid.UUID { return s.supersededBy }
func (s *Subscription) IsActive() bool           { return s.status == SubscriptionStatusActive }

// EndMonth is the last month of the subscription.
func (s *Subscription) EndMonth() MonthKey {
	return s.startMonth.AddMonths(s.plan.DurationMonths - 1)
}

// Devices returns a copy of the attached devices.
func (s *Subscription) Devices() []Device {
	return append([]Device(nil), s.devices...)
}

// Device looks up an attached device.
func (s *Subscription) Device(id uuid.UUID) (Device, bool) {
	for _, d := range s.devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// Months returns copies of every monthly selection in order.
func (s *Subscription) Months() []MonthlySelection {
	out := make([]MonthlySelection, len(s.months))
	for i, m := range s.months {
		out[i] = m.clone()
	}
	return out
}

// Month returns a copy of one month's selection.
func (s *Subscription) Month(key MonthKey) (MonthlySelection, error) {
	idx, ok := s.monthIndex(key)
	if !ok {
		return MonthlySelection{}, ErrMonthNotFound.WithDetails("%s", key)
	}
	return s.months[idx].clone(), nil
}

func (s *Subscription) monthIndex(key MonthKey) (int, bool) {
	offset := (key.Year-s.startMonth.Year)*12 + int(key.Month-s.startMonth.Month)
	if offset < 0 || offset >= len(s.months) {
		return 0, false
	}
	return offset, true
}

// Validate checks the structural invariants: one month per plan month,
// contiguous from the start month, one selection per device in device order.
func (s *Subscription) Validate() error {
	if err := s.plan.validate(); err != nil {
		return err
	}
	if s.status != SubscriptionStatusActive && s.status != SubscriptionStatusSuperseded {
		return ErrInvalidSubscription.WithDetails("unknown status %q", s.status)
	}
	if len(s.devices) == 0 {
		return ErrInvalidSubscription.WithDetails("at least one device is required")
	}

	seen := make(map[uuid.UUID]struct{}, len(s.devices))
	for _, d := range s.devices {
		if err := d.validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return ErrInvalidSubscription.WithDetails("device %s listed twice", d.ID)
		}
		seen[d.ID] = struct{}{}
	}

	if len(s.months) != s.plan.DurationMonths {
		return ErrInvalidSubscription.WithDetails("expected %d months, have %d", s.plan.DurationMonths, len(s.months))
	}
	for i, m := range s.months {
		if want := s.startMonth.AddMonths(i); m.Month != want {
			return ErrInvalidSubscription.WithDetails("month %d is %s, expected %s", i, m.Month, want)
		}
		if len(m.Devices) != len(s.devices) {
			return ErrInvalidSubscription.WithDetails("month %s has %d selections for %d devices", m.Month, len(m.Devices), len(s.devices))
		}
		for j, sel := range m.Devices {
			if sel.DeviceID != s.devices[j].ID {
				return ErrInvalidSubscription.WithDetails("month %s selection %d is for an unknown device", m.Month, j)
			}
		}
	}
	return nil
}

// Timeline evaluates every month at a single instant.
func (s *Subscription) Timeline(now time.Time, policy EditPolicy) []MonthState {
	states := make([]MonthState, len(s.months))
	for i, m := range s.months {
		states[i] = policy.Evaluate(m.Month, now)
	}
	return states
}

// CurrentMonth returns the month containing now, if it falls inside the subscription.
func (s *Subscription) CurrentMonth(now time.Time, policy EditPolicy) (MonthKey, bool) {
	key := MonthOf(now, policy.Location)
	if _, ok := s.monthIndex(key); !ok {
		return MonthKey{}, false
	}
	return key, true
}

// CompletedMonths counts months that have fully elapsed at now.
func (s *Subscription) CompletedMonths(now time.Time, policy EditPolicy) int {
	n := 0
	for _, m := range s.months {
		if policy.Evaluate(m.Month, now).Status == StatusCompleted {
			n++
		}
	}
	return n
}

// OilVerifier confirms that an oil exists in the catalog.
type OilVerifier func(oilID string) error

// SetDeviceOil assigns oilID to a device for one month. Checks run in a
// fixed order: month, editability, device, oil. It reports whether anything
// changed; choosing the oil that is already selected is a no-op.
func (s *Subscription) SetDeviceOil(month MonthKey, deviceID uuid.UUID, oilID string, now time.Time, policy EditPolicy, verifyOil OilVerifier) (bool, error) {
	if !s.IsActive() {
		return false, ErrSubscriptionSuperseded.WithDetails("%s", s.ID())
	}

	idx, ok := s.monthIndex(month)
	if !ok {
		return false, ErrMonthNotFound.WithDetails("%s", month)
	}

	state := policy.Evaluate(month, now)
	if !state.CanModify {
		return false, ErrNotModifiable.WithDetails("%s is %s", month, state.Status)
	}

	slot := -1
	for i, sel := range s.months[idx].Devices {
		if sel.DeviceID == deviceID {
			slot = i
			break
		}
	}
	if slot < 0 {
		return false, ErrUnknownDevice.WithDetails("%s", deviceID)
	}

	if oilID == "" {
		return false, ErrUnknownOil.WithDetails("oil id is empty")
	}
	if verifyOil != nil {
		if err := verifyOil(oilID); err != nil {
			return false, err
		}
	}

	previous := s.months[idx].Devices[slot].OilID
	if previous == oilID {
		return false, nil
	}

	s.months[idx].Devices[slot].OilID = oilID
	s.Touch(now)
	s.Record(NewDeviceOilChanged(s, month, deviceID, previous, oilID, now))
	return true, nil
}

// Supersede marks the subscription as replaced by another one. The record
// and its selections are kept.
func (s *Subscription) Supersede(by uuid.UUID, now time.Time) error {
	if !s.IsActive() {
		return ErrSubscriptionSuperseded.WithDetails("%s", s.ID())
	}
	s.status = SubscriptionStatusSuperseded
	s.supersededBy = &by
	s.Touch(now)
	s.Record(NewSubscriptionSuperseded(s, by, now))
	return nil
}
