package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	signupTime = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	halfYear   = PlanTerms{PlanID: "half-year", Name: "Half Year", DurationMonths: 6, DiscountPercent: 15, CatalogVersion: "v1"}
)

func testDevices() []Device {
	return []Device{
		{ID: uuid.New(), Name: "Living room", TypeID: "mini"},
		{ID: uuid.New(), Name: "Bedroom", TypeID: "classic"},
	}
}

func newTestSubscription(t *testing.T) *Subscription {
	t.Helper()
	sub, err := NewSubscription(NewSubscriptionParams{
		AccountID:   uuid.New(),
		Plan:        halfYear,
		StartMonth:  NewMonthKey(2025, time.April),
		Devices:     testDevices(),
		DefaultOils: []string{"lavender-fields", "citrus-grove", "cedar-woods"},
		Now:         signupTime,
	})
	require.NoError(t, err)
	return sub
}

func TestNewSubscription(t *testing.T) {
	sub := newTestSubscription(t)

	months := sub.Months()
	require.Len(t, months, 6)
	assert.Equal(t, NewMonthKey(2025, time.April), months[0].Month)
	assert.Equal(t, NewMonthKey(2025, time.September), sub.EndMonth())
	for i := 1; i < len(months); i++ {
		assert.Equal(t, months[i-1].Month.Next(), months[i].Month)
	}

	// default oils rotate by month and device
	assert.Equal(t, "lavender-fields", months[0].Devices[0].OilID)
	assert.Equal(t, "citrus-grove", months[0].Devices[1].OilID)
	assert.Equal(t, "citrus-grove", months[1].Devices[0].OilID)

	assert.True(t, sub.IsActive())
	assert.Equal(t, 0, sub.Version())

	events := sub.DomainEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(*SubscriptionCreated)
	require.True(t, ok)
	assert.Equal(t, RoutingKeySubscriptionCreated, created.RoutingKey())
	assert.Equal(t, 2, created.DeviceCount)
}

func TestNewSubscription_WithoutDefaults(t *testing.T) {
	sub, err := NewSubscription(NewSubscriptionParams{
		AccountID:  uuid.New(),
		Plan:       PlanTerms{PlanID: "monthly", DurationMonths: 1},
		StartMonth: NewMonthKey(2025, time.April),
		Devices:    testDevices()[:1],
		Now:        signupTime,
	})
	require.NoError(t, err)

	m := sub.Months()[0]
	assert.False(t, m.Devices[0].HasOil())
}

func TestNewSubscription_Invalid(t *testing.T) {
	dup := uuid.New()
	base := NewSubscriptionParams{
		AccountID:  uuid.New(),
		Plan:       halfYear,
		StartMonth: NewMonthKey(2025, time.April),
		Devices:    testDevices(),
		Now:        signupTime,
	}

	tests := map[string]func(p *NewSubscriptionParams){
		"no account":     func(p *NewSubscriptionParams) { p.AccountID = uuid.Nil },
		"no start":       func(p *NewSubscriptionParams) { p.StartMonth = MonthKey{} },
		"zero duration":  func(p *NewSubscriptionParams) { p.Plan.DurationMonths = 0 },
		"no devices":     func(p *NewSubscriptionParams) { p.Devices = nil },
		"unnamed device": func(p *NewSubscriptionParams) { p.Devices = []Device{{ID: uuid.New(), TypeID: "mini"}} },
		"untyped device": func(p *NewSubscriptionParams) { p.Devices = []Device{{ID: uuid.New(), Name: "x"}} },
		"duplicate ids":  func(p *NewSubscriptionParams) { p.Devices = []Device{{ID: dup, Name: "a", TypeID: "mini"}, {ID: dup, Name: "b", TypeID: "mini"}} },
		"bad discount":   func(p *NewSubscriptionParams) { p.Plan.DiscountPercent = 150 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := base
			mutate(&p)
			_, err := NewSubscription(p)
			require.Error(t, err)
		})
	}
}

func TestSubscription_TimelineInvariants(t *testing.T) {
	sub := newTestSubscription(t)
	policy := DefaultEditPolicy()

	// Walk day by day from before the start to after the end.
	for now := signupTime; now.Before(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)); now = now.Add(24 * time.Hour) {
		states := sub.Timeline(now, policy)
		current := -1
		for i, st := range states {
			if st.Status == StatusCurrent {
				require.Equal(t, -1, current, "two current months at %s", now)
				current = i
			}
		}
		if current >= 0 {
			for i := 0; i < current; i++ {
				assert.Equal(t, StatusCompleted, states[i].Status)
			}
			for i := current + 1; i < len(states); i++ {
				assert.NotEqual(t, StatusCompleted, states[i].Status)
			}
		}
		for _, st := range states {
			assert.Equal(t, st.Status == StatusUpcoming, st.CanModify)
		}
	}
}

func TestSubscription_CompletedMonths(t *testing.T) {
	sub := newTestSubscription(t)
	policy := DefaultEditPolicy()

	assert.Equal(t, 0, sub.CompletedMonths(signupTime, policy))
	assert.Equal(t, 2, sub.CompletedMonths(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), policy))
	assert.Equal(t, 6, sub.CompletedMonths(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), policy))

	current, ok := sub.CurrentMonth(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), policy)
	require.True(t, ok)
	assert.Equal(t, NewMonthKey(2025, time.June), current)

	_, ok = sub.CurrentMonth(signupTime, policy)
	assert.False(t, ok)
}

func TestSubscription_SetDeviceOil(t *testing.T) {
	policy := DefaultEditPolicy()
	knownOils := map[string]bool{"ocean-breeze": true, "lavender-fields": true}
	verify := func(id string) error {
		if !knownOils[id] {
			return ErrUnknownOil
		}
		return nil
	}

	t.Run("changes an upcoming month", func(t *testing.T) {
		sub := newTestSubscription(t)
		sub.ClearDomainEvents()
		device := sub.Devices()[1]
		may := NewMonthKey(2025, time.May)

		changed, err := sub.SetDeviceOil(may, device.ID, "ocean-breeze", signupTime, policy, verify)
		require.NoError(t, err)
		assert.True(t, changed)

		m, err := sub.Month(may)
		require.NoError(t, err)
		sel, _ := m.Selection(device.ID)
		assert.Equal(t, "ocean-breeze", sel.OilID)

		// the other device is untouched
		other, _ := m.Selection(sub.Devices()[0].ID)
		assert.NotEqual(t, "ocean-breeze", other.OilID)

		events := sub.DomainEvents()
		require.Len(t, events, 1)
		ev := events[0].(*DeviceOilChanged)
		assert.Equal(t, may, ev.Month)
		assert.Equal(t, "ocean-breeze", ev.OilID)
		assert.Equal(t, RoutingKeyDeviceOilChanged, ev.RoutingKey())
	})

	t.Run("same oil is a no-op", func(t *testing.T) {
		sub := newTestSubscription(t)
		sub.ClearDomainEvents()
		device := sub.Devices()[0]
		april := NewMonthKey(2025, time.April)

		changed, err := sub.SetDeviceOil(april, device.ID, "lavender-fields", signupTime, policy, verify)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, sub.DomainEvents())
	})

	t.Run("locked month is rejected and unchanged", func(t *testing.T) {
		sub := newTestSubscription(t)
		device := sub.Devices()[0]
		april := NewMonthKey(2025, time.April)
		locked := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)
		before, _ := sub.Month(april)

		_, err := sub.SetDeviceOil(april, device.ID, "ocean-breeze", locked, policy, verify)
		assert.ErrorIs(t, err, ErrNotModifiable)

		after, _ := sub.Month(april)
		assert.Equal(t, before, after)
	})

	t.Run("current month is rejected", func(t *testing.T) {
		sub := newTestSubscription(t)
		_, err := sub.SetDeviceOil(NewMonthKey(2025, time.April), sub.Devices()[0].ID, "ocean-breeze",
			time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), policy, verify)
		assert.ErrorIs(t, err, ErrNotModifiable)
	})

	t.Run("checks run in order", func(t *testing.T) {
		sub := newTestSubscription(t)
		device := sub.Devices()[0]
		locked := time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)

		_, err := sub.SetDeviceOil(NewMonthKey(2026, time.January), uuid.New(), "nope", signupTime, policy, verify)
		assert.ErrorIs(t, err, ErrMonthNotFound)

		_, err = sub.SetDeviceOil(NewMonthKey(2025, time.April), uuid.New(), "nope", locked, policy, verify)
		assert.ErrorIs(t, err, ErrNotModifiable)

		_, err = sub.SetDeviceOil(NewMonthKey(2025, time.May), uuid.New(), "nope", signupTime, policy, verify)
		assert.ErrorIs(t, err, ErrUnknownDevice)

		_, err = sub.SetDeviceOil(NewMonthKey(2025, time.May), device.ID, "nope", signupTime, policy, verify)
		assert.ErrorIs(t, err, ErrUnknownOil)

		_, err = sub.SetDeviceOil(NewMonthKey(2025, time.May), device.ID, "", signupTime, policy, nil)
		assert.ErrorIs(t, err, ErrUnknownOil)
	})

	t.Run("verifier errors pass through", func(t *testing.T) {
		sub := newTestSubscription(t)
		boom := errors.New("catalog down")
		_, err := sub.SetDeviceOil(NewMonthKey(2025, time.May), sub.Devices()[0].ID, "x", signupTime, policy,
			func(string) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("superseded subscriptions are read-only", func(t *testing.T) {
		sub := newTestSubscription(t)
		require.NoError(t, sub.Supersede(uuid.New(), signupTime))

		_, err := sub.SetDeviceOil(NewMonthKey(2025, time.May), sub.Devices()[0].ID, "ocean-breeze", signupTime, policy, verify)
		assert.ErrorIs(t, err, ErrSubscriptionSuperseded)
	})
}

func TestSubscription_Supersede(t *testing.T) {
	sub := newTestSubscription(t)
	sub.ClearDomainEvents()
	next := uuid.New()

	require.NoError(t, sub.Supersede(next, signupTime))
	assert.Equal(t, SubscriptionStatusSuperseded, sub.Status())
	require.NotNil(t, sub.SupersededBy())
	assert.Equal(t, next, *sub.SupersededBy())
	assert.Len(t, sub.Months(), 6)

	events := sub.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, RoutingKeySubscriptionSuperseded, events[0].RoutingKey())

	assert.ErrorIs(t, sub.Supersede(uuid.New(), signupTime), ErrSubscriptionSuperseded)
}

func TestRehydrateSubscription(t *testing.T) {
	sub := newTestSubscription(t)

	params := RehydrateSubscriptionParams{
		ID:         sub.ID(),
		AccountID:  sub.AccountID(),
		Plan:       sub.Plan(),
		StartMonth: sub.StartMonth(),
		Devices:    sub.Devices(),
		Months:     sub.Months(),
		Status:     sub.Status(),
		Version:    4,
		CreatedAt:  sub.CreatedAt(),
		UpdatedAt:  sub.UpdatedAt(),
	}

	restored, err := RehydrateSubscription(params)
	require.NoError(t, err)
	assert.Equal(t, 4, restored.Version())
	assert.Equal(t, sub.Months(), restored.Months())
	assert.Empty(t, restored.DomainEvents())

	params.Months = params.Months[:5]
	_, err = RehydrateSubscription(params)
	assert.ErrorIs(t, err, ErrInvalidSubscription)

	params.Months = sub.Months()
	params.Months[2].Month = NewMonthKey(2030, time.January)
	_, err = RehydrateSubscription(params)
	assert.ErrorIs(t, err, ErrInvalidSubscription)
}
