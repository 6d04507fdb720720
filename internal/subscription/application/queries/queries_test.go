package queries_test

import (
	"context"
	"testing"
	"time"

	catalogInfra "github.com/felixgeelhaar/aromabox/internal/catalog/infrastructure"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var april = domain.NewMonthKey(2025, time.April)

type fixture struct {
	repo      *persistence.MemoryRepository
	clock     *sharedDomain.FixedClock
	sub       *domain.Subscription
	accountID uuid.UUID
	devices   []domain.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      persistence.NewMemoryRepository(),
		clock:     sharedDomain.NewFixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
		accountID: uuid.New(),
		devices: []domain.Device{
			{ID: uuid.New(), Name: "Bedroom", TypeID: "mini"},
			{ID: uuid.New(), Name: "Living room", TypeID: "classic"},
		},
	}
	sub, err := domain.NewSubscription(domain.NewSubscriptionParams{
		AccountID:   f.accountID,
		Plan:        domain.PlanTerms{PlanID: "half-year", Name: "Half-Year", DurationMonths: 6, DiscountPercent: 15, CatalogVersion: "2025.1"},
		StartMonth:  april,
		Devices:     f.devices,
		DefaultOils: []string{"lavender-fields", "citrus-grove"},
		Now:         f.clock.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), sub, 0))
	f.sub = sub
	return f
}

func TestGetSubscriptionSummary(t *testing.T) {
	f := newFixture(t)
	h := queries.NewGetSubscriptionSummaryHandler(f.repo, f.clock, domain.DefaultEditPolicy())

	t.Run("before the first month", func(t *testing.T) {
		dto, err := h.Handle(context.Background(), queries.GetSubscriptionSummaryQuery{AccountID: f.accountID})
		require.NoError(t, err)

		assert.Equal(t, f.sub.ID(), dto.SubscriptionID)
		assert.Equal(t, "Half-Year", dto.PlanName)
		assert.Equal(t, 2, dto.DeviceCount)
		assert.Equal(t, 0, dto.CompletedMonths)
		assert.Equal(t, 6, dto.TotalMonths)
		assert.Equal(t, 0, dto.ProgressPercent)
		assert.Nil(t, dto.CurrentMonth)
		assert.Equal(t, time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), dto.StartDate)
		assert.Equal(t, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC), dto.EndDate)
		assert.Equal(t, 1, dto.Version)
	})

	t.Run("mid subscription", func(t *testing.T) {
		f.clock.Set(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))
		dto, err := h.Handle(context.Background(), queries.GetSubscriptionSummaryQuery{AccountID: f.accountID})
		require.NoError(t, err)

		assert.Equal(t, 2, dto.CompletedMonths)
		assert.Equal(t, 33, dto.ProgressPercent)
		require.NotNil(t, dto.CurrentMonth)
		assert.Equal(t, "2025-06", dto.CurrentMonth.String())
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetSubscriptionSummaryQuery{AccountID: uuid.New()})
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})
}

func TestGetMonthlySelection(t *testing.T) {
	f := newFixture(t)
	catalog, err := catalogInfra.NewDefaultProvider()
	require.NoError(t, err)
	h := queries.NewGetMonthlySelectionHandler(f.repo, catalog, nil, f.clock, domain.DefaultEditPolicy())

	// Ten days before April's March 25 deadline.
	f.clock.Set(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	dto, err := h.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: april})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusUpcoming, dto.Status)
	assert.True(t, dto.CanModify)
	assert.Equal(t, 10, dto.DaysUntilDeadline)
	assert.Equal(t, time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC), dto.Deadline)

	assert.Equal(t, int64(2500), dto.GrossTotal)
	assert.Equal(t, int64(2125), dto.DiscountedTotal)
	assert.Equal(t, 15, dto.DiscountPercent)

	require.Len(t, dto.Devices, 2)
	assert.Equal(t, "Bedroom", dto.Devices[0].DeviceName)
	assert.Equal(t, 100, dto.Devices[0].CapacityML)
	assert.Equal(t, int64(1000), dto.Devices[0].Price)
	require.NotNil(t, dto.Devices[0].Oil)
	assert.Equal(t, "lavender-fields", dto.Devices[0].Oil.ID)
	assert.Equal(t, int64(1500), dto.Devices[1].Price)

	t.Run("locked after the deadline", func(t *testing.T) {
		f.clock.Set(time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC))
		dto, err := h.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: april})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusLocked, dto.Status)
		assert.False(t, dto.CanModify)
		assert.Equal(t, 0, dto.DaysUntilDeadline)
		assert.Equal(t, int64(2125), dto.DiscountedTotal)
	})

	t.Run("month outside the subscription", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: domain.NewMonthKey(2025, time.December)})
		assert.ErrorIs(t, err, domain.ErrMonthNotFound)
	})
}

func TestGetMonthlySelection_RetiredOilShownByID(t *testing.T) {
	f := newFixture(t)
	catalog, err := catalogInfra.NewDefaultProvider()
	require.NoError(t, err)

	sub, err := f.repo.Load(context.Background(), f.sub.ID())
	require.NoError(t, err)
	_, err = sub.SetDeviceOil(april, f.devices[1].ID, "discontinued-musk", f.clock.Now(), domain.DefaultEditPolicy(), nil)
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(context.Background(), sub, sub.Version()))

	h := queries.NewGetMonthlySelectionHandler(f.repo, catalog, nil, f.clock, domain.DefaultEditPolicy())
	dto, err := h.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: april})
	require.NoError(t, err)
	require.NotNil(t, dto.Devices[1].Oil)
	assert.Equal(t, "discontinued-musk", dto.Devices[1].Oil.Name)
}

// switchPlan replaces the fixture subscription the way a committed plan
// change does, cutting over at the next editable month.
func switchPlan(t *testing.T, f *fixture) *domain.Subscription {
	t.Helper()
	ctx := context.Background()
	old, err := f.repo.Load(ctx, f.sub.ID())
	require.NoError(t, err)

	previousID := old.ID()
	next, err := domain.NewSubscription(domain.NewSubscriptionParams{
		AccountID:   f.accountID,
		Plan:        domain.PlanTerms{PlanID: "annual", Name: "Annual", DurationMonths: 12, DiscountPercent: 25, CatalogVersion: "2025.1"},
		StartMonth:  domain.DefaultEditPolicy().NextEditableMonth(f.clock.Now()),
		Devices:     f.devices,
		DefaultOils: []string{"cedar-woods"},
		PreviousID:  &previousID,
		Now:         f.clock.Now(),
	})
	require.NoError(t, err)

	expected := old.Version()
	require.NoError(t, old.Supersede(next.ID(), f.clock.Now()))
	require.NoError(t, f.repo.Save(ctx, old, expected))
	require.NoError(t, f.repo.Save(ctx, next, 0))
	return next
}

func TestQueries_AfterPlanChange(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC))
	next := switchPlan(t, f)
	require.Equal(t, "2025-07", next.StartMonth().String())

	catalog, err := catalogInfra.NewDefaultProvider()
	require.NoError(t, err)
	policy := domain.DefaultEditPolicy()
	months := queries.NewGetMonthlySelectionHandler(f.repo, catalog, nil, f.clock, policy)

	t.Run("current month is read from the superseded subscription", func(t *testing.T) {
		dto, err := months.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: domain.NewMonthKey(2025, time.June)})
		require.NoError(t, err)
		assert.Equal(t, f.sub.ID(), dto.SubscriptionID)
		assert.Equal(t, domain.StatusCurrent, dto.Status)
		assert.False(t, dto.CanModify)
		assert.Equal(t, 15, dto.DiscountPercent)
	})

	t.Run("months from the cutover come from the new subscription", func(t *testing.T) {
		dto, err := months.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: domain.NewMonthKey(2025, time.July)})
		require.NoError(t, err)
		assert.Equal(t, next.ID(), dto.SubscriptionID)
		assert.Equal(t, 25, dto.DiscountPercent)
		require.NotNil(t, dto.Devices[0].Oil)
		assert.Equal(t, "cedar-woods", dto.Devices[0].Oil.ID)
	})

	t.Run("months before the first subscription are still missing", func(t *testing.T) {
		_, err := months.Handle(context.Background(), queries.GetMonthlySelectionQuery{AccountID: f.accountID, Month: domain.NewMonthKey(2025, time.March)})
		assert.ErrorIs(t, err, domain.ErrMonthNotFound)
	})

	t.Run("summary keeps the earlier history", func(t *testing.T) {
		h := queries.NewGetSubscriptionSummaryHandler(f.repo, f.clock, policy)
		dto, err := h.Handle(context.Background(), queries.GetSubscriptionSummaryQuery{AccountID: f.accountID})
		require.NoError(t, err)

		assert.Equal(t, next.ID(), dto.SubscriptionID)
		assert.Equal(t, "annual", dto.PlanID)
		assert.Equal(t, 0, dto.CompletedMonths)
		assert.Equal(t, 2, dto.EarlierCompletedMonths)
		require.NotNil(t, dto.PreviousSubscriptionID)
		assert.Equal(t, f.sub.ID(), *dto.PreviousSubscriptionID)
		require.NotNil(t, dto.CurrentMonth)
		assert.Equal(t, "2025-06", dto.CurrentMonth.String())
	})
}

func TestGetTimeline(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC))
	h := queries.NewGetTimelineHandler(f.repo, f.clock, domain.DefaultEditPolicy())

	dto, err := h.Handle(context.Background(), queries.GetTimelineQuery{AccountID: f.accountID})
	require.NoError(t, err)
	require.Len(t, dto.Months, 6)

	statuses := make([]domain.SelectionStatus, len(dto.Months))
	for i, m := range dto.Months {
		statuses[i] = m.Status
	}
	assert.Equal(t, []domain.SelectionStatus{
		domain.StatusCompleted,
		domain.StatusCurrent,
		domain.StatusLocked,
		domain.StatusUpcoming,
		domain.StatusUpcoming,
		domain.StatusUpcoming,
	}, statuses)
}
