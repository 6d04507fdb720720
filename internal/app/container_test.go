package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	planchangeCommands "github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/subscribers"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:              "test",
		SQLitePath:          filepath.Join(t.TempDir(), "aromabox.db"),
		OutboxPollInterval:  10 * time.Millisecond,
		OutboxBatchSize:     50,
		OutboxMaxRetries:    3,
		OutboxRetentionDays: 7,
		EditDays:            7,
		EditTimezone:        "UTC",
		PriceTiers:          "100:1000,250:1500,*:2200",
		WorkflowTTL:         time.Hour,
		DependencyTimeout:   time.Second,
	}
}

func signup(t *testing.T, c *Container, accountID uuid.UUID) *subscriptionCommands.CreateSubscriptionResult {
	t.Helper()
	res, err := c.CreateSubscriptionHandler.Handle(context.Background(), subscriptionCommands.CreateSubscriptionCommand{
		AccountID: accountID,
		PlanID:    "half-year",
		Devices: []subscriptionCommands.DeviceInput{
			{Name: "Living room", TypeID: "mini"},
			{Name: "Bedroom", TypeID: "classic"},
		},
	})
	require.NoError(t, err)
	return res
}

func TestContainer_MemoryModeEndToEnd(t *testing.T) {
	ctx := context.Background()
	clock := sharedDomain.NewFixedClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	c, err := newContainer(testConfig(t), slog.Default(), nil, nil, clock)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.InProcessEventBus)
	accountID := uuid.New()
	created := signup(t, c, accountID)
	assert.Equal(t, subscriptionDomain.NewMonthKey(2025, time.April), created.StartMonth)

	month, err := c.GetMonthlySelectionHandler.Handle(ctx, subscriptionQueries.GetMonthlySelectionQuery{
		AccountID: accountID,
		Month:     created.StartMonth,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), month.GrossTotal)
	assert.Equal(t, int64(2125), month.DiscountedTotal)

	_, err = c.SetDeviceOilHandler.Handle(ctx, subscriptionCommands.SetDeviceOilCommand{
		AccountID: accountID,
		Month:     created.StartMonth,
		DeviceID:  month.Devices[0].DeviceID,
		OilID:     "cedar-woods",
	})
	require.NoError(t, err)

	wf, err := c.ProposePlanHandler.Handle(ctx, planchangeCommands.ProposePlanCommand{AccountID: accountID, PlanID: "annual"})
	require.NoError(t, err)
	_, err = c.ConfirmPlanHandler.Handle(ctx, planchangeCommands.ConfirmPlanCommand{WorkflowID: wf.ID})
	require.NoError(t, err)
	done, err := c.SubmitPaymentHandler.Handle(ctx, planchangeCommands.SubmitPaymentCommand{WorkflowID: wf.ID, Method: "card"})
	require.NoError(t, err)
	assert.Equal(t, "completed", done.State)

	summary, err := c.GetSubscriptionSummaryHandler.Handle(ctx, subscriptionQueries.GetSubscriptionSummaryQuery{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, "annual", summary.PlanID)
	assert.Equal(t, *done.NewSubscriptionID, summary.SubscriptionID)

	// created, oil changed, superseded, created
	published, err := c.OutboxProcessor.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, published)
	assert.Equal(t, 1, c.InProcessEventBus.Registry().ConsumerCount())
	assert.Equal(t, 1, counterValue(t, c, subscribers.MetricEventsConsumed, "subscriptions.selection.oil_changed"))
}

func TestContainer_SQLiteMode(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	c, err := NewContainer(ctx, cfg, slog.Default())
	require.NoError(t, err)

	accountID := uuid.New()
	created := signup(t, c, accountID)
	c.Close()

	// Reopening the same file sees the committed subscription.
	c, err = NewContainer(ctx, cfg, slog.Default())
	require.NoError(t, err)
	defer c.Close()

	summary, err := c.GetSubscriptionSummaryHandler.Handle(ctx, subscriptionQueries.GetSubscriptionSummaryQuery{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, created.SubscriptionID, summary.SubscriptionID)
	assert.Equal(t, 6, summary.TotalMonths)

	report := c.Health.Run(ctx)
	assert.Equal(t, "healthy", string(report.Status))

	published, err := c.OutboxProcessor.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, published)
}

func TestContainer_RejectsBadSettings(t *testing.T) {
	clock := sharedDomain.NewFixedClock(time.Now())

	t.Run("price tiers", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.PriceTiers = "100:abc"
		_, err := newContainer(cfg, slog.Default(), nil, nil, clock)
		assert.ErrorContains(t, err, "PRICE_TIERS")
	})

	t.Run("declined payment method", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.DeclinedPaymentMethods = []string{"cheque"}
		_, err := newContainer(cfg, slog.Default(), nil, nil, clock)
		assert.ErrorContains(t, err, "DECLINED_PAYMENT_METHODS")
	})

	t.Run("missing catalog file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
		_, err := newContainer(cfg, slog.Default(), nil, nil, clock)
		assert.ErrorContains(t, err, "catalog")
	})
}

func counterValue(t *testing.T, c *Container, name, routingKey string) int {
	t.Helper()
	families, err := c.Prometheus.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "routing_key" && label.GetValue() == routingKey {
					return int(m.GetCounter().GetValue())
				}
			}
		}
	}
	return 0
}

func TestRepositoryFactory_Memory(t *testing.T) {
	f := NewRepositoryFactory(nil, nil, sharedDomain.SystemClock{}, nil)
	assert.Equal(t, "memory", f.Driver())

	repo, err := f.SubscriptionRepository()
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.NotNil(t, f.WorkflowStore(time.Hour))
	assert.NotNil(t, f.Locker())
}
