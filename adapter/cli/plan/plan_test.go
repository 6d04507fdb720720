package plan

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	internalApp "github.com/felixgeelhaar/aromabox/internal/app"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionQueries "github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workflowIDPattern = regexp.MustCompile(`Plan change (\S+) \[`)

func setupApp(t *testing.T, declined ...string) (*internalApp.Container, uuid.UUID) {
	t.Helper()
	cfg := &config.Config{
		AppEnv:                 "test",
		SQLitePath:             filepath.Join(t.TempDir(), "cli.db"),
		OutboxPollInterval:     time.Second,
		OutboxBatchSize:        10,
		OutboxMaxRetries:       3,
		OutboxRetentionDays:    7,
		EditDays:               7,
		EditTimezone:           "UTC",
		PriceTiers:             "100:1000,250:1500,*:2200",
		WorkflowTTL:            time.Hour,
		DependencyTimeout:      time.Second,
		DeclinedPaymentMethods: declined,
	}
	c, err := internalApp.NewContainer(context.Background(), cfg, slog.Default())
	require.NoError(t, err)
	accountID := uuid.New()
	t.Cleanup(func() {
		cli.SetApp(nil)
		c.Close()
	})
	cli.SetApp(cli.NewApp(c, accountID))

	_, err = c.CreateSubscriptionHandler.Handle(context.Background(), subscriptionCommands.CreateSubscriptionCommand{
		AccountID: accountID,
		PlanID:    "half-year",
		Devices: []subscriptionCommands.DeviceInput{
			{Name: "Living room", TypeID: "mini"},
			{Name: "Bedroom", TypeID: "classic"},
		},
	})
	require.NoError(t, err)
	return c, accountID
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	method = "card"
	for _, c := range Cmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
	var out bytes.Buffer
	Cmd.SetOut(&out)
	Cmd.SetErr(&out)
	Cmd.SetArgs(args)
	err := Cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func workflowID(t *testing.T, out string) string {
	t.Helper()
	m := workflowIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "no workflow id in %q", out)
	return m[1]
}

func TestPlanCommands_SwitchToAnnual(t *testing.T) {
	c, accountID := setupApp(t)

	out, err := run(t, "propose", "annual")
	require.NoError(t, err)
	assert.Contains(t, out, "[awaiting_plan_confirmation]")
	assert.Contains(t, out, "Annual (12 months, 25% off)")
	id := workflowID(t, out)

	out, err = run(t, "confirm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[awaiting_payment]")

	out, err = run(t, "pay", id, "--method", "upi")
	require.NoError(t, err)
	assert.Contains(t, out, "[completed]")
	assert.Contains(t, out, "Receipt:")
	assert.Contains(t, out, "New subscription:")

	out, err = run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[completed]")

	summary, err := c.GetSubscriptionSummaryHandler.Handle(context.Background(), subscriptionQueries.GetSubscriptionSummaryQuery{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, "annual", summary.PlanID)
}

func TestPlanCommands_DeclinedPaymentKeepsSubscription(t *testing.T) {
	c, accountID := setupApp(t, "wallet")

	out, err := run(t, "propose", "quarterly")
	require.NoError(t, err)
	id := workflowID(t, out)
	_, err = run(t, "confirm", id)
	require.NoError(t, err)

	_, err = run(t, "pay", id, "--method", "wallet")
	require.Error(t, err)

	out, err = run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[awaiting_payment]")
	assert.Contains(t, out, "Attempts: 1")

	summary, err := c.GetSubscriptionSummaryHandler.Handle(context.Background(), subscriptionQueries.GetSubscriptionSummaryQuery{AccountID: accountID})
	require.NoError(t, err)
	assert.Equal(t, "half-year", summary.PlanID)

	out, err = run(t, "cancel", id)
	require.NoError(t, err)
	assert.Contains(t, out, "[cancelled]")
}

func TestPlanCommands_Errors(t *testing.T) {
	setupApp(t)

	_, err := run(t, "propose", "no-such-plan")
	assert.Error(t, err)

	_, err = run(t, "show", "missing")
	assert.Error(t, err)

	out, err := run(t, "propose", "annual")
	require.NoError(t, err)
	id := workflowID(t, out)

	_, err = run(t, "pay", id)
	assert.Error(t, err, "paying before confirming must fail")

	_, err = run(t, "pay", id, "--method", "cheque")
	assert.Error(t, err)
}
