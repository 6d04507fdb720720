package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/mcp-go"
)

type deviceInput struct {
	Name   string `json:"name" jsonschema:"required"`
	TypeID string `json:"type_id" jsonschema:"required"`
}

type subscriptionCreateInput struct {
	AccountID  string        `json:"account_id,omitempty"`
	PlanID     string        `json:"plan_id" jsonschema:"required"`
	Devices    []deviceInput `json:"devices" jsonschema:"required"`
	StartMonth string        `json:"start_month,omitempty"`
}

type accountInput struct {
	AccountID string `json:"account_id,omitempty"`
}

type monthInput struct {
	AccountID string `json:"account_id,omitempty"`
	Month     string `json:"month" jsonschema:"required"`
}

type setOilInput struct {
	AccountID       string `json:"account_id,omitempty"`
	Month           string `json:"month" jsonschema:"required"`
	DeviceID        string `json:"device_id" jsonschema:"required"`
	OilID           string `json:"oil_id" jsonschema:"required"`
	ExpectedVersion *int   `json:"expected_version,omitempty"`
}

func registerSubscriptionTools(srv *mcp.Server, deps ToolDependencies) error {
	h := subscriptionTools{deps: deps}

	srv.Tool("subscription.create").
		Description("Sign up an account for a plan with one or more devices").
		Handler(h.create)

	srv.Tool("subscription.summary").
		Description("Show the active subscription with progress and current month").
		Handler(h.summary)

	srv.Tool("subscription.month").
		Description("Show one month's oils, prices and whether it can still be changed").
		Handler(h.month)

	srv.Tool("subscription.timeline").
		Description("List every month of the subscription with its status").
		Handler(h.timeline)

	srv.Tool("subscription.set_oil").
		Description("Choose the oil a device gets in an upcoming month").
		Handler(h.setOil)

	return nil
}

// subscriptionTools keeps handlers callable outside the MCP transport.
type subscriptionTools struct {
	deps ToolDependencies
}

func (t subscriptionTools) create(ctx context.Context, input subscriptionCreateInput) (*commands.CreateSubscriptionResult, error) {
	app := t.deps.App
	if app == nil || app.CreateSubscriptionHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.PlanID) == "" {
		return nil, errors.New("plan_id is required")
	}

	cmd := commands.CreateSubscriptionCommand{AccountID: accountID, PlanID: input.PlanID}
	for _, d := range input.Devices {
		cmd.Devices = append(cmd.Devices, commands.DeviceInput{Name: d.Name, TypeID: d.TypeID})
	}
	if input.StartMonth != "" {
		month, err := parseMonth(input.StartMonth)
		if err != nil {
			return nil, err
		}
		cmd.StartMonth = &month
	}
	return app.CreateSubscriptionHandler.Handle(ctx, cmd)
}

func (t subscriptionTools) summary(ctx context.Context, input accountInput) (*queries.SubscriptionSummaryDTO, error) {
	app := t.deps.App
	if app == nil || app.GetSubscriptionSummaryHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	return app.GetSubscriptionSummaryHandler.Handle(ctx, queries.GetSubscriptionSummaryQuery{AccountID: accountID})
}

func (t subscriptionTools) month(ctx context.Context, input monthInput) (*queries.MonthlySelectionDTO, error) {
	app := t.deps.App
	if app == nil || app.GetMonthlySelectionHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	month, err := parseMonth(input.Month)
	if err != nil {
		return nil, err
	}
	return app.GetMonthlySelectionHandler.Handle(ctx, queries.GetMonthlySelectionQuery{AccountID: accountID, Month: month})
}

func (t subscriptionTools) timeline(ctx context.Context, input accountInput) (*queries.TimelineDTO, error) {
	app := t.deps.App
	if app == nil || app.GetTimelineHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	return app.GetTimelineHandler.Handle(ctx, queries.GetTimelineQuery{AccountID: accountID})
}

func (t subscriptionTools) setOil(ctx context.Context, input setOilInput) (*commands.SetDeviceOilResult, error) {
	app := t.deps.App
	if app == nil || app.SetDeviceOilHandler == nil {
		return nil, errNoDatabase
	}
	accountID, err := resolveAccount(app, input.AccountID)
	if err != nil {
		return nil, err
	}
	month, err := parseMonth(input.Month)
	if err != nil {
		return nil, err
	}
	deviceID, err := parseUUID(input.DeviceID)
	if err != nil {
		return nil, err
	}
	return app.SetDeviceOilHandler.Handle(ctx, commands.SetDeviceOilCommand{
		AccountID:       accountID,
		Month:           month,
		DeviceID:        deviceID,
		OilID:           input.OilID,
		ExpectedVersion: input.ExpectedVersion,
	})
}
