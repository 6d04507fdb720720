package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose subscription data.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	if err := registerSubscriptionResources(srv, deps); err != nil {
		return err
	}
	if err := registerCatalogResources(srv, deps); err != nil {
		return err
	}

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}

func registerSubscriptionResources(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Resource("aromabox://subscription").
		Name("Subscription").
		Description("Active subscription of the configured account").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.GetSubscriptionSummaryHandler == nil {
				return nil, fmt.Errorf("subscription summary requires database connection")
			}
			summary, err := app.GetSubscriptionSummaryHandler.Handle(ctx, queries.GetSubscriptionSummaryQuery{AccountID: app.CurrentAccountID})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, summary)
		})

	srv.Resource("aromabox://subscription/timeline").
		Name("Subscription Timeline").
		Description("Every month of the active subscription with its status").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.GetTimelineHandler == nil {
				return nil, fmt.Errorf("timeline requires database connection")
			}
			timeline, err := app.GetTimelineHandler.Handle(ctx, queries.GetTimelineQuery{AccountID: app.CurrentAccountID})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, timeline)
		})

	srv.Resource("aromabox://subscription/next-month").
		Name("Next Editable Month").
		Description("Selections and price for the next month that can still be changed").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.GetMonthlySelectionHandler == nil || app.Clock == nil {
				return nil, fmt.Errorf("monthly selection requires database connection")
			}
			view, err := app.GetMonthlySelectionHandler.Handle(ctx, queries.GetMonthlySelectionQuery{
				AccountID: app.CurrentAccountID,
				Month:     app.Policy.NextEditableMonth(app.Clock.Now()),
			})
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, view)
		})

	return nil
}

func registerCatalogResources(srv *mcp.Server, deps ToolDependencies) error {
	srv.Resource("aromabox://catalog").
		Name("Catalog").
		Description("Plans, aroma oils and device types with monthly prices").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			listing, err := loadCatalog(ctx, deps)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, listing)
		})

	return nil
}
