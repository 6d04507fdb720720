package mcp

import (
	"context"

	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/felixgeelhaar/mcp-go"
)

// CatalogListing is the whole catalog with device prices resolved.
type CatalogListing struct {
	Version string            `json:"version"`
	Plans   []domain.Plan     `json:"plans"`
	Oils    []domain.AromaOil `json:"oils"`
	Devices []PricedDevice    `json:"devices"`
}

// PricedDevice is a device type with its monthly oil price.
type PricedDevice struct {
	domain.DeviceType
	MonthlyPrice int64 `json:"monthly_price"`
}

func registerCatalogTools(srv *mcp.Server, deps ToolDependencies) error {
	srv.Tool("catalog.list").
		Description("List plans, aroma oils and device types with monthly prices").
		Handler(func(ctx context.Context, input struct{}) (*CatalogListing, error) {
			return loadCatalog(ctx, deps)
		})
	return nil
}

func loadCatalog(ctx context.Context, deps ToolDependencies) (*CatalogListing, error) {
	app := deps.App
	if app == nil || app.Catalog == nil || app.Prices == nil {
		return nil, errNoDatabase
	}
	version, err := app.Catalog.Version(ctx)
	if err != nil {
		return nil, err
	}
	plans, err := app.Catalog.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	oils, err := app.Catalog.ListAromaOils(ctx)
	if err != nil {
		return nil, err
	}
	types, err := app.Catalog.ListDeviceTypes(ctx)
	if err != nil {
		return nil, err
	}

	listing := &CatalogListing{Version: version, Plans: plans, Oils: oils}
	for _, t := range types {
		price, err := app.Prices.PriceForDevice(t.CapacityML)
		if err != nil {
			return nil, err
		}
		listing.Devices = append(listing.Devices, PricedDevice{DeviceType: t, MonthlyPrice: price})
	}
	return listing, nil
}
