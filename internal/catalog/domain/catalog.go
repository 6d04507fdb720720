package domain

import (
	"context"
	"strings"

	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
)

var (
	ErrPlanNotFound       = apperrors.NotFound("plan_not_found", "plan not found")
	ErrUnknownOil         = apperrors.NotFound("unknown_oil", "aroma oil not found")
	ErrDeviceTypeNotFound = apperrors.NotFound("device_type_not_found", "device type not found")
	ErrInvalidCatalog     = apperrors.Validation("invalid_catalog", "catalog data is invalid")
)

// Plan is a subscription tier. Plans are immutable; a price or term change
// ships as a new catalog version.
type Plan struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Description     string `json:"description" yaml:"description"`
	DiscountPercent int    `json:"discount_percent" yaml:"discount_percent"`
	DurationMonths  int    `json:"duration_months" yaml:"duration_months"`
}

// Validate checks the plan's terms.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidCatalog.WithDetails("plan id is empty")
	}
	if p.DiscountPercent < 0 || p.DiscountPercent > 100 {
		return ErrInvalidCatalog.WithDetails("plan %s: discount %d outside 0-100", p.ID, p.DiscountPercent)
	}
	if p.DurationMonths <= 0 {
		return ErrInvalidCatalog.WithDetails("plan %s: duration must be positive", p.ID)
	}
	return nil
}

// DeviceType describes a diffuser model. Capacity drives the price tier.
type DeviceType struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	CapacityML int    `json:"capacity_ml" yaml:"capacity_ml"`
}

func (d DeviceType) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return ErrInvalidCatalog.WithDetails("device type id is empty")
	}
	if d.CapacityML <= 0 {
		return ErrInvalidCatalog.WithDetails("device type %s: capacity must be positive", d.ID)
	}
	return nil
}

// AromaOil is a fragrance that can be assigned to a device for a month.
type AromaOil struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Category    string `json:"category" yaml:"category"`
	Color       string `json:"color" yaml:"color"`
	Description string `json:"description" yaml:"description"`
}

func (o AromaOil) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrInvalidCatalog.WithDetails("oil id is empty")
	}
	return nil
}

// Provider is the read-only catalog contract. Implementations must be safe
// for concurrent use. Version changes whenever any entry changes so that
// callers can snapshot terms against it.
type Provider interface {
	Version(ctx context.Context) (string, error)
	ListPlans(ctx context.Context) ([]Plan, error)
	ListAromaOils(ctx context.Context) ([]AromaOil, error)
	ListDeviceTypes(ctx context.Context) ([]DeviceType, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	GetAromaOil(ctx context.Context, id string) (*AromaOil, error)
	GetDeviceType(ctx context.Context, id string) (*DeviceType, error)
}
