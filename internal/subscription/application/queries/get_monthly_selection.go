package queries

import (
	"context"
	"errors"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// GetMonthlySelectionQuery asks for one month of the account's subscription.
// Months before a plan change are read from the superseded subscription.
type GetMonthlySelectionQuery struct {
	AccountID uuid.UUID
	Month     domain.MonthKey
}

// GetMonthlySelectionHandler handles GetMonthlySelectionQuery.
type GetMonthlySelectionHandler struct {
	repo    domain.Repository
	catalog catalogDomain.Provider
	prices  *domain.PriceTable
	clock   sharedDomain.Clock
	policy  domain.EditPolicy
}

// NewGetMonthlySelectionHandler creates a new GetMonthlySelectionHandler.
// A nil price table falls back to the default tiers.
func NewGetMonthlySelectionHandler(repo domain.Repository, catalog catalogDomain.Provider, prices *domain.PriceTable, clock sharedDomain.Clock, policy domain.EditPolicy) *GetMonthlySelectionHandler {
	if prices == nil {
		prices = domain.DefaultPriceTable()
	}
	return &GetMonthlySelectionHandler{repo: repo, catalog: catalog, prices: prices, clock: clock, policy: policy}
}

// Handle executes the GetMonthlySelectionQuery. Status and totals are derived
// from a single reading of the clock.
func (h *GetMonthlySelectionHandler) Handle(ctx context.Context, query GetMonthlySelectionQuery) (*MonthlySelectionDTO, error) {
	active, err := h.repo.FindActiveByAccountID(ctx, query.AccountID)
	if err != nil {
		return nil, err
	}
	sub, err := subscriptionForMonth(ctx, h.repo, active, query.Month)
	if err != nil {
		return nil, err
	}
	month, err := sub.Month(query.Month)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	state := h.policy.Evaluate(query.Month, now)

	devices := make([]DeviceSelectionDTO, 0, len(month.Devices))
	capacities := make([]int, 0, len(month.Devices))
	for _, sel := range month.Devices {
		device, _ := sub.Device(sel.DeviceID)
		deviceType, err := h.catalog.GetDeviceType(ctx, device.TypeID)
		if err != nil {
			return nil, err
		}
		price, err := h.prices.PriceForDevice(deviceType.CapacityML)
		if err != nil {
			return nil, err
		}

		dto := DeviceSelectionDTO{
			DeviceID:   device.ID,
			DeviceName: device.Name,
			TypeID:     deviceType.ID,
			TypeName:   deviceType.Name,
			CapacityML: deviceType.CapacityML,
			Price:      price,
		}
		if sel.HasOil() {
			oil, err := h.resolveOil(ctx, sel.OilID)
			if err != nil {
				return nil, err
			}
			dto.Oil = oil
		}
		devices = append(devices, dto)
		capacities = append(capacities, deviceType.CapacityML)
	}

	totals, err := h.prices.MonthlyTotal(capacities, sub.Plan().DiscountPercent)
	if err != nil {
		return nil, err
	}

	return &MonthlySelectionDTO{
		SubscriptionID:    sub.ID(),
		Month:             query.Month,
		Status:            state.Status,
		CanModify:         state.CanModify,
		DaysUntilDeadline: state.DaysUntilDeadline,
		Deadline:          state.Deadline,
		Devices:           devices,
		GrossTotal:        totals.Gross,
		DiscountedTotal:   totals.Discounted,
		DiscountPercent:   totals.DiscountPercent,
		Version:           sub.Version(),
	}, nil
}

// resolveOil looks up display fields. An oil retired from the catalog is
// still shown by id.
func (h *GetMonthlySelectionHandler) resolveOil(ctx context.Context, id string) (*OilDTO, error) {
	oil, err := h.catalog.GetAromaOil(ctx, id)
	if errors.Is(err, catalogDomain.ErrUnknownOil) {
		return &OilDTO{ID: id, Name: id}, nil
	}
	if err != nil {
		return nil, err
	}
	return &OilDTO{ID: oil.ID, Name: oil.Name, Category: oil.Category, Color: oil.Color}, nil
}
