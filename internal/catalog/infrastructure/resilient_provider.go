package infrastructure

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/resilience"
)

// ResilientProvider bounds every catalog call with a timeout and a circuit
// breaker. Timeouts and an open breaker surface as transient errors.
type ResilientProvider struct {
	next  domain.Provider
	guard *resilience.Guard
}

var _ domain.Provider = (*ResilientProvider)(nil)

// NewResilientProvider wraps next.
func NewResilientProvider(next domain.Provider, cfg resilience.Config, logger *slog.Logger) *ResilientProvider {
	if cfg.Name == "" {
		cfg.Name = "catalog"
	}
	return &ResilientProvider{next: next, guard: resilience.NewGuard(cfg, logger)}
}

// BreakerState exposes the breaker state for health reporting.
func (r *ResilientProvider) BreakerState() string { return r.guard.State() }

func (r *ResilientProvider) Version(ctx context.Context) (string, error) {
	return resilience.Call(ctx, r.guard, r.next.Version)
}

func (r *ResilientProvider) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return resilience.Call(ctx, r.guard, r.next.ListPlans)
}

func (r *ResilientProvider) ListAromaOils(ctx context.Context) ([]domain.AromaOil, error) {
	return resilience.Call(ctx, r.guard, r.next.ListAromaOils)
}

func (r *ResilientProvider) ListDeviceTypes(ctx context.Context) ([]domain.DeviceType, error) {
	return resilience.Call(ctx, r.guard, r.next.ListDeviceTypes)
}

func (r *ResilientProvider) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return resilience.Call(ctx, r.guard, func(ctx context.Context) (*domain.Plan, error) {
		return r.next.GetPlan(ctx, id)
	})
}

func (r *ResilientProvider) GetAromaOil(ctx context.Context, id string) (*domain.AromaOil, error) {
	return resilience.Call(ctx, r.guard, func(ctx context.Context) (*domain.AromaOil, error) {
		return r.next.GetAromaOil(ctx, id)
	})
}

func (r *ResilientProvider) GetDeviceType(ctx context.Context, id string) (*domain.DeviceType, error) {
	return resilience.Call(ctx, r.guard, func(ctx context.Context) (*domain.DeviceType, error) {
		return r.next.GetDeviceType(ctx, id)
	})
}
