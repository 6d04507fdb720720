package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/resilience"
)

// ResilientGateway bounds charges with a timeout and a circuit breaker.
// Declines are answers, not outages, and never count against the breaker.
type ResilientGateway struct {
	next  domain.PaymentGateway
	guard *resilience.Guard
}

var _ domain.PaymentGateway = (*ResilientGateway)(nil)

func NewResilientGateway(next domain.PaymentGateway, cfg resilience.Config, logger *slog.Logger) *ResilientGateway {
	if cfg.Name == "" {
		cfg.Name = "payments"
	}
	return &ResilientGateway{next: next, guard: resilience.NewGuard(cfg, logger)}
}

func (r *ResilientGateway) BreakerState() string { return r.guard.State() }

type chargeResult struct {
	receipt *domain.Receipt
	decline error
}

func (r *ResilientGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.Receipt, error) {
	res, err := resilience.Call(ctx, r.guard, func(ctx context.Context) (chargeResult, error) {
		receipt, err := r.next.Charge(ctx, req)
		if errors.Is(err, domain.ErrPaymentRejected) {
			return chargeResult{decline: err}, nil
		}
		return chargeResult{receipt: receipt}, err
	})
	if err != nil {
		return nil, err
	}
	if res.decline != nil {
		return nil, res.decline
	}
	return res.receipt, nil
}
