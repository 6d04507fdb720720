// Package payment holds PaymentGateway implementations.
package payment

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/oklog/ulid/v2"
)

// SimulatedGateway approves every charge except those paid with a declined
// method. Charges are idempotent per key, as with a real processor.
type SimulatedGateway struct {
	mu       sync.Mutex
	declined map[domain.PaymentMethod]bool
	receipts map[string]domain.Receipt
	clock    sharedDomain.Clock
	logger   *slog.Logger
}

func NewSimulatedGateway(declined []domain.PaymentMethod, clock sharedDomain.Clock, logger *slog.Logger) *SimulatedGateway {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[domain.PaymentMethod]bool, len(declined))
	for _, m := range declined {
		set[m] = true
	}
	return &SimulatedGateway{
		declined: set,
		receipts: make(map[string]domain.Receipt),
		clock:    clock,
		logger:   logger,
	}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.receipts[req.IdempotencyKey]; ok {
		return &r, nil
	}
	if g.declined[req.Method] {
		g.logger.InfoContext(ctx, "simulated charge declined", "method", req.Method, "amount", req.Amount)
		return nil, domain.ErrPaymentRejected.WithDetails("%s declined", req.Method)
	}

	now := g.clock.Now()
	r := domain.Receipt{
		ID:        "rcpt_" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		Method:    req.Method,
		Amount:    req.Amount,
		ChargedAt: now,
	}
	g.receipts[req.IdempotencyKey] = r
	return &r, nil
}

// Charges reports how many distinct charges were taken.
func (g *SimulatedGateway) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.receipts)
}
