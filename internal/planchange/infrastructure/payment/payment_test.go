package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/resilience"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chargedAt = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func request(key string, method domain.PaymentMethod) domain.ChargeRequest {
	return domain.ChargeRequest{IdempotencyKey: key, AccountID: uuid.New(), Method: method, Amount: 22500}
}

func TestSimulatedGateway(t *testing.T) {
	ctx := context.Background()
	g := NewSimulatedGateway([]domain.PaymentMethod{domain.PaymentWallet}, sharedDomain.NewFixedClock(chargedAt), nil)

	r, err := g.Charge(ctx, request("wf-1", domain.PaymentCard))
	require.NoError(t, err)
	assert.Equal(t, int64(22500), r.Amount)
	assert.Equal(t, chargedAt, r.ChargedAt)
	assert.Contains(t, r.ID, "rcpt_")

	again, err := g.Charge(ctx, request("wf-1", domain.PaymentCard))
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID, "same key returns the original receipt")
	assert.Equal(t, 1, g.Charges())

	_, err = g.Charge(ctx, request("wf-2", domain.PaymentWallet))
	assert.ErrorIs(t, err, domain.ErrPaymentRejected)
	assert.True(t, apperrors.IsRetryable(err))
	assert.Equal(t, 1, g.Charges())
}

type gatewayFunc func(ctx context.Context, req domain.ChargeRequest) (*domain.Receipt, error)

func (f gatewayFunc) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.Receipt, error) {
	return f(ctx, req)
}

func TestResilientGateway_DeclinesDoNotTripBreaker(t *testing.T) {
	inner := NewSimulatedGateway([]domain.PaymentMethod{domain.PaymentUPI}, sharedDomain.NewFixedClock(chargedAt), nil)
	cfg := resilience.DefaultConfig("payments")
	cfg.FailureThreshold = 1
	g := NewResilientGateway(inner, cfg, nil)

	for i := 0; i < 3; i++ {
		_, err := g.Charge(context.Background(), request("wf", domain.PaymentUPI))
		assert.ErrorIs(t, err, domain.ErrPaymentRejected)
	}
	assert.Equal(t, "closed", g.BreakerState())

	r, err := g.Charge(context.Background(), request("wf", domain.PaymentCard))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
}

func TestResilientGateway_Timeout(t *testing.T) {
	slow := gatewayFunc(func(ctx context.Context, _ domain.ChargeRequest) (*domain.Receipt, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := resilience.DefaultConfig("payments")
	cfg.Timeout = 20 * time.Millisecond
	g := NewResilientGateway(slow, cfg, nil)

	_, err := g.Charge(context.Background(), request("wf", domain.PaymentCard))
	assert.ErrorIs(t, err, apperrors.ErrDependencyTimeout)
}

func TestResilientGateway_OpensAfterFailures(t *testing.T) {
	calls := 0
	broken := gatewayFunc(func(context.Context, domain.ChargeRequest) (*domain.Receipt, error) {
		calls++
		return nil, errors.New("connection refused")
	})
	cfg := resilience.DefaultConfig("payments")
	cfg.FailureThreshold = 2
	g := NewResilientGateway(broken, cfg, nil)

	for i := 0; i < 2; i++ {
		_, err := g.Charge(context.Background(), request("wf", domain.PaymentCard))
		require.Error(t, err)
	}
	_, err := g.Charge(context.Background(), request("wf", domain.PaymentCard))
	assert.ErrorIs(t, err, apperrors.ErrDependencyUnavailable)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", g.BreakerState())
}
