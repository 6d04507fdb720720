package commands

import (
	"context"
	"log/slog"
	"time"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// SetDeviceOilCommand assigns an oil to one device for one month.
type SetDeviceOilCommand struct {
	AccountID uuid.UUID
	// SubscriptionID is optional; the account's active subscription is used when nil.
	SubscriptionID uuid.UUID
	Month          domain.MonthKey
	DeviceID       uuid.UUID
	OilID          string
	// ExpectedVersion makes the write conditional on the version the caller read.
	ExpectedVersion *int
}

// SetDeviceOilResult reports the outcome of a selection change.
type SetDeviceOilResult struct {
	SubscriptionID uuid.UUID
	Changed        bool
	Version        int
	MonthState     domain.MonthState
}

// SetDeviceOilHandler handles SetDeviceOilCommand.
type SetDeviceOilHandler struct {
	repo       domain.Repository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	locker     sharedApplication.Locker
	catalog    catalogDomain.Provider
	clock      sharedDomain.Clock
	policy     domain.EditPolicy
	metrics    observability.Metrics
	logger     *slog.Logger
}

// NewSetDeviceOilHandler creates a new SetDeviceOilHandler.
func NewSetDeviceOilHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locker sharedApplication.Locker,
	catalog catalogDomain.Provider,
	clock sharedDomain.Clock,
	policy domain.EditPolicy,
	metrics observability.Metrics,
	logger *slog.Logger,
) *SetDeviceOilHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &SetDeviceOilHandler{
		repo:       repo,
		outboxRepo: outboxRepo,
		uow:        uow,
		locker:     locker,
		catalog:    catalog,
		clock:      clock,
		policy:     policy,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle executes the SetDeviceOilCommand.
func (h *SetDeviceOilHandler) Handle(ctx context.Context, cmd SetDeviceOilCommand) (result *SetDeviceOilResult, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "set_device_oil", start, sharedApplication.Outcome(err))
	}()

	err = sharedApplication.WithLock(ctx, h.locker, sharedApplication.AccountLockKey(cmd.AccountID.String()), func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			sub, err := loadOwned(txCtx, h.repo, cmd.AccountID, cmd.SubscriptionID)
			if err != nil {
				return err
			}

			expected := sub.Version()
			if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != expected {
				return domain.ErrVersionConflict.WithDetails("expected version %d, stored %d", *cmd.ExpectedVersion, expected)
			}

			now := h.clock.Now()
			changed, err := sub.SetDeviceOil(cmd.Month, cmd.DeviceID, cmd.OilID, now, h.policy, func(oilID string) error {
				_, err := h.catalog.GetAromaOil(txCtx, oilID)
				return err
			})
			if err != nil {
				return err
			}

			if changed {
				if err := h.repo.Save(txCtx, sub, expected); err != nil {
					return err
				}
				if err := saveEvents(txCtx, h.outboxRepo, cmd.AccountID, sub); err != nil {
					return err
				}
			}

			result = &SetDeviceOilResult{
				SubscriptionID: sub.ID(),
				Changed:        changed,
				Version:        sub.Version(),
				MonthState:     h.policy.Evaluate(cmd.Month, now),
			}
			return nil
		})
	})
	if err != nil {
		h.logger.DebugContext(ctx, "set device oil rejected",
			"account_id", cmd.AccountID,
			"month", cmd.Month.String(),
			"device_id", cmd.DeviceID,
			"error", err,
		)
		return nil, err
	}

	if result.Changed {
		h.metrics.Counter(observability.MetricOilChanges, 1)
		h.logger.InfoContext(ctx, "device oil changed",
			"subscription_id", result.SubscriptionID,
			"month", cmd.Month.String(),
			"device_id", cmd.DeviceID,
			"oil_id", cmd.OilID,
			"version", result.Version,
		)
	}
	return result, nil
}

// loadOwned resolves the target subscription and hides subscriptions that
// belong to another account.
func loadOwned(ctx context.Context, repo domain.Repository, accountID, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	if subscriptionID == uuid.Nil {
		return repo.FindActiveByAccountID(ctx, accountID)
	}
	sub, err := repo.Load(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.AccountID() != accountID {
		return nil, domain.ErrSubscriptionNotFound.WithDetails("%s", subscriptionID)
	}
	return sub, nil
}
