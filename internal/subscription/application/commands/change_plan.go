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

// ChangePlanCommand replaces an account's active subscription with one on
// new plan terms.
type ChangePlanCommand struct {
	AccountID uuid.UUID
	Plan      domain.PlanTerms
	// ReplacesID is the subscription the change was proposed against. When
	// the active subscription already replaced it, the change is reported as
	// applied instead of being repeated.
	ReplacesID uuid.UUID
}

// ChangePlanResult identifies both ends of the supersede link.
type ChangePlanResult struct {
	PreviousID     uuid.UUID
	SubscriptionID uuid.UUID
	CutoverMonth   domain.MonthKey
	EndMonth       domain.MonthKey
	AlreadyApplied bool
}

// ChangePlanHandler handles ChangePlanCommand.
type ChangePlanHandler struct {
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

// NewChangePlanHandler creates a new ChangePlanHandler.
func NewChangePlanHandler(
	repo domain.Repository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	locker sharedApplication.Locker,
	catalog catalogDomain.Provider,
	clock sharedDomain.Clock,
	policy domain.EditPolicy,
	metrics observability.Metrics,
	logger *slog.Logger,
) *ChangePlanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &ChangePlanHandler{
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

// Handle takes the account lock and applies the change.
func (h *ChangePlanHandler) Handle(ctx context.Context, cmd ChangePlanCommand) (*ChangePlanResult, error) {
	var result *ChangePlanResult
	err := sharedApplication.WithLock(ctx, h.locker, sharedApplication.AccountLockKey(cmd.AccountID.String()), func(ctx context.Context) error {
		var err error
		result, err = h.HandleLocked(ctx, cmd)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// HandleLocked applies the change. The caller must hold the account lock.
func (h *ChangePlanHandler) HandleLocked(ctx context.Context, cmd ChangePlanCommand) (result *ChangePlanResult, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "change_plan", start, sharedApplication.Outcome(err))
	}()

	defaults, err := defaultOils(ctx, h.catalog)
	if err != nil {
		return nil, err
	}

	err = sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		old, err := h.repo.FindActiveByAccountID(txCtx, cmd.AccountID)
		if err != nil {
			return err
		}

		if cmd.ReplacesID != uuid.Nil && old.ID() != cmd.ReplacesID {
			if prev := old.PreviousID(); prev != nil && *prev == cmd.ReplacesID {
				result = &ChangePlanResult{
					PreviousID:     cmd.ReplacesID,
					SubscriptionID: old.ID(),
					CutoverMonth:   old.StartMonth(),
					EndMonth:       old.EndMonth(),
					AlreadyApplied: true,
				}
				return nil
			}
			return domain.ErrVersionConflict.WithDetails("active subscription is %s, change was proposed against %s", old.ID(), cmd.ReplacesID)
		}

		now := h.clock.Now()
		previousID := old.ID()
		next, err := domain.NewSubscription(domain.NewSubscriptionParams{
			AccountID:   cmd.AccountID,
			Plan:        cmd.Plan,
			StartMonth:  h.policy.NextEditableMonth(now),
			Devices:     old.Devices(),
			DefaultOils: defaults,
			PreviousID:  &previousID,
			Now:         now,
		})
		if err != nil {
			return err
		}

		expected := old.Version()
		if err := old.Supersede(next.ID(), now); err != nil {
			return err
		}
		// The old record must leave the active slot before the new one takes it.
		if err := h.repo.Save(txCtx, old, expected); err != nil {
			return err
		}
		if err := h.repo.Save(txCtx, next, 0); err != nil {
			return err
		}
		if err := saveEvents(txCtx, h.outboxRepo, cmd.AccountID, old); err != nil {
			return err
		}
		if err := saveEvents(txCtx, h.outboxRepo, cmd.AccountID, next); err != nil {
			return err
		}

		result = &ChangePlanResult{
			PreviousID:     previousID,
			SubscriptionID: next.ID(),
			CutoverMonth:   next.StartMonth(),
			EndMonth:       next.EndMonth(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyApplied {
		h.logger.InfoContext(ctx, "plan changed",
			"account_id", cmd.AccountID,
			"previous_id", result.PreviousID,
			"subscription_id", result.SubscriptionID,
			"plan_id", cmd.Plan.PlanID,
			"cutover", result.CutoverMonth.String(),
		)
	}
	return result, nil
}
