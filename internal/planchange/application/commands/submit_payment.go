package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionCommands "github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

// PlanSwitcher commits the new subscription. Callers hold the account lock.
type PlanSwitcher interface {
	HandleLocked(ctx context.Context, cmd subscriptionCommands.ChangePlanCommand) (*subscriptionCommands.ChangePlanResult, error)
}

// SubmitPaymentCommand pays for a confirmed proposal.
type SubmitPaymentCommand struct {
	WorkflowID string
	Method     string
}

// SubmitPaymentHandler handles SubmitPaymentCommand.
type SubmitPaymentHandler struct {
	subscriptions subscriptionDomain.Repository
	store         domain.Store
	gateway       domain.PaymentGateway
	locker        sharedApplication.Locker
	uow           sharedApplication.UnitOfWork
	switcher      PlanSwitcher
	clock         sharedDomain.Clock
	metrics       observability.Metrics
	logger        *slog.Logger
}

func NewSubmitPaymentHandler(
	subscriptions subscriptionDomain.Repository,
	store domain.Store,
	gateway domain.PaymentGateway,
	locker sharedApplication.Locker,
	uow sharedApplication.UnitOfWork,
	switcher PlanSwitcher,
	clock sharedDomain.Clock,
	metrics observability.Metrics,
	logger *slog.Logger,
) *SubmitPaymentHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if uow == nil {
		uow = sharedApplication.NoopUnitOfWork{}
	}
	return &SubmitPaymentHandler{
		subscriptions: subscriptions,
		store:         store,
		gateway:       gateway,
		locker:        locker,
		uow:           uow,
		switcher:      switcher,
		clock:         clock,
		metrics:       metrics,
		logger:        logger,
	}
}

// Handle charges the customer once, then swaps the subscription and closes
// the workflow. When a receipt is already on file the charge is skipped, so
// a retry after a failed commit never bills twice.
//
// Everything runs under the account lock on a copy of the workflow read
// inside it, so a concurrent cancel either lands first and stops the
// payment or waits and finds the workflow completed. The swap and the final
// workflow write share one unit of work; a workflow changed behind the lock
// rolls the swap back.
func (h *SubmitPaymentHandler) Handle(ctx context.Context, cmd SubmitPaymentCommand) (dto *queries.WorkflowDTO, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "submit_payment", start, sharedApplication.Outcome(err))
	}()

	method, err := domain.ParsePaymentMethod(cmd.Method)
	if err != nil {
		return nil, err
	}
	peek, err := h.store.Get(ctx, cmd.WorkflowID)
	if err != nil {
		return nil, err
	}

	var wf *domain.Workflow
	err = sharedApplication.WithLock(ctx, h.locker, sharedApplication.AccountLockKey(peek.AccountID.String()), func(ctx context.Context) error {
		current, err := h.store.Get(ctx, cmd.WorkflowID)
		if err != nil {
			return err
		}
		wf = current
		if err := wf.CanPay(); err != nil {
			return err
		}

		if !wf.IsPaid() {
			if err := h.checkStillCurrent(ctx, wf); err != nil {
				return err
			}
			if err := h.charge(ctx, wf, method); err != nil {
				return err
			}
		}

		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			res, err := h.switcher.HandleLocked(txCtx, subscriptionCommands.ChangePlanCommand{
				AccountID:  wf.AccountID,
				Plan:       wf.Terms,
				ReplacesID: wf.SubscriptionID,
			})
			if err != nil {
				return err
			}
			if err := wf.Complete(res.SubscriptionID, h.clock.Now()); err != nil {
				return err
			}
			return h.store.Save(txCtx, wf)
		})
	})
	if err != nil {
		if wf != nil && wf.IsPaid() {
			h.logger.ErrorContext(ctx, "plan change commit failed after payment",
				"workflow_id", wf.ID,
				"receipt_id", wf.Receipt.ID,
				"error", err,
			)
		}
		return nil, err
	}

	h.metrics.Counter(observability.MetricPlanChanges, 1, observability.T("state", string(wf.State)))
	h.logger.InfoContext(ctx, "plan change completed",
		"workflow_id", wf.ID,
		"account_id", wf.AccountID,
		"subscription_id", *wf.NewSubscriptionID,
	)
	return queries.ToWorkflowDTO(wf), nil
}

// checkStillCurrent refuses to charge for a proposal made against a
// subscription that has since been replaced.
func (h *SubmitPaymentHandler) checkStillCurrent(ctx context.Context, wf *domain.Workflow) error {
	active, err := h.subscriptions.FindActiveByAccountID(ctx, wf.AccountID)
	if err != nil {
		return err
	}
	if active.ID() != wf.SubscriptionID {
		return subscriptionDomain.ErrVersionConflict.WithDetails("subscription %s was replaced, propose again", wf.SubscriptionID)
	}
	return nil
}

func (h *SubmitPaymentHandler) charge(ctx context.Context, wf *domain.Workflow, method domain.PaymentMethod) error {
	receipt, err := h.gateway.Charge(ctx, domain.ChargeRequest{
		IdempotencyKey: wf.ID,
		AccountID:      wf.AccountID,
		Method:         method,
		Amount:         wf.Amount,
		Description:    "plan change to " + wf.Terms.PlanID,
	})
	now := h.clock.Now()
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrPaymentRejected) {
			outcome = "declined"
		}
		h.metrics.Counter(observability.MetricPaymentsTotal, 1, observability.T("method", string(method)), observability.T("outcome", outcome))

		wf.PaymentFailed(err.Error(), now)
		if saveErr := h.store.Save(ctx, wf); saveErr != nil {
			return errors.Join(err, saveErr)
		}
		h.logger.WarnContext(ctx, "payment failed", "workflow_id", wf.ID, "method", method, "attempts", wf.PaymentAttempts, "error", err)
		return err
	}

	h.metrics.Counter(observability.MetricPaymentsTotal, 1, observability.T("method", string(method)), observability.T("outcome", "approved"))
	if err := wf.PaymentSucceeded(*receipt, now); err != nil {
		return err
	}
	return h.store.Save(ctx, wf)
}
