package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

// CancelPlanChangeCommand abandons a workflow.
type CancelPlanChangeCommand struct {
	WorkflowID string
}

// CancelPlanChangeHandler handles CancelPlanChangeCommand.
type CancelPlanChangeHandler struct {
	store   domain.Store
	locker  sharedApplication.Locker
	clock   sharedDomain.Clock
	metrics observability.Metrics
	logger  *slog.Logger
}

func NewCancelPlanChangeHandler(store domain.Store, locker sharedApplication.Locker, clock sharedDomain.Clock, metrics observability.Metrics, logger *slog.Logger) *CancelPlanChangeHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CancelPlanChangeHandler{store: store, locker: locker, clock: clock, metrics: metrics, logger: logger}
}

func (h *CancelPlanChangeHandler) Handle(ctx context.Context, cmd CancelPlanChangeCommand) (dto *queries.WorkflowDTO, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "cancel_plan_change", start, sharedApplication.Outcome(err))
	}()

	peek, err := h.store.Get(ctx, cmd.WorkflowID)
	if err != nil {
		return nil, err
	}

	// A payment in flight holds the account lock; cancel waits for it and
	// then sees the outcome.
	var wf *domain.Workflow
	err = sharedApplication.WithLock(ctx, h.locker, sharedApplication.AccountLockKey(peek.AccountID.String()), func(ctx context.Context) error {
		current, err := h.store.Get(ctx, cmd.WorkflowID)
		if err != nil {
			return err
		}
		wf = current
		if err := wf.Cancel(h.clock.Now()); err != nil {
			return err
		}
		return h.store.Save(ctx, wf)
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricPlanChanges, 1, observability.T("state", string(wf.State)))
	h.logger.InfoContext(ctx, "plan change cancelled", "workflow_id", wf.ID, "paid", wf.IsPaid())
	return queries.ToWorkflowDTO(wf), nil
}
