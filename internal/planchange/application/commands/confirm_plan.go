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

// ConfirmPlanCommand accepts a proposal.
type ConfirmPlanCommand struct {
	WorkflowID string
}

// ConfirmPlanHandler handles ConfirmPlanCommand.
type ConfirmPlanHandler struct {
	store   domain.Store
	clock   sharedDomain.Clock
	metrics observability.Metrics
	logger  *slog.Logger
}

func NewConfirmPlanHandler(store domain.Store, clock sharedDomain.Clock, metrics observability.Metrics, logger *slog.Logger) *ConfirmPlanHandler {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmPlanHandler{store: store, clock: clock, metrics: metrics, logger: logger}
}

// Handle moves the workflow to awaiting_payment. Repeating it is harmless.
func (h *ConfirmPlanHandler) Handle(ctx context.Context, cmd ConfirmPlanCommand) (dto *queries.WorkflowDTO, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "confirm_plan", start, sharedApplication.Outcome(err))
	}()

	wf, err := h.store.Get(ctx, cmd.WorkflowID)
	if err != nil {
		return nil, err
	}
	changed, err := wf.Confirm(h.clock.Now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := h.store.Save(ctx, wf); err != nil {
			return nil, err
		}
		h.metrics.Counter(observability.MetricPlanChanges, 1, observability.T("state", string(wf.State)))
		h.logger.InfoContext(ctx, "plan change confirmed", "workflow_id", wf.ID)
	}
	return queries.ToWorkflowDTO(wf), nil
}
