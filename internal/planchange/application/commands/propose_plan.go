package commands

import (
	"context"
	"log/slog"
	"time"

	catalogDomain "github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedApplication "github.com/felixgeelhaar/aromabox/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
)

// DefaultWorkflowTTL is how long a proposal stays open.
const DefaultWorkflowTTL = 24 * time.Hour

// ProposePlanCommand starts a plan change for an account.
type ProposePlanCommand struct {
	AccountID uuid.UUID
	PlanID    string
}

// ProposePlanHandler handles ProposePlanCommand.
type ProposePlanHandler struct {
	subscriptions subscriptionDomain.Repository
	catalog       catalogDomain.Provider
	store         domain.Store
	prices        *subscriptionDomain.PriceTable
	clock         sharedDomain.Clock
	ttl           time.Duration
	metrics       observability.Metrics
	logger        *slog.Logger
}

// NewProposePlanHandler creates a new ProposePlanHandler. A nil price table
// uses the default tiers; a zero ttl uses DefaultWorkflowTTL.
func NewProposePlanHandler(
	subscriptions subscriptionDomain.Repository,
	catalog catalogDomain.Provider,
	store domain.Store,
	prices *subscriptionDomain.PriceTable,
	clock sharedDomain.Clock,
	ttl time.Duration,
	metrics observability.Metrics,
	logger *slog.Logger,
) *ProposePlanHandler {
	if prices == nil {
		prices = subscriptionDomain.DefaultPriceTable()
	}
	if ttl <= 0 {
		ttl = DefaultWorkflowTTL
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProposePlanHandler{
		subscriptions: subscriptions,
		catalog:       catalog,
		store:         store,
		prices:        prices,
		clock:         clock,
		ttl:           ttl,
		metrics:       metrics,
		logger:        logger,
	}
}

// Handle snapshots the plan's terms and quotes the price for the account's
// devices. Proposing the plan the account is already on creates nothing.
func (h *ProposePlanHandler) Handle(ctx context.Context, cmd ProposePlanCommand) (dto *queries.WorkflowDTO, err error) {
	start := time.Now()
	defer func() {
		observability.ObserveCommand(h.metrics, "propose_plan", start, sharedApplication.Outcome(err))
	}()

	plan, err := h.catalog.GetPlan(ctx, cmd.PlanID)
	if err != nil {
		return nil, err
	}
	sub, err := h.subscriptions.FindActiveByAccountID(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if sub.Plan().PlanID == plan.ID {
		return nil, domain.ErrSamePlan.WithDetails("%s", plan.ID)
	}

	version, err := h.catalog.Version(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := h.quote(ctx, sub, plan)
	if err != nil {
		return nil, err
	}

	wf, err := domain.NewWorkflow(domain.NewWorkflowParams{
		AccountID:      cmd.AccountID,
		SubscriptionID: sub.ID(),
		CurrentPlanID:  sub.Plan().PlanID,
		Terms: subscriptionDomain.PlanTerms{
			PlanID:          plan.ID,
			Name:            plan.Name,
			DurationMonths:  plan.DurationMonths,
			DiscountPercent: plan.DiscountPercent,
			CatalogVersion:  version,
		},
		Amount: amount,
		Now:    h.clock.Now(),
		TTL:    h.ttl,
	})
	if err != nil {
		return nil, err
	}
	if err := h.store.Save(ctx, wf); err != nil {
		return nil, err
	}

	h.metrics.Counter(observability.MetricPlanChanges, 1, observability.T("state", string(wf.State)))
	h.logger.InfoContext(ctx, "plan change proposed",
		"workflow_id", wf.ID,
		"account_id", cmd.AccountID,
		"from", wf.CurrentPlanID,
		"to", plan.ID,
		"amount", amount,
	)
	return queries.ToWorkflowDTO(wf), nil
}

// quote prices the whole new term: the discounted monthly total for the
// current devices times the plan duration.
func (h *ProposePlanHandler) quote(ctx context.Context, sub *subscriptionDomain.Subscription, plan *catalogDomain.Plan) (int64, error) {
	devices := sub.Devices()
	capacities := make([]int, 0, len(devices))
	for _, d := range devices {
		dt, err := h.catalog.GetDeviceType(ctx, d.TypeID)
		if err != nil {
			return 0, err
		}
		capacities = append(capacities, dt.CapacityML)
	}
	totals, err := h.prices.MonthlyTotal(capacities, plan.DiscountPercent)
	if err != nil {
		return 0, err
	}
	return totals.Discounted * int64(plan.DurationMonths), nil
}
