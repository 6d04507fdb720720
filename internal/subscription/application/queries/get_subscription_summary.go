package queries

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// GetSubscriptionSummaryQuery asks for the account's active subscription.
type GetSubscriptionSummaryQuery struct {
	AccountID uuid.UUID
}

// GetSubscriptionSummaryHandler handles GetSubscriptionSummaryQuery.
type GetSubscriptionSummaryHandler struct {
	repo   domain.Repository
	clock  sharedDomain.Clock
	policy domain.EditPolicy
}

// NewGetSubscriptionSummaryHandler creates a new GetSubscriptionSummaryHandler.
func NewGetSubscriptionSummaryHandler(repo domain.Repository, clock sharedDomain.Clock, policy domain.EditPolicy) *GetSubscriptionSummaryHandler {
	return &GetSubscriptionSummaryHandler{repo: repo, clock: clock, policy: policy}
}

// Handle executes the GetSubscriptionSummaryQuery.
func (h *GetSubscriptionSummaryHandler) Handle(ctx context.Context, query GetSubscriptionSummaryQuery) (*SubscriptionSummaryDTO, error) {
	sub, err := h.repo.FindActiveByAccountID(ctx, query.AccountID)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	loc := h.policy.Location
	if loc == nil {
		loc = domain.DefaultEditPolicy().Location
	}

	plan := sub.Plan()
	completed := sub.CompletedMonths(now, h.policy)
	dto := &SubscriptionSummaryDTO{
		SubscriptionID:  sub.ID(),
		PlanID:          plan.PlanID,
		PlanName:        plan.Name,
		DiscountPercent: plan.DiscountPercent,
		DeviceCount:     len(sub.Devices()),
		CompletedMonths: completed,
		TotalMonths:     plan.DurationMonths,
		ProgressPercent: completed * 100 / plan.DurationMonths,
		StartMonth:      sub.StartMonth(),
		EndMonth:        sub.EndMonth(),
		StartDate:       sub.StartMonth().Start(loc),
		EndDate:         sub.EndMonth().End(loc).AddDate(0, 0, -1),
		Status:          string(sub.Status()),
		Version:         sub.Version(),
	}
	if current, ok := sub.CurrentMonth(now, h.policy); ok {
		dto.CurrentMonth = &current
	}

	chain, err := predecessors(ctx, h.repo, sub)
	if err != nil {
		return nil, err
	}
	cutover := sub.StartMonth()
	for _, older := range chain {
		for _, state := range older.Timeline(now, h.policy) {
			if !state.Month.Before(cutover) {
				continue
			}
			if state.Status == domain.StatusCompleted {
				dto.EarlierCompletedMonths++
			}
			if state.Status == domain.StatusCurrent && dto.CurrentMonth == nil {
				current := state.Month
				dto.CurrentMonth = &current
			}
		}
		cutover = older.StartMonth()
	}
	if len(chain) > 0 {
		id := chain[0].ID()
		dto.PreviousSubscriptionID = &id
	}
	return dto, nil
}
