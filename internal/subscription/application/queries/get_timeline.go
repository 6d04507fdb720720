package queries

import (
	"context"

	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// GetTimelineQuery asks for every month of the active subscription.
type GetTimelineQuery struct {
	AccountID uuid.UUID
}

// GetTimelineHandler handles GetTimelineQuery.
type GetTimelineHandler struct {
	repo   domain.Repository
	clock  sharedDomain.Clock
	policy domain.EditPolicy
}

func NewGetTimelineHandler(repo domain.Repository, clock sharedDomain.Clock, policy domain.EditPolicy) *GetTimelineHandler {
	return &GetTimelineHandler{repo: repo, clock: clock, policy: policy}
}

func (h *GetTimelineHandler) Handle(ctx context.Context, query GetTimelineQuery) (*TimelineDTO, error) {
	sub, err := h.repo.FindActiveByAccountID(ctx, query.AccountID)
	if err != nil {
		return nil, err
	}
	return &TimelineDTO{
		SubscriptionID: sub.ID(),
		PlanID:         sub.Plan().PlanID,
		Months:         sub.Timeline(h.clock.Now(), h.policy),
		Version:        sub.Version(),
	}, nil
}
