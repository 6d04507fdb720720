package queries

import (
	"context"

	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// predecessors walks the PreviousID chain from sub, newest first.
func predecessors(ctx context.Context, repo domain.Repository, sub *domain.Subscription) ([]*domain.Subscription, error) {
	var chain []*domain.Subscription
	seen := map[uuid.UUID]bool{sub.ID(): true}
	for prev := sub.PreviousID(); prev != nil && !seen[*prev]; {
		seen[*prev] = true
		older, err := repo.Load(ctx, *prev)
		if err != nil {
			return nil, err
		}
		chain = append(chain, older)
		prev = older.PreviousID()
	}
	return chain, nil
}

// subscriptionForMonth finds the subscription that delivers month. Months
// before the active subscription's start belong to the superseded
// subscription that was running then; its months from the cutover on were
// replaced and are not returned.
func subscriptionForMonth(ctx context.Context, repo domain.Repository, active *domain.Subscription, month domain.MonthKey) (*domain.Subscription, error) {
	if !month.Before(active.StartMonth()) {
		return active, nil
	}
	chain, err := predecessors(ctx, repo, active)
	if err != nil {
		return nil, err
	}
	cutover := active.StartMonth()
	for _, older := range chain {
		if month.Before(cutover) {
			if _, err := older.Month(month); err == nil {
				return older, nil
			}
		}
		cutover = older.StartMonth()
	}
	return active, nil
}
