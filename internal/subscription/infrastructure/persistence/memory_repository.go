package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// MemoryRepository stores snapshots in a map. Loads return independent
// copies, so callers cannot mutate stored state without Save.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]domain.RehydrateSubscriptionParams
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[uuid.UUID]domain.RehydrateSubscriptionParams)}
}

func (r *MemoryRepository) Load(_ context.Context, id uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	p, ok := r.subs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSubscriptionNotFound.WithDetails("%s", id)
	}
	return domain.RehydrateSubscription(p)
}

func (r *MemoryRepository) FindActiveByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Subscription, error) {
	r.mu.RLock()
	var found *domain.RehydrateSubscriptionParams
	for _, p := range r.subs {
		if p.AccountID == accountID && p.Status == domain.SubscriptionStatusActive {
			p := p
			found = &p
			break
		}
	}
	r.mu.RUnlock()
	if found == nil {
		return nil, domain.ErrSubscriptionNotFound.WithDetails("no active subscription for account %s", accountID)
	}
	return domain.RehydrateSubscription(*found)
}

func (r *MemoryRepository) ListByAccountID(_ context.Context, accountID uuid.UUID) ([]*domain.Subscription, error) {
	r.mu.RLock()
	var params []domain.RehydrateSubscriptionParams
	for _, p := range r.subs {
		if p.AccountID == accountID {
			params = append(params, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(params, func(i, j int) bool { return params[i].CreatedAt.Before(params[j].CreatedAt) })
	out := make([]*domain.Subscription, 0, len(params))
	for _, p := range params {
		sub, err := domain.RehydrateSubscription(p)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, sub *domain.Subscription, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.subs[sub.ID()]
	switch {
	case !exists && expectedVersion != 0:
		return domain.ErrSubscriptionNotFound.WithDetails("%s", sub.ID())
	case exists && current.Version != expectedVersion:
		return domain.ErrVersionConflict.WithDetails("expected version %d, stored %d", expectedVersion, current.Version)
	}

	if sub.IsActive() {
		for id, p := range r.subs {
			if id != sub.ID() && p.AccountID == sub.AccountID() && p.Status == domain.SubscriptionStatusActive {
				return domain.ErrActiveSubscriptionExists.WithDetails("%s", id)
			}
		}
	}

	p := snapshot(sub)
	p.Version = expectedVersion + 1
	r.subs[sub.ID()] = p
	sub.SetVersion(p.Version)
	return nil
}
