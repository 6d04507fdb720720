package persistence

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
)

// MemoryStore keeps workflows in process. Expired open workflows read as
// not found.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]domain.Workflow
	clock     sharedDomain.Clock
}

func NewMemoryStore(clock sharedDomain.Clock) *MemoryStore {
	return &MemoryStore{workflows: make(map[string]domain.Workflow), clock: clock}
}

func (s *MemoryStore) Save(_ context.Context, w *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored := s.workflows[w.ID].Version; stored != w.Version {
		return domain.ErrWorkflowChanged.WithDetails("%s: expected version %d, stored %d", w.ID, w.Version, stored)
	}
	cp := clone(w)
	cp.Version++
	s.workflows[w.ID] = cp
	w.Version = cp.Version
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	w, ok := s.workflows[id]
	s.mu.RUnlock()
	if !ok || w.IsExpired(s.clock.Now()) {
		return nil, domain.ErrWorkflowNotFound.WithDetails("%s", id)
	}
	out := clone(&w)
	return &out, nil
}

func clone(w *domain.Workflow) domain.Workflow {
	cp := *w
	if w.Receipt != nil {
		r := *w.Receipt
		cp.Receipt = &r
	}
	if w.NewSubscriptionID != nil {
		id := *w.NewSubscriptionID
		cp.NewSubscriptionID = &id
	}
	return cp
}
