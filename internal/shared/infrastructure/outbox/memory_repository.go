package outbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps messages in process. It ignores transactions, so
// it only suits tests and the in-memory store mode.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	msgs   map[int64]*Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{msgs: make(map[int64]*Message)}
}

func (r *MemoryRepository) SaveBatch(_ context.Context, msgs []*Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		r.nextID++
		msg.ID = r.nextID
		stored := *msg
		r.msgs[msg.ID] = &stored
	}
	return nil
}

func (r *MemoryRepository) FetchPending(_ context.Context, now time.Time, limit int) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Message
	for _, msg := range r.msgs {
		if msg.IsPublished() || msg.IsDead() {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) MarkPublished(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.msgs[id]; ok {
		msg.PublishedAt = &at
	}
	return nil
}

func (r *MemoryRepository) MarkFailed(_ context.Context, id int64, reason string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.msgs[id]; ok {
		msg.RetryCount++
		msg.LastError = reason
		msg.NextRetryAt = &nextRetryAt
	}
	return nil
}

func (r *MemoryRepository) MarkDead(_ context.Context, id int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.msgs[id]; ok {
		msg.RetryCount++
		msg.LastError = reason
		msg.DeadAt = &at
	}
	return nil
}

func (r *MemoryRepository) DeleteOld(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, msg := range r.msgs {
		if msg.IsPublished() && msg.CreatedAt.Before(before) {
			delete(r.msgs, id)
			n++
		}
	}
	return n, nil
}

// All returns a snapshot ordered by id.
func (r *MemoryRepository) All() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Message, 0, len(r.msgs))
	for _, msg := range r.msgs {
		cp := *msg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
