package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "aromabox:planchange:"

// RedisStore keeps each workflow as a JSON document. Open workflows expire
// with their TTL; finished ones are kept for retention so that late reads
// still see the outcome.
type RedisStore struct {
	client    *redis.Client
	clock     sharedDomain.Clock
	retention time.Duration
}

func NewRedisStore(client *redis.Client, clock sharedDomain.Clock, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &RedisStore{client: client, clock: clock, retention: retention}
}

// Save compares versions under WATCH, so a concurrent writer aborts the
// transaction instead of being overwritten.
func (s *RedisStore) Save(ctx context.Context, w *domain.Workflow) error {
	next := *w
	next.Version++
	payload, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode workflow %s: %w", w.ID, err)
	}

	ttl := s.retention
	if !w.State.IsTerminal() {
		ttl = w.ExpiresAt.Sub(s.clock.Now())
		if ttl <= 0 {
			return domain.ErrWorkflowNotFound.WithDetails("%s has expired", w.ID)
		}
	}

	key := redisKeyPrefix + w.ID
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, found, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if !found && w.Version != 0 {
			return domain.ErrWorkflowNotFound.WithDetails("%s", w.ID)
		}
		if stored != w.Version {
			return domain.ErrWorkflowChanged.WithDetails("%s: expected version %d, stored %d", w.ID, w.Version, stored)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrWorkflowChanged.WithDetails("%s was written concurrently", w.ID)
	}
	if err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return fmt.Errorf("save workflow %s: %w", w.ID, err)
	}
	w.Version = next.Version
	return nil
}

func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int, bool, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, false, fmt.Errorf("decode workflow version: %w", err)
	}
	return head.Version, true, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrWorkflowNotFound.WithDetails("%s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", id, err)
	}

	var w domain.Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", id, err)
	}
	if w.IsExpired(s.clock.Now()) {
		return nil, domain.ErrWorkflowNotFound.WithDetails("%s", id)
	}
	return &w, nil
}
