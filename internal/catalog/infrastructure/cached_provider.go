package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 5 * time.Minute

// CachedProvider is a read-through Redis cache in front of another provider.
// Cache failures are logged and the underlying provider is used instead, so
// Redis is never on the critical path.
type CachedProvider struct {
	next   domain.Provider
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ domain.Provider = (*CachedProvider)(nil)

// NewCachedProvider wraps next with a Redis cache.
func NewCachedProvider(next domain.Provider, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedProvider{
		next:   next,
		client: client,
		prefix: "aromabox:catalog:",
		ttl:    ttl,
		logger: logger,
	}
}

func readThrough[T any](ctx context.Context, c *CachedProvider, key string, load func(ctx context.Context) (T, error)) (T, error) {
	fullKey := c.prefix + key

	data, err := c.client.Get(ctx, fullKey).Bytes()
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn("discarding undecodable catalog cache entry", "key", fullKey)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("catalog cache read failed", "key", fullKey, "error", err)
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if payload, jsonErr := json.Marshal(value); jsonErr == nil {
		if setErr := c.client.Set(ctx, fullKey, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("catalog cache write failed", "key", fullKey, "error", setErr)
		}
	}
	return value, nil
}

func (c *CachedProvider) Version(ctx context.Context) (string, error) {
	return readThrough(ctx, c, "version", c.next.Version)
}

func (c *CachedProvider) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return readThrough(ctx, c, "plans", c.next.ListPlans)
}

func (c *CachedProvider) ListAromaOils(ctx context.Context) ([]domain.AromaOil, error) {
	return readThrough(ctx, c, "oils", c.next.ListAromaOils)
}

func (c *CachedProvider) ListDeviceTypes(ctx context.Context) ([]domain.DeviceType, error) {
	return readThrough(ctx, c, "device_types", c.next.ListDeviceTypes)
}

func (c *CachedProvider) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return readThrough(ctx, c, "plan:"+id, func(ctx context.Context) (*domain.Plan, error) {
		return c.next.GetPlan(ctx, id)
	})
}

func (c *CachedProvider) GetAromaOil(ctx context.Context, id string) (*domain.AromaOil, error) {
	return readThrough(ctx, c, "oil:"+id, func(ctx context.Context) (*domain.AromaOil, error) {
		return c.next.GetAromaOil(ctx, id)
	})
}

func (c *CachedProvider) GetDeviceType(ctx context.Context, id string) (*domain.DeviceType, error) {
	return readThrough(ctx, c, "device_type:"+id, func(ctx context.Context) (*domain.DeviceType, error) {
		return c.next.GetDeviceType(ctx, id)
	})
}

// Invalidate removes every cached catalog entry.
func (c *CachedProvider) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
