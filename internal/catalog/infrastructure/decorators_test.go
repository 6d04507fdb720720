package infrastructure

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/resilience"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider counts calls that reach the underlying provider.
type countingProvider struct {
	domain.Provider
	calls atomic.Int32
	delay time.Duration
}

func (c *countingProvider) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	return c.Provider.GetPlan(ctx, id)
}

func newCounting(t *testing.T) *countingProvider {
	t.Helper()
	p, err := NewDefaultProvider()
	require.NoError(t, err)
	return &countingProvider{Provider: p}
}

func TestCachedProvider_FallsBackWhenRedisDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	next := newCounting(t)
	cached := NewCachedProvider(next, client, time.Minute, nil)

	plan, err := cached.GetPlan(context.Background(), "annual")
	require.NoError(t, err)
	assert.Equal(t, 12, plan.DurationMonths)
	assert.EqualValues(t, 1, next.calls.Load())

	_, err = cached.GetPlan(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestCachedProvider_Integration(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping integration test")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	next := newCounting(t)
	cached := NewCachedProvider(next, client, time.Minute, nil)
	require.NoError(t, cached.Invalidate(ctx))

	for i := 0; i < 3; i++ {
		plan, err := cached.GetPlan(ctx, "quarterly")
		require.NoError(t, err)
		assert.Equal(t, 3, plan.DurationMonths)
	}
	assert.EqualValues(t, 1, next.calls.Load())

	require.NoError(t, cached.Invalidate(ctx))
	_, err = cached.GetPlan(ctx, "quarterly")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestResilientProvider_TimeoutIsTransient(t *testing.T) {
	next := newCounting(t)
	next.delay = 200 * time.Millisecond

	r := NewResilientProvider(next, resilience.Config{
		Timeout:          20 * time.Millisecond,
		FailureThreshold: 3,
		OpenTimeout:      time.Minute,
	}, nil)

	_, err := r.GetPlan(context.Background(), "monthly")
	assert.ErrorIs(t, err, apperrors.ErrDependencyTimeout)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestResilientProvider_PassesThroughDomainErrors(t *testing.T) {
	r := NewResilientProvider(newCounting(t), resilience.DefaultConfig("catalog"), nil)

	plan, err := r.GetPlan(context.Background(), "monthly")
	require.NoError(t, err)
	assert.Equal(t, "Monthly", plan.Name)

	_, err = r.GetPlan(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.Equal(t, "closed", r.BreakerState())
}
