package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGuard(threshold uint32, timeout time.Duration) *Guard {
	return NewGuard(Config{
		Name:             "test",
		Timeout:          timeout,
		FailureThreshold: threshold,
		OpenTimeout:      time.Minute,
		MaxRequests:      1,
	}, nil)
}

func TestCall_ReturnsValue(t *testing.T) {
	g := testGuard(3, time.Second)

	v, err := Call(context.Background(), g, func(context.Context) (int, error) { return 42, nil })

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, "closed", g.State())
}

func TestCall_TimeoutIsTransient(t *testing.T) {
	g := testGuard(3, 20*time.Millisecond)

	_, err := Call(context.Background(), g, func(context.Context) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDependencyTimeout)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestCall_OpensAfterConsecutiveFailures(t *testing.T) {
	g := testGuard(2, time.Second)
	boom := errors.New("boom")
	fail := func(context.Context) (int, error) { return 0, boom }

	for i := 0; i < 2; i++ {
		_, err := Call(context.Background(), g, fail)
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, "open", g.State())

	_, err := Call(context.Background(), g, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, apperrors.ErrDependencyUnavailable)
	assert.Equal(t, apperrors.KindTransient, apperrors.KindOf(err))
}

func TestCall_DomainErrorsDoNotTrip(t *testing.T) {
	g := testGuard(1, time.Second)
	notFound := apperrors.NotFound("missing", "missing")

	for i := 0; i < 3; i++ {
		_, err := Call(context.Background(), g, func(context.Context) (int, error) { return 0, notFound })
		assert.ErrorIs(t, err, notFound)
	}

	assert.Equal(t, "closed", g.State())
}
