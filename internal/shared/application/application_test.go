package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUnitOfWork struct {
	mock.Mock
}

func (m *mockUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	args := m.Called(ctx)
	return args.Get(0).(context.Context), args.Error(1)
}

func (m *mockUnitOfWork) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockUnitOfWork) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type txKey struct{}

func TestWithUnitOfWork(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		txCtx := context.WithValue(ctx, txKey{}, "tx")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Commit", txCtx).Return(nil)

		err := WithUnitOfWork(ctx, uow, func(got context.Context) error {
			assert.Equal(t, txCtx, got)
			return nil
		})

		require.NoError(t, err)
		uow.AssertExpectations(t)
	})

	t.Run("rolls back and returns the callback error", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		txCtx := context.WithValue(ctx, txKey{}, "tx")
		fnErr := errors.New("boom")
		uow.On("Begin", ctx).Return(txCtx, nil)
		uow.On("Rollback", txCtx).Return(errors.New("rollback failed"))

		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return fnErr })

		assert.Equal(t, fnErr, err)
		uow.AssertNotCalled(t, "Commit", mock.Anything)
	})

	t.Run("does not run callback when begin fails", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		uow.On("Begin", ctx).Return(ctx, errors.New("no connection"))

		ran := false
		err := WithUnitOfWork(ctx, uow, func(context.Context) error { ran = true; return nil })

		assert.Error(t, err)
		assert.False(t, ran)
	})

	t.Run("wraps commit error", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		commitErr := errors.New("disk full")
		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Commit", ctx).Return(commitErr)

		err := WithUnitOfWork(ctx, uow, func(context.Context) error { return nil })

		assert.ErrorIs(t, err, commitErr)
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		uow := new(mockUnitOfWork)
		ctx := context.Background()
		uow.On("Begin", ctx).Return(ctx, nil)
		uow.On("Rollback", ctx).Return(nil)

		assert.Panics(t, func() {
			_ = WithUnitOfWork(ctx, uow, func(context.Context) error { panic("bad") })
		})
		uow.AssertCalled(t, "Rollback", ctx)
	})
}

type stubLocker struct {
	locked   []string
	released int
	err      error
}

func (s *stubLocker) Lock(_ context.Context, key string) (func(), error) {
	if s.err != nil {
		return nil, s.err
	}
	s.locked = append(s.locked, key)
	return func() { s.released++ }, nil
}

func TestWithLock(t *testing.T) {
	l := &stubLocker{}
	err := WithLock(context.Background(), l, "sub-1", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1"}, l.locked)
	assert.Equal(t, 1, l.released)

	l = &stubLocker{err: errors.New("timeout")}
	err = WithLock(context.Background(), l, "sub-1", func(context.Context) error {
		t.Fatal("should not run")
		return nil
	})
	assert.Error(t, err)
}

type stampedEvent struct {
	domain.BaseEvent
}

func TestEventMetadata(t *testing.T) {
	accountID := uuid.New()
	correlationID := uuid.New()
	ctx := observability.WithCorrelationID(context.Background(), correlationID.String())

	md := NewEventMetadata(ctx, accountID)
	assert.Equal(t, correlationID, md.CorrelationID)
	assert.Equal(t, accountID, md.AccountID)

	fresh := NewEventMetadata(context.Background(), accountID)
	assert.NotEqual(t, uuid.Nil, fresh.CorrelationID)

	ev := &stampedEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "x", "x.happened", time.Now())}
	ApplyEventMetadata([]domain.DomainEvent{ev}, md)
	assert.Equal(t, md, ev.Metadata())

	hashed, ok := CorrelationIDFromContext(observability.WithCorrelationID(context.Background(), "req-42"))
	assert.True(t, ok)
	assert.NotEqual(t, uuid.Nil, hashed)

	assert.NotPanics(t, func() { ApplyEventMetadata(nil, md) })
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "internal", Outcome(errors.New("boom")))
	assert.Equal(t, "transient", Outcome(context.DeadlineExceeded))
	assert.Equal(t, "account:abc", AccountLockKey("abc"))
}
