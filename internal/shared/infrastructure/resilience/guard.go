// Package resilience bounds calls to external collaborators with a timeout
// and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"
	"github.com/sony/gobreaker/v2"
)

// Config configures a Guard.
type Config struct {
	// Name identifies the dependency in logs.
	Name string

	// Timeout bounds each call. Zero disables the deadline.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	// MaxRequests allowed through while half-open.
	MaxRequests uint32

	// Interval clears counts while closed. Zero keeps counts until the state changes.
	Interval time.Duration
}

// DefaultConfig returns conservative settings for a synchronous dependency.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		Timeout:          2 * time.Second,
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		MaxRequests:      1,
	}
}

// Guard wraps calls to one dependency.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[any]
}

// NewGuard builds a guard. Only transient and unclassified errors count as
// breaker failures; domain errors such as "not found" pass through without
// tripping it.
func NewGuard(cfg Config, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			switch apperrors.KindOf(err) {
			case apperrors.KindTransient, apperrors.KindInternal:
				return false
			default:
				return true
			}
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"dependency", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Guard{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State reports the breaker state, e.g. "closed" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

type outcome[T any] struct {
	value T
	err   error
}

// Call runs fn under the guard. A call that outlives the timeout returns
// ErrDependencyTimeout even if fn ignores its context; an open breaker
// returns ErrDependencyUnavailable.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	result, err := g.breaker.Execute(func() (any, error) {
		callCtx := ctx
		if g.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		done := make(chan outcome[T], 1)
		go func() {
			v, err := fn(callCtx)
			done <- outcome[T]{value: v, err: err}
		}()

		select {
		case out := <-done:
			if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
				return nil, apperrors.ErrDependencyTimeout.WithDetails("%s", g.name).Wrap(out.err)
			}
			return out.value, out.err
		case <-callCtx.Done():
			return nil, apperrors.ErrDependencyTimeout.WithDetails("%s", g.name).Wrap(callCtx.Err())
		}
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, apperrors.ErrDependencyUnavailable.WithDetails("%s", g.name).Wrap(err)
		}
		return zero, err
	}

	value, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return value, nil
}
