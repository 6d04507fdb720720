package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Registry dispatches envelopes to the consumers whose patterns match the
// routing key.
type Registry struct {
	mu        sync.RWMutex
	bindings  []binding
	consumers int
	logger    *slog.Logger
}

// binding ties one pattern to a consumer. index identifies the consumer's
// registration; consumers need not be comparable.
type binding struct {
	pattern  string
	index    int
	consumer EventConsumer
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register binds consumer to each of its patterns.
func (r *Registry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, pattern := range consumer.EventTypes() {
		r.bindings = append(r.bindings, binding{pattern: pattern, index: r.consumers, consumer: consumer})
		r.logger.Debug("registered consumer", "pattern", pattern)
	}
	r.consumers++
}

// Patterns lists every registered pattern once.
func (r *Registry) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.bindings))
	var out []string
	for _, b := range r.bindings {
		if !seen[b.pattern] {
			seen[b.pattern] = true
			out = append(out, b.pattern)
		}
	}
	return out
}

// ConsumerCount returns the number of registered consumers.
func (r *Registry) ConsumerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.consumers
}

// Dispatch calls every matching consumer once, even when several of its
// patterns match. All consumers run; their errors are joined.
func (r *Registry) Dispatch(ctx context.Context, event *Envelope) error {
	r.mu.RLock()
	var targets []EventConsumer
	seen := make(map[int]bool)
	for _, b := range r.bindings {
		if seen[b.index] || !MatchRoutingKey(b.pattern, event.RoutingKey) {
			continue
		}
		seen[b.index] = true
		targets = append(targets, b.consumer)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		r.logger.DebugContext(ctx, "no consumers for event", "routing_key", event.RoutingKey)
		return nil
	}

	var errs []error
	for _, consumer := range targets {
		if err := consumer.Handle(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "consumer failed to handle event",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%T: %w", consumer, err))
		}
	}
	return errors.Join(errs...)
}

// MatchRoutingKey applies AMQP topic matching.
func MatchRoutingKey(pattern, key string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(key, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
