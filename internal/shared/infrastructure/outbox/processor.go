package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns sensible defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     500 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}
}

// Processor drains the outbox into a Publisher. Delivery is at least once:
// a message is marked published only after the broker accepted it.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	clock     domain.Clock
	metrics   observability.Metrics
	logger    *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats summarizes processor activity since start.
type Stats struct {
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastProcessedAt time.Time
}

func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, clock domain.Clock, metrics observability.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultProcessorConfig().PollInterval
	}
	return &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		clock:     clock,
		metrics:   metrics,
		logger:    logger.With("component", "outbox"),
	}
}

// Run polls until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return nil
		case <-ticker.C:
			if _, err := p.ProcessOnce(ctx); err != nil {
				p.logger.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

// ProcessOnce publishes one batch and returns how many messages were published.
func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	now := p.clock.Now()
	msgs, err := p.repo.FetchPending(ctx, now, p.config.BatchSize)
	if err != nil {
		p.recordError(err)
		return 0, err
	}
	p.recordLag(now, msgs)

	published := 0
	for _, msg := range msgs {
		if err := p.publish(ctx, msg); err != nil {
			p.handleFailure(ctx, msg, err)
			continue
		}
		if err := p.repo.MarkPublished(ctx, msg.ID, p.clock.Now()); err != nil {
			p.logger.Error("failed to mark message published", "id", msg.ID, "event_id", msg.EventID, "error", err)
			continue
		}
		published++
		p.mu.Lock()
		p.stats.PublishedCount++
		p.mu.Unlock()
		p.metrics.Counter(observability.MetricOutboxPublished, 1, observability.T("routing_key", msg.RoutingKey))
	}
	return published, nil
}

func (p *Processor) publish(ctx context.Context, msg *Message) error {
	body, err := msg.Envelope()
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, msg.RoutingKey, body)
}

func (p *Processor) handleFailure(ctx context.Context, msg *Message, cause error) {
	p.logger.Warn("failed to publish message",
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		"correlation_id", msg.Metadata.CorrelationID,
		"retry_count", msg.RetryCount,
		"error", cause,
	)

	p.mu.Lock()
	p.stats.LastError = cause.Error()
	p.mu.Unlock()

	now := p.clock.Now()
	if p.shouldDeadLetter(msg) {
		p.mu.Lock()
		p.stats.DeadCount++
		p.mu.Unlock()
		p.metrics.Counter(observability.MetricOutboxDeadLetters, 1, observability.T("routing_key", msg.RoutingKey))
		if err := p.repo.MarkDead(ctx, msg.ID, cause.Error(), now); err != nil {
			p.logger.Error("failed to dead-letter message", "id", msg.ID, "error", err)
		}
		return
	}

	p.mu.Lock()
	p.stats.FailedCount++
	p.mu.Unlock()
	p.metrics.Counter(observability.MetricOutboxFailed, 1, observability.T("routing_key", msg.RoutingKey))
	next := now.Add(p.RetryBackoff(msg.RetryCount + 1))
	if err := p.repo.MarkFailed(ctx, msg.ID, cause.Error(), next); err != nil {
		p.logger.Error("failed to mark message failed", "id", msg.ID, "error", err)
	}
}

func (p *Processor) shouldDeadLetter(msg *Message) bool {
	if p.config.MaxRetries <= 0 {
		return true
	}
	return msg.RetryCount+1 >= p.config.MaxRetries
}

// RetryBackoff doubles from the base delay per attempt, capped at the max.
func (p *Processor) RetryBackoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	limit := p.config.RetryBackoffMax
	if limit <= 0 {
		limit = time.Minute
	}
	backoff := base
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= limit {
			return limit
		}
	}
	return min(backoff, limit)
}

// Stats returns a snapshot of processor statistics.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Processor) recordError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.LastError = err.Error()
}

func (p *Processor) recordLag(now time.Time, msgs []*Message) {
	lag := 0.0
	if len(msgs) > 0 {
		oldest := msgs[0].CreatedAt
		for _, msg := range msgs[1:] {
			if msg.CreatedAt.Before(oldest) {
				oldest = msg.CreatedAt
			}
		}
		lag = now.Sub(oldest).Seconds()
	}

	p.mu.Lock()
	p.stats.LastProcessedAt = now
	p.stats.LagSeconds = lag
	p.mu.Unlock()
	p.metrics.Gauge(observability.MetricOutboxLagSeconds, lag)
}

// Cleaner deletes published messages past the retention window.
type Cleaner struct {
	repo      Repository
	retention time.Duration
	clock     domain.Clock
	logger    *slog.Logger
}

func NewCleaner(repo Repository, retention time.Duration, clock domain.Clock, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Cleaner{repo: repo, retention: retention, clock: clock, logger: logger}
}

// CleanOnce removes expired messages and reports how many were deleted.
func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	n, err := c.repo.DeleteOld(ctx, c.clock.Now().Add(-c.retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.logger.Info("outbox cleanup", "deleted", n)
	}
	return n, nil
}

// Run cleans on every tick of interval until ctx is cancelled.
func (c *Cleaner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := c.CleanOnce(ctx); err != nil {
			c.logger.Error("outbox cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
