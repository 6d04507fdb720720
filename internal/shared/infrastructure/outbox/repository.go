package outbox

import (
	"context"
	"time"
)

// Repository persists outbox messages. SaveBatch must join the transaction
// carried by ctx so messages commit together with the aggregate.
type Repository interface {
	SaveBatch(ctx context.Context, msgs []*Message) error

	// FetchPending returns unpublished, live messages whose retry time has
	// passed, oldest first.
	FetchPending(ctx context.Context, now time.Time, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id int64, reason string, at time.Time) error

	// DeleteOld removes published messages created before the cutoff.
	DeleteOld(ctx context.Context, before time.Time) (int64, error)
}
