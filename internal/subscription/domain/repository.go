package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists subscriptions with optimistic concurrency.
//
// Save writes sub only if the stored version still equals expectedVersion
// (zero for a new subscription) and then sets sub's version to
// expectedVersion+1. A mismatch returns ErrVersionConflict and leaves the
// store untouched.
type Repository interface {
	Load(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindActiveByAccountID(ctx context.Context, accountID uuid.UUID) (*Subscription, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*Subscription, error)
	Save(ctx context.Context, sub *Subscription, expectedVersion int) error
}
