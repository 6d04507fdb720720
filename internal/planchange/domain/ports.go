package domain

import (
	"context"

	"github.com/google/uuid"
)

// Store persists workflows. Get returns ErrWorkflowNotFound for unknown or
// expired ids.
//
// Save is a conditional write: it succeeds only if the stored version still
// equals w.Version (zero for a new workflow) and then increments w.Version.
// A mismatch returns ErrWorkflowChanged and leaves the store untouched.
type Store interface {
	Save(ctx context.Context, w *Workflow) error
	Get(ctx context.Context, id string) (*Workflow, error)
}

// ChargeRequest asks the gateway to take a payment. IdempotencyKey is the
// workflow id so a replayed charge is recognised by the gateway.
type ChargeRequest struct {
	IdempotencyKey string
	AccountID      uuid.UUID
	Method         PaymentMethod
	Amount         int64
	Description    string
}

// PaymentGateway charges customers. A decline is reported as ErrPaymentRejected.
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*Receipt, error)
}
