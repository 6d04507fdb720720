// Package domain models switching an account to a different plan as a
// resumable workflow: proposal, confirmation, payment, then commit of a new
// subscription.
package domain

import (
	"crypto/rand"
	"time"

	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// State is a workflow step.
type State string

const (
	StateAwaitingConfirmation State = "awaiting_plan_confirmation"
	StateAwaitingPayment      State = "awaiting_payment"
	StateCompleted            State = "completed"
	StateCancelled            State = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// PaymentMethod is how the customer pays for the new plan.
type PaymentMethod string

const (
	PaymentCard       PaymentMethod = "card"
	PaymentUPI        PaymentMethod = "upi"
	PaymentNetBanking PaymentMethod = "netbanking"
	PaymentWallet     PaymentMethod = "wallet"
)

// ParsePaymentMethod validates a method name.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(s); m {
	case PaymentCard, PaymentUPI, PaymentNetBanking, PaymentWallet:
		return m, nil
	default:
		return "", ErrInvalidPaymentMethod.WithDetails("%q", s)
	}
}

// Receipt proves a successful charge. Once stored, retries never charge again.
type Receipt struct {
	ID        string        `json:"id"`
	Method    PaymentMethod `json:"method"`
	Amount    int64         `json:"amount"`
	ChargedAt time.Time     `json:"charged_at"`
}

// Workflow is one attempt to move an account to a new plan.
type Workflow struct {
	ID                string                       `json:"id"`
	AccountID         uuid.UUID                    `json:"account_id"`
	SubscriptionID    uuid.UUID                    `json:"subscription_id"`
	CurrentPlanID     string                       `json:"current_plan_id"`
	Terms             subscriptionDomain.PlanTerms `json:"terms"`
	Amount            int64                        `json:"amount"`
	State             State                        `json:"state"`
	PaymentAttempts   int                          `json:"payment_attempts"`
	LastPaymentError  string                       `json:"last_payment_error,omitempty"`
	Receipt           *Receipt                     `json:"receipt,omitempty"`
	NewSubscriptionID *uuid.UUID                   `json:"new_subscription_id,omitempty"`
	CreatedAt         time.Time                    `json:"created_at"`
	UpdatedAt         time.Time                    `json:"updated_at"`
	ExpiresAt         time.Time                    `json:"expires_at"`
	Version           int                          `json:"version"`
}

// NewWorkflowParams describes a proposed plan change.
type NewWorkflowParams struct {
	AccountID      uuid.UUID
	SubscriptionID uuid.UUID
	CurrentPlanID  string
	Terms          subscriptionDomain.PlanTerms
	Amount         int64
	Now            time.Time
	TTL            time.Duration
}

// NewWorkflow opens a workflow awaiting confirmation.
func NewWorkflow(p NewWorkflowParams) (*Workflow, error) {
	if p.AccountID == uuid.Nil || p.SubscriptionID == uuid.Nil {
		return nil, ErrInvalidWorkflow.WithDetails("account and subscription are required")
	}
	if p.Terms.PlanID == "" {
		return nil, ErrInvalidWorkflow.WithDetails("plan id is empty")
	}
	if p.Terms.PlanID == p.CurrentPlanID {
		return nil, ErrSamePlan.WithDetails("%s", p.CurrentPlanID)
	}

	id, err := ulid.New(ulid.Timestamp(p.Now), rand.Reader)
	if err != nil {
		return nil, err
	}
	now := p.Now.UTC()
	return &Workflow{
		ID:             id.String(),
		AccountID:      p.AccountID,
		SubscriptionID: p.SubscriptionID,
		CurrentPlanID:  p.CurrentPlanID,
		Terms:          p.Terms,
		Amount:         p.Amount,
		State:          StateAwaitingConfirmation,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(p.TTL),
	}, nil
}

func (w *Workflow) guard() error {
	if w.State.IsTerminal() {
		return ErrWorkflowTerminated.WithDetails("%s is %s", w.ID, w.State)
	}
	return nil
}

func (w *Workflow) touch(now time.Time) { w.UpdatedAt = now.UTC() }

// Confirm accepts the proposed terms. Confirming twice is a no-op.
func (w *Workflow) Confirm(now time.Time) (bool, error) {
	if err := w.guard(); err != nil {
		return false, err
	}
	if w.State == StateAwaitingPayment {
		return false, nil
	}
	w.State = StateAwaitingPayment
	w.touch(now)
	return true, nil
}

// CanPay checks that a payment may be attempted now.
func (w *Workflow) CanPay() error {
	if err := w.guard(); err != nil {
		return err
	}
	if w.State != StateAwaitingPayment {
		return ErrPlanNotConfirmed.WithDetails("%s is %s", w.ID, w.State)
	}
	return nil
}

// PaymentFailed counts a declined or failed attempt. The state is unchanged.
func (w *Workflow) PaymentFailed(reason string, now time.Time) {
	w.PaymentAttempts++
	w.LastPaymentError = reason
	w.touch(now)
}

// PaymentSucceeded stores the receipt.
func (w *Workflow) PaymentSucceeded(receipt Receipt, now time.Time) error {
	if err := w.CanPay(); err != nil {
		return err
	}
	w.PaymentAttempts++
	w.LastPaymentError = ""
	w.Receipt = &receipt
	w.touch(now)
	return nil
}

// IsPaid reports whether a receipt is on file.
func (w *Workflow) IsPaid() bool { return w.Receipt != nil }

// Complete records the subscription created by the change.
func (w *Workflow) Complete(subscriptionID uuid.UUID, now time.Time) error {
	if err := w.CanPay(); err != nil {
		return err
	}
	if !w.IsPaid() {
		return ErrInvalidWorkflow.WithDetails("%s has no payment receipt", w.ID)
	}
	w.State = StateCompleted
	w.NewSubscriptionID = &subscriptionID
	w.touch(now)
	return nil
}

// Cancel abandons the workflow. The subscription is never touched.
func (w *Workflow) Cancel(now time.Time) error {
	if err := w.guard(); err != nil {
		return err
	}
	w.State = StateCancelled
	w.touch(now)
	return nil
}

// IsExpired reports whether an open workflow has outlived its TTL.
func (w *Workflow) IsExpired(now time.Time) bool {
	return !w.State.IsTerminal() && !w.ExpiresAt.IsZero() && !now.Before(w.ExpiresAt)
}
