package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/aromabox/internal/planchange/domain"
	"github.com/google/uuid"
)

// WorkflowDTO is the caller's view of a plan change.
type WorkflowDTO struct {
	ID                string     `json:"id"`
	AccountID         uuid.UUID  `json:"account_id"`
	SubscriptionID    uuid.UUID  `json:"subscription_id"`
	CurrentPlanID     string     `json:"current_plan_id"`
	PlanID            string     `json:"plan_id"`
	PlanName          string     `json:"plan_name"`
	DurationMonths    int        `json:"duration_months"`
	DiscountPercent   int        `json:"discount_percent"`
	CatalogVersion    string     `json:"catalog_version"`
	Amount            int64      `json:"amount"`
	State             string     `json:"state"`
	PaymentAttempts   int        `json:"payment_attempts"`
	LastPaymentError  string     `json:"last_payment_error,omitempty"`
	ReceiptID         string     `json:"receipt_id,omitempty"`
	NewSubscriptionID *uuid.UUID `json:"new_subscription_id,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ToWorkflowDTO flattens a workflow.
func ToWorkflowDTO(w *domain.Workflow) *WorkflowDTO {
	dto := &WorkflowDTO{
		ID:                w.ID,
		AccountID:         w.AccountID,
		SubscriptionID:    w.SubscriptionID,
		CurrentPlanID:     w.CurrentPlanID,
		PlanID:            w.Terms.PlanID,
		PlanName:          w.Terms.Name,
		DurationMonths:    w.Terms.DurationMonths,
		DiscountPercent:   w.Terms.DiscountPercent,
		CatalogVersion:    w.Terms.CatalogVersion,
		Amount:            w.Amount,
		State:             string(w.State),
		PaymentAttempts:   w.PaymentAttempts,
		LastPaymentError:  w.LastPaymentError,
		NewSubscriptionID: w.NewSubscriptionID,
		ExpiresAt:         w.ExpiresAt,
		UpdatedAt:         w.UpdatedAt,
	}
	if w.Receipt != nil {
		dto.ReceiptID = w.Receipt.ID
	}
	return dto
}

// GetWorkflowQuery looks up a workflow by id.
type GetWorkflowQuery struct {
	WorkflowID string
}

// GetWorkflowHandler handles GetWorkflowQuery.
type GetWorkflowHandler struct {
	store domain.Store
}

func NewGetWorkflowHandler(store domain.Store) *GetWorkflowHandler {
	return &GetWorkflowHandler{store: store}
}

func (h *GetWorkflowHandler) Handle(ctx context.Context, query GetWorkflowQuery) (*WorkflowDTO, error) {
	w, err := h.store.Get(ctx, query.WorkflowID)
	if err != nil {
		return nil, err
	}
	return ToWorkflowDTO(w), nil
}
