package domain

import apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"

var (
	ErrWorkflowNotFound     = apperrors.NotFound("workflow_not_found", "plan change workflow not found")
	ErrSamePlan             = apperrors.InvalidState("same_plan", "account is already on this plan")
	ErrPlanNotConfirmed     = apperrors.InvalidState("plan_not_confirmed", "plan must be confirmed before payment")
	ErrWorkflowTerminated   = apperrors.InvalidState("workflow_terminated", "plan change workflow has already finished")
	ErrInvalidPaymentMethod = apperrors.Validation("invalid_payment_method", "payment method must be card, upi, netbanking or wallet")
	ErrPaymentRejected      = apperrors.Transient("payment_rejected", "payment was declined")
	ErrInvalidWorkflow      = apperrors.Validation("invalid_workflow", "plan change workflow is invalid")
	ErrWorkflowChanged      = apperrors.Conflict("workflow_changed", "plan change workflow was changed by another request")
)
