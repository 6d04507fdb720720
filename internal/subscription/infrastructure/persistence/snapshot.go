package persistence

import (
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
)

// snapshot captures everything needed to rehydrate sub.
func snapshot(sub *domain.Subscription) domain.RehydrateSubscriptionParams {
	return domain.RehydrateSubscriptionParams{
		ID:           sub.ID(),
		AccountID:    sub.AccountID(),
		Plan:         sub.Plan(),
		StartMonth:   sub.StartMonth(),
		Devices:      sub.Devices(),
		Months:       sub.Months(),
		Status:       sub.Status(),
		PreviousID:   sub.PreviousID(),
		SupersededBy: sub.SupersededBy(),
		Version:      sub.Version(),
		CreatedAt:    sub.CreatedAt(),
		UpdatedAt:    sub.UpdatedAt(),
	}
}
