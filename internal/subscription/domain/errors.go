package domain

import apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"

var (
	ErrSubscriptionNotFound     = apperrors.NotFound("subscription_not_found", "subscription not found")
	ErrMonthNotFound            = apperrors.NotFound("month_not_found", "month is not part of the subscription")
	ErrUnknownDevice            = apperrors.NotFound("unknown_device", "device is not attached to the subscription")
	ErrUnknownOil               = apperrors.NotFound("unknown_oil", "aroma oil not found")
	ErrNotModifiable            = apperrors.InvalidState("not_modifiable", "month can no longer be modified")
	ErrSubscriptionSuperseded   = apperrors.InvalidState("subscription_superseded", "subscription has been superseded")
	ErrVersionConflict          = apperrors.Conflict("version_conflict", "subscription was modified concurrently, reload and retry")
	ErrActiveSubscriptionExists = apperrors.Conflict("active_subscription_exists", "account already has an active subscription")
	ErrInvalidCapacity          = apperrors.Validation("invalid_capacity", "device capacity must be positive")
	ErrInvalidDiscount          = apperrors.Validation("invalid_discount", "discount must be between 0 and 100")
	ErrInvalidPriceTable        = apperrors.Validation("invalid_price_table", "price table is invalid")
	ErrInvalidMonth             = apperrors.Validation("invalid_month", "month must be formatted YYYY-MM")
	ErrInvalidSubscription      = apperrors.Validation("invalid_subscription", "subscription is invalid")
)
