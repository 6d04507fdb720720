package application

import apperrors "github.com/felixgeelhaar/aromabox/internal/shared/errors"

// Outcome labels a command result for metrics: "ok" or the error kind.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.KindOf(err))
}

// AccountLockKey is the lock key guarding an account's active subscription.
func AccountLockKey(accountID string) string {
	return "account:" + accountID
}
