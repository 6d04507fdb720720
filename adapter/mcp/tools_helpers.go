package mcp

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	subscriptionDomain "github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
)

// errNoDatabase is returned by tools whose handlers were not wired.
var errNoDatabase = errors.New("requires database connection")

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.UUID{}, errors.New("id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}

// resolveAccount uses the explicit account id, or the server's configured one.
func resolveAccount(app *cli.App, value string) (uuid.UUID, error) {
	if value != "" {
		account, err := sharedDomain.ParseAccountID(value)
		if err != nil {
			return uuid.Nil, err
		}
		return account.UUID(), nil
	}
	if app.CurrentAccountID == uuid.Nil {
		return uuid.Nil, errors.New("account_id is required")
	}
	return app.CurrentAccountID, nil
}

func parseMonth(value string) (subscriptionDomain.MonthKey, error) {
	if value == "" {
		return subscriptionDomain.MonthKey{}, errors.New("month is required")
	}
	return cli.ParseMonth(value)
}
