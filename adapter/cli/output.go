package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	sharedDomain "github.com/felixgeelhaar/aromabox/internal/shared/domain"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ErrNotInitialized is returned when a command runs without a container.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// RequireApp returns the global app or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}

// AccountID resolves --account, falling back to the configured account.
func AccountID(cmd *cobra.Command) (uuid.UUID, error) {
	if f := cmd.Flags().Lookup("account"); f != nil && f.Value.String() != "" {
		account, err := sharedDomain.ParseAccountID(f.Value.String())
		if err != nil {
			return uuid.Nil, err
		}
		return account.UUID(), nil
	}
	if app == nil || app.CurrentAccountID == uuid.Nil {
		return uuid.Nil, errors.New("no account: pass --account or set AROMABOX_ACCOUNT_ID")
	}
	return app.CurrentAccountID, nil
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(value string) (domain.MonthKey, error) {
	month, err := domain.ParseMonthKey(value)
	if err != nil {
		return domain.MonthKey{}, fmt.Errorf("invalid month %q, use YYYY-MM: %w", value, err)
	}
	return month, nil
}

// WantsJSON reports whether --json was given.
func WantsJSON(cmd *cobra.Command) bool {
	f := cmd.Flags().Lookup("json")
	return f != nil && f.Value.String() == "true"
}

// Render prints v as indented JSON when --json is set, otherwise calls text.
func Render(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	out := cmd.OutOrStdout()
	if WantsJSON(cmd) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(out)
	return nil
}

// Rule is a horizontal separator for text output.
func Rule() string {
	return strings.Repeat("-", 60)
}
