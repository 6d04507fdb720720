package subscription

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:     "summary",
	Aliases: []string{"show"},
	Short:   "Show the active subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		accountID, err := cli.AccountID(cmd)
		if err != nil {
			return err
		}

		summary, err := app.GetSubscriptionSummaryHandler.Handle(cmd.Context(), queries.GetSubscriptionSummaryQuery{AccountID: accountID})
		if err != nil {
			return fmt.Errorf("failed to load subscription: %w", err)
		}

		return cli.Render(cmd, summary, func(w io.Writer) {
			fmt.Fprintf(w, "%s (%d%% off)\n", summary.PlanName, summary.DiscountPercent)
			fmt.Fprintln(w, cli.Rule())
			fmt.Fprintf(w, "Devices:   %d\n", summary.DeviceCount)
			fmt.Fprintf(w, "Progress:  %d/%d months (%d%%)\n", summary.CompletedMonths, summary.TotalMonths, summary.ProgressPercent)
			fmt.Fprintf(w, "Runs:      %s to %s\n", summary.StartDate.Format("2006-01-02"), summary.EndDate.Format("2006-01-02"))
			if summary.CurrentMonth != nil {
				fmt.Fprintf(w, "Current:   %s\n", summary.CurrentMonth)
			}
			fmt.Fprintf(w, "Version:   %d\n", summary.Version)
		})
	},
}
