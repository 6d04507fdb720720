package subscription

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/spf13/cobra"
)

var monthCmd = &cobra.Command{
	Use:   "month YYYY-MM",
	Short: "Show one month's selections and price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		accountID, err := cli.AccountID(cmd)
		if err != nil {
			return err
		}
		month, err := cli.ParseMonth(args[0])
		if err != nil {
			return err
		}

		view, err := app.GetMonthlySelectionHandler.Handle(cmd.Context(), queries.GetMonthlySelectionQuery{
			AccountID: accountID,
			Month:     month,
		})
		if err != nil {
			return fmt.Errorf("failed to load month: %w", err)
		}

		return cli.Render(cmd, view, func(w io.Writer) {
			fmt.Fprintf(w, "%s [%s]\n", view.Month, view.Status)
			if view.CanModify {
				fmt.Fprintf(w, "Editable for %d more day(s), until %s\n", view.DaysUntilDeadline, view.Deadline.Format("2006-01-02 15:04 MST"))
			}
			fmt.Fprintln(w, cli.Rule())
			for _, d := range view.Devices {
				oil := "(not chosen)"
				if d.Oil != nil {
					oil = d.Oil.Name
				}
				fmt.Fprintf(w, "%-20s %-14s %-20s %6d\n", d.DeviceName, d.TypeName, oil, d.Price)
				fmt.Fprintf(w, "   ID: %s\n", d.DeviceID)
			}
			fmt.Fprintln(w, cli.Rule())
			fmt.Fprintf(w, "Gross %d, with %d%% discount %d\n", view.GrossTotal, view.DiscountPercent, view.DiscountedTotal)
		})
	},
}
