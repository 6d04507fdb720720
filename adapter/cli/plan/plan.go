package plan

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/spf13/cobra"
)

// Cmd is the plan change command group
var Cmd = &cobra.Command{
	Use:   "plan",
	Short: "Change to a different plan",
	Long: `Switch plans in three steps: propose the new plan to get a quote,
confirm it, then pay. The new plan starts at the next month that can still
be edited; the current subscription keeps its past months.

Examples:
  aromabox plan propose annual
  aromabox plan confirm 01JB7Z...
  aromabox plan pay 01JB7Z... --method upi`,
}

func init() {
	Cmd.AddCommand(proposeCmd)
	Cmd.AddCommand(confirmCmd)
	Cmd.AddCommand(payCmd)
	Cmd.AddCommand(cancelCmd)
	Cmd.AddCommand(showCmd)
}

func renderWorkflow(cmd *cobra.Command, wf *queries.WorkflowDTO) error {
	return cli.Render(cmd, wf, func(w io.Writer) {
		fmt.Fprintf(w, "Plan change %s [%s]\n", wf.ID, wf.State)
		fmt.Fprintln(w, cli.Rule())
		fmt.Fprintf(w, "From:     %s\n", wf.CurrentPlanID)
		fmt.Fprintf(w, "To:       %s (%d months, %d%% off)\n", wf.PlanName, wf.DurationMonths, wf.DiscountPercent)
		fmt.Fprintf(w, "Amount:   %d\n", wf.Amount)
		if wf.PaymentAttempts > 0 {
			fmt.Fprintf(w, "Attempts: %d\n", wf.PaymentAttempts)
		}
		if wf.LastPaymentError != "" {
			fmt.Fprintf(w, "Last error: %s\n", wf.LastPaymentError)
		}
		if wf.ReceiptID != "" {
			fmt.Fprintf(w, "Receipt:  %s\n", wf.ReceiptID)
		}
		if wf.NewSubscriptionID != nil {
			fmt.Fprintf(w, "New subscription: %s\n", *wf.NewSubscriptionID)
		}
		fmt.Fprintf(w, "Expires:  %s\n", wf.ExpiresAt.Format("2006-01-02 15:04 MST"))
	})
}
