package plan

import (
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	"github.com/spf13/cobra"
)

var method string

var payCmd = &cobra.Command{
	Use:   "pay WORKFLOW_ID",
	Short: "Pay for a confirmed plan change and switch plans",
	Long: `Charge the quoted amount and, once paid, replace the subscription.
Running it again after a failure never charges twice.

Methods: card, upi, netbanking, wallet`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		wf, err := app.SubmitPaymentHandler.Handle(cmd.Context(), commands.SubmitPaymentCommand{
			WorkflowID: args[0],
			Method:     method,
		})
		if err != nil {
			return fmt.Errorf("payment failed: %w", err)
		}
		return renderWorkflow(cmd, wf)
	},
}

func init() {
	payCmd.Flags().StringVarP(&method, "method", "m", "card", "payment method (card, upi, netbanking, wallet)")
}
