package plan

import (
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	"github.com/spf13/cobra"
)

var proposeCmd = &cobra.Command{
	Use:   "propose PLAN_ID",
	Short: "Quote a switch to another plan",
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

		wf, err := app.ProposePlanHandler.Handle(cmd.Context(), commands.ProposePlanCommand{
			AccountID: accountID,
			PlanID:    args[0],
		})
		if err != nil {
			return fmt.Errorf("failed to propose plan: %w", err)
		}
		return renderWorkflow(cmd, wf)
	},
}
