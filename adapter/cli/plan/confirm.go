package plan

import (
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	"github.com/spf13/cobra"
)

var confirmCmd = &cobra.Command{
	Use:   "confirm WORKFLOW_ID",
	Short: "Accept a proposed plan change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		wf, err := app.ConfirmPlanHandler.Handle(cmd.Context(), commands.ConfirmPlanCommand{WorkflowID: args[0]})
		if err != nil {
			return fmt.Errorf("failed to confirm plan change: %w", err)
		}
		return renderWorkflow(cmd, wf)
	},
}
