package plan

import (
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/commands"
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel WORKFLOW_ID",
	Short: "Abandon a plan change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		wf, err := app.CancelPlanChangeHandler.Handle(cmd.Context(), commands.CancelPlanChangeCommand{WorkflowID: args[0]})
		if err != nil {
			return fmt.Errorf("failed to cancel plan change: %w", err)
		}
		return renderWorkflow(cmd, wf)
	},
}
