package plan

import (
	"fmt"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/planchange/application/queries"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show WORKFLOW_ID",
	Short: "Show a plan change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		wf, err := app.GetWorkflowHandler.Handle(cmd.Context(), queries.GetWorkflowQuery{WorkflowID: args[0]})
		if err != nil {
			return fmt.Errorf("failed to load plan change: %w", err)
		}
		return renderWorkflow(cmd, wf)
	},
}
