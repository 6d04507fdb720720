package subscription

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/queries"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/spf13/cobra"
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List every month with its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		accountID, err := cli.AccountID(cmd)
		if err != nil {
			return err
		}

		timeline, err := app.GetTimelineHandler.Handle(cmd.Context(), queries.GetTimelineQuery{AccountID: accountID})
		if err != nil {
			return fmt.Errorf("failed to load timeline: %w", err)
		}

		return cli.Render(cmd, timeline, func(w io.Writer) {
			for _, m := range timeline.Months {
				line := fmt.Sprintf("%s %s %s", statusIcon(m.Status), m.Month, m.Status)
				if m.CanModify {
					line += fmt.Sprintf(" (%d day(s) left)", m.DaysUntilDeadline)
				}
				fmt.Fprintln(w, line)
			}
		})
	},
}

func statusIcon(status domain.SelectionStatus) string {
	switch status {
	case domain.StatusCompleted:
		return "[x]"
	case domain.StatusCurrent:
		return "[>]"
	case domain.StatusLocked:
		return "[-]"
	default:
		return "[ ]"
	}
}
