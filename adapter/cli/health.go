package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check storage and cache connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := RequireApp()
		if err != nil {
			return err
		}
		if app.Health == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}

		report := app.Health.Run(cmd.Context())
		return Render(cmd, report, func(w io.Writer) {
			fmt.Fprintf(w, "status: %s\n", report.Status)
			names := make([]string, 0, len(report.Checks))
			for name := range report.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := report.Checks[name]
				fmt.Fprintf(w, "  %-10s %s %s\n", name, check.Status, check.Message)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
