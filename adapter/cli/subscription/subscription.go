package subscription

import (
	"github.com/spf13/cobra"
)

// Cmd is the subscription command group
var Cmd = &cobra.Command{
	Use:     "subscription",
	Aliases: []string{"sub"},
	Short:   "Manage the subscription and monthly oil selections",
	Long: `Sign up, inspect the subscription and choose an oil per device for
each upcoming month. A month can be edited until its deadline, a fixed
number of days before it starts.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(summaryCmd)
	Cmd.AddCommand(monthCmd)
	Cmd.AddCommand(timelineCmd)
	Cmd.AddCommand(setOilCmd)
}
