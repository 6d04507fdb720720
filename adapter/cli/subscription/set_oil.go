package subscription

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var expectedVersion int

var setOilCmd = &cobra.Command{
	Use:   "set-oil YYYY-MM DEVICE_ID OIL_ID",
	Short: "Choose the oil a device gets in a month",
	Long: `Change the oil for one device in one month. Only upcoming months whose
deadline has not passed can be changed.

Pass --expect-version with the version shown by 'subscription month' to fail
instead of overwriting a change made in the meantime.`,
	Args: cobra.ExactArgs(3),
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
		deviceID, err := uuid.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid device id: %w", err)
		}

		command := commands.SetDeviceOilCommand{
			AccountID: accountID,
			Month:     month,
			DeviceID:  deviceID,
			OilID:     args[2],
		}
		if cmd.Flags().Changed("expect-version") {
			v := expectedVersion
			command.ExpectedVersion = &v
		}

		result, err := app.SetDeviceOilHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to set oil: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			if !result.Changed {
				fmt.Fprintf(w, "%s already has %s in %s\n", deviceID, args[2], month)
				return
			}
			fmt.Fprintf(w, "Set %s for %s in %s (version %d)\n", args[2], deviceID, month, result.Version)
		})
	},
}

func init() {
	setOilCmd.Flags().IntVar(&expectedVersion, "expect-version", 0, "fail if the subscription version differs")
}
