package subscription

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/subscription/application/commands"
	"github.com/felixgeelhaar/aromabox/internal/subscription/domain"
	"github.com/spf13/cobra"
)

var (
	planID     string
	devices    []string
	startMonth string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Sign up for a plan",
	Long: `Create a subscription for the account. Each --device is NAME:TYPE where
TYPE is a device type id from 'aromabox catalog devices'.

Examples:
  aromabox subscription create --plan half-year --device "Living room:mini" --device "Bedroom:classic"
  aromabox subscription create --plan monthly --device Hall:pro --start 2025-06`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		accountID, err := cli.AccountID(cmd)
		if err != nil {
			return err
		}

		command := commands.CreateSubscriptionCommand{
			AccountID: accountID,
			PlanID:    planID,
		}
		for _, value := range devices {
			device, err := parseDevice(value)
			if err != nil {
				return err
			}
			command.Devices = append(command.Devices, device)
		}
		if startMonth != "" {
			month, err := cli.ParseMonth(startMonth)
			if err != nil {
				return err
			}
			command.StartMonth = &month
		}

		result, err := app.CreateSubscriptionHandler.Handle(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		return cli.Render(cmd, result, func(w io.Writer) {
			fmt.Fprintf(w, "Subscribed to %s\n", planID)
			fmt.Fprintf(w, "  ID:     %s\n", result.SubscriptionID)
			fmt.Fprintf(w, "  Months: %s to %s\n", result.StartMonth, result.EndMonth)
		})
	},
}

func parseDevice(value string) (commands.DeviceInput, error) {
	name, typeID, ok := strings.Cut(value, ":")
	name, typeID = strings.TrimSpace(name), strings.TrimSpace(typeID)
	if !ok || name == "" || typeID == "" {
		return commands.DeviceInput{}, domain.ErrInvalidSubscription.WithDetails("device %q must be NAME:TYPE", value)
	}
	return commands.DeviceInput{Name: name, TypeID: typeID}, nil
}

func init() {
	createCmd.Flags().StringVarP(&planID, "plan", "p", "", "plan id (required)")
	createCmd.Flags().StringArrayVarP(&devices, "device", "d", nil, "device as NAME:TYPE (repeatable, required)")
	createCmd.Flags().StringVar(&startMonth, "start", "", "first month (YYYY-MM); defaults to the next editable month")
	_ = createCmd.MarkFlagRequired("plan")
	_ = createCmd.MarkFlagRequired("device")
}
