package catalog

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	"github.com/felixgeelhaar/aromabox/internal/catalog/domain"
	"github.com/spf13/cobra"
)

// Cmd is the catalog command group
var Cmd = &cobra.Command{
	Use:     "catalog",
	Aliases: []string{"cat"},
	Short:   "Browse plans, oils and device types",
}

func init() {
	Cmd.AddCommand(plansCmd)
	Cmd.AddCommand(oilsCmd)
	Cmd.AddCommand(devicesCmd)
}

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "List subscription plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		plans, err := app.Catalog.ListPlans(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list plans: %w", err)
		}
		return cli.Render(cmd, plans, func(w io.Writer) {
			for _, p := range plans {
				fmt.Fprintf(w, "%-12s %-20s %3d months  %3d%% off\n", p.ID, p.Name, p.DurationMonths, p.DiscountPercent)
				if p.Description != "" {
					fmt.Fprintf(w, "   %s\n", p.Description)
				}
			}
		})
	},
}

var category string

var oilsCmd = &cobra.Command{
	Use:   "oils",
	Short: "List aroma oils",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		oils, err := app.Catalog.ListAromaOils(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list oils: %w", err)
		}
		if category != "" {
			filtered := oils[:0:0]
			for _, o := range oils {
				if o.Category == category {
					filtered = append(filtered, o)
				}
			}
			oils = filtered
		}
		return cli.Render(cmd, oils, func(w io.Writer) {
			if len(oils) == 0 {
				fmt.Fprintln(w, "No oils found.")
				return
			}
			for _, o := range oils {
				fmt.Fprintf(w, "%-16s %-22s %s\n", o.ID, o.Name, o.Category)
			}
		})
	},
}

// deviceRow pairs a device type with its monthly price.
type deviceRow struct {
	domain.DeviceType
	MonthlyPrice int64 `json:"monthly_price"`
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List device types with their monthly oil price",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		types, err := app.Catalog.ListDeviceTypes(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list device types: %w", err)
		}
		rows := make([]deviceRow, 0, len(types))
		for _, t := range types {
			price, err := app.Prices.PriceForDevice(t.CapacityML)
			if err != nil {
				return err
			}
			rows = append(rows, deviceRow{DeviceType: t, MonthlyPrice: price})
		}
		return cli.Render(cmd, rows, func(w io.Writer) {
			for _, r := range rows {
				fmt.Fprintf(w, "%-10s %-18s %5d ml  %6d / month\n", r.ID, r.Name, r.CapacityML, r.MonthlyPrice)
			}
		})
	},
}

func init() {
	oilsCmd.Flags().StringVar(&category, "category", "", "only show oils in this category")
}
