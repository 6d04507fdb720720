package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// Build metadata, set with -ldflags.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// BuildInfo describes the binary and, when the app is wired, the catalog it serves.
type BuildInfo struct {
	Version        string `json:"version"`
	Commit         string `json:"commit"`
	BuildDate      string `json:"build_date"`
	CatalogVersion string `json:"catalog_version,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the aromabox build and catalog version",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := BuildInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
		if a := GetApp(); a != nil && a.Catalog != nil {
			v, err := a.Catalog.Version(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read catalog version: %w", err)
			}
			info.CatalogVersion = v
		}
		return Render(cmd, info, func(w io.Writer) {
			fmt.Fprintf(w, "aromabox %s (%s, built %s)\n", info.Version, info.Commit, info.BuildDate)
			if info.CatalogVersion != "" {
				fmt.Fprintf(w, "catalog %s\n", info.CatalogVersion)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
