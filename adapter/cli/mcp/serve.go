package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/aromabox/adapter/cli"
	mcpinternal "github.com/felixgeelhaar/aromabox/internal/mcp"
	"github.com/felixgeelhaar/aromabox/pkg/config"
	"github.com/felixgeelhaar/aromabox/pkg/observability"
	"github.com/spf13/cobra"
)

var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Expose the subscription, plan and catalog tools over MCP using the
already initialized storage. Set MCP_AUTH_TOKEN to require a bearer token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.MCPAddr = addr
		}

		logger := observability.NewLogger(observability.LogConfig{
			Level:          cfg.LogLevel,
			Format:         observability.LogFormat(cfg.LogFormat),
			Output:         cmd.ErrOrStderr(),
			ServiceName:    "aromabox-mcp",
			ServiceVersion: cli.Version,
		})

		err = mcpinternal.Serve(cmd.Context(), cfg, app, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to MCP_ADDR)")
}
