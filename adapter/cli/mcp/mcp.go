package mcp

import "github.com/spf13/cobra"

// Cmd groups the commands that expose subscriptions, plan changes and the
// catalog to MCP clients.
var Cmd = &cobra.Command{
	Use:     "mcp",
	Aliases: []string{"agent"},
	Short:   "Expose subscriptions and plan changes over MCP",
	Long: `Run aromabox as a Model Context Protocol server so assistants can read
monthly selections, pick oils and walk a plan change through payment.`,
}

func init() {
	Cmd.AddCommand(serveCmd)
}
