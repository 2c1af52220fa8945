package cmd

import (
	"github.com/huangsam/precache/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the precache MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents inspect buckets, install
and activate versions, and fetch requests cache-first via standard tools.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}
