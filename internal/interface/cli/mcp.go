package cli

import (
	"fmt"

	"github.com/neilberkman/medichat/cmd/medichat/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server exposing medichat conversations",
	Long: `Start an MCP (Model Context Protocol) server on stdio that lets MCP
clients list conversations, read their messages and start new ones.

Configure in your MCP client's config file:
  {
    "mcpServers": {
      "medichat": {
        "command": "medichat",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := mcp.StartServer(newClient(), version); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
