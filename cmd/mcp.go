package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/joescharf/revbot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Runs a Model Context Protocol server exposing stored review records
and manual review triggering as tools, so MCP clients can query and
drive the bot.`,
	RunE: mcpRun,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command, args []string) error {
	rt, s, err := buildRouter()
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcpserver.NewServer(s, rt)
	return srv.ServeStdio(cmd.Context())
}
