package cli

import (
	"github.com/spf13/cobra"

	"github.com/lettervault/lettervault/internal/server"
	"github.com/lettervault/lettervault/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the retrieval tools over MCP stdio",
	Long: `Expose the letter search as MCP tools on stdio, so external agent
hosts can call it. Diagnostics go to stderr and the log file; stdout
carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	if err := initLLM(false); err != nil {
		return err
	}

	srv := server.New(Version, logger)
	srv.Setup()

	tools.RegisterAll(srv.MCPServer(), &tools.Dependencies{
		Search: newSearchService(),
		Store:  storeClient,
		Logger: logger,
	})

	logger.Info("MCP tools registered", "count", 2)
	return srv.Run(cmd.Context())
}
