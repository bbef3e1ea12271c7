package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_letters",
		Description: "Semantic search over Berkshire Hathaway shareholder letters, returning the most relevant passages with source file and year",
	}, NewSearchHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "index_stats",
		Description: "Report how many letter chunks are in the index, optionally for a single letter file",
	}, NewStatsHandler(deps))
}
