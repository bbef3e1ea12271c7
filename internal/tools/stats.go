package tools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatsInput defines the input schema for the stats tool.
type StatsInput struct {
	Source string `json:"source,omitempty" jsonschema:"Restrict the count to one letter file, e.g. 2008.pdf"`
}

type statsOutput struct {
	Chunks int    `json:"chunks"`
	Source string `json:"source,omitempty"`
}

// NewStatsHandler creates the stats tool handler. It reports how many
// chunks are in the index, optionally for a single letter.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (
		*mcp.CallToolResult, any, error,
	) {
		count, err := deps.Store.CountChunks(ctx, input.Source)
		if err != nil {
			deps.Logger.Error("stats tool failed", "error", err)
			return ErrorResult("Failed to count chunks", "The index may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(statsOutput{Chunks: count, Source: input.Source}, "", "  ")
		return TextResult(string(jsonBytes)), nil, nil
	}
}
