package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lettervault/lettervault/internal/service"
)

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query    string  `json:"query" jsonschema:"required,The search query text"`
	TopK     int     `json:"topK,omitempty" jsonschema:"Number of passages to return, 1-10, default 5"`
	Year     *int    `json:"year,omitempty" jsonschema:"Restrict results to a single letter year"`
	MinScore float64 `json:"minScore,omitempty" jsonschema:"Override the similarity threshold, 0-1"`
}

// NewSearchHandler creates the search tool handler.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, any, error,
	) {
		if input.Query == "" {
			return ErrorResult("Query cannot be empty", "Provide a search query"), nil, nil
		}
		if input.MinScore < 0 || input.MinScore > 1 {
			return ErrorResult("minScore must be between 0 and 1", "Omit it to use the default threshold"), nil, nil
		}

		response, err := deps.Search.Search(ctx, service.SearchOptions{
			Query:    input.Query,
			TopK:     input.TopK,
			Year:     input.Year,
			MinScore: input.MinScore,
		})
		if err != nil {
			var invalid *service.InvalidArgumentError
			if errors.As(err, &invalid) {
				return ErrorResult(invalid.Error(), "Fix the argument and retry"), nil, nil
			}
			deps.Logger.Error("search tool failed", "error", err)
			return ErrorResult("Search failed", "The embedding provider may be unavailable"), nil, nil
		}

		jsonBytes, _ := json.MarshalIndent(response, "", "  ")

		queryLog := input.Query
		if len(queryLog) > 30 {
			queryLog = queryLog[:30] + "..."
		}
		deps.Logger.Info("search tool completed", "query", queryLog, "results", response.TotalResults)

		return TextResult(string(jsonBytes)), nil, nil
	}
}
