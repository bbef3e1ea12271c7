// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/lettervault/lettervault/internal/models"
	"github.com/lettervault/lettervault/internal/service"
)

// Searcher runs semantic queries for the search tool.
type Searcher interface {
	Search(ctx context.Context, opts service.SearchOptions) (*models.SearchResponse, error)
}

// Counter reports chunk counts for the stats tool.
type Counter interface {
	CountChunks(ctx context.Context, source string) (int, error)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Search Searcher
	Store  Counter
	Logger *slog.Logger
}
