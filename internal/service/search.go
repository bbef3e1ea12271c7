package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lettervault/lettervault/internal/config"
	"github.com/lettervault/lettervault/internal/llm"
	"github.com/lettervault/lettervault/internal/metrics"
	"github.com/lettervault/lettervault/internal/models"
	"github.com/lettervault/lettervault/internal/store"
)

// InvalidArgumentError reports a request the caller can fix. It is
// distinct from transient failures, which degrade to an empty response.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// queryEmbedder is the slice of llm.Embedder that search needs.
type queryEmbedder interface {
	EmbedWithRetry(ctx context.Context, text string, attempts int) ([]float32, error)
}

// vectorIndex is the slice of store.Client that search needs.
type vectorIndex interface {
	Query(ctx context.Context, opts store.QueryOptions) ([]store.Match, error)
}

// SearchService answers semantic queries against the vector index.
type SearchService struct {
	index    vectorIndex
	embedder queryEmbedder
	tunables config.Tunables
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// SetMetrics attaches an optional stats collector.
func (s *SearchService) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

// NewSearchService creates a search service.
func NewSearchService(index vectorIndex, emb queryEmbedder, tunables config.Tunables, logger *slog.Logger) *SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		index:    index,
		embedder: emb,
		tunables: tunables,
		logger:   logger,
	}
}

// SearchOptions parameterize a search. Zero values take the deployment
// defaults.
type SearchOptions struct {
	Query string
	// TopK requests a result count. Values above the maximum are
	// clamped, zero takes the default.
	TopK int
	// Year restricts results to a single letter year. Years outside
	// the plausible range are ignored rather than rejected.
	Year *int
	// MinScore overrides the similarity threshold when positive.
	MinScore float64
}

// Search embeds the query, runs the vector search and filters the
// matches. Transient embedding or index failures degrade to an empty
// response with a nil error; only fatal API errors and invalid
// arguments surface to the caller.
func (s *SearchService) Search(ctx context.Context, opts SearchOptions) (*models.SearchResponse, error) {
	if opts.Query == "" {
		return nil, &InvalidArgumentError{Field: "query", Reason: "must not be empty"}
	}
	if opts.TopK < 0 {
		return nil, &InvalidArgumentError{Field: "topK", Reason: "must not be negative"}
	}

	topK := opts.TopK
	if topK == 0 {
		topK = s.tunables.Retrieval.DefaultTopK
	}
	if topK > s.tunables.Retrieval.MaxTopK {
		s.logger.Debug("clamping topK", "requested", topK, "max", s.tunables.Retrieval.MaxTopK)
		topK = s.tunables.Retrieval.MaxTopK
	}

	minScore := s.tunables.Retrieval.MinScore
	if opts.MinScore > 0 {
		minScore = opts.MinScore
	}

	year := s.validYear(opts.Year)

	embedStart := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	vector, err := s.embedder.EmbedWithRetry(callCtx, opts.Query, s.tunables.Search.EmbedRetries)
	cancel()
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpEmbed, time.Since(embedStart))
	}
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			return nil, err
		}
		s.logger.Warn("query embedding failed, returning empty results",
			"query", opts.Query, "error", err)
		return models.EmptyResponse(opts.Query), nil
	}

	searchStart := time.Now()
	callCtx, cancel = context.WithTimeout(ctx, callTimeout)
	matches, err := s.index.Query(callCtx, store.QueryOptions{
		Vector: vector,
		TopK:   topK,
		Year:   year,
	})
	cancel()
	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpSearch, time.Since(searchStart))
	}
	if err != nil {
		s.logger.Warn("vector search failed, returning empty results",
			"query", opts.Query, "error", err)
		return models.EmptyResponse(opts.Query), nil
	}

	results := make([]models.SearchResult, 0, len(matches))
	for _, m := range matches {
		if m.Score < minScore || strings.TrimSpace(m.Content) == "" {
			continue
		}
		results = append(results, models.SearchResult{
			Content: m.Content,
			Year:    m.Year,
			Source:  m.Source,
			Score:   m.Score,
			Page:    m.Page,
			Section: m.Section,
		})
	}

	s.logger.Info("search completed",
		"query", opts.Query,
		"matches", len(matches),
		"results", len(results),
	)

	return &models.SearchResponse{
		Results:      results,
		TotalResults: len(results),
		SearchQuery:  opts.Query,
	}, nil
}

// validYear returns the filter year if it falls inside the plausible
// letter range, otherwise nil.
func (s *SearchService) validYear(year *int) *int {
	if year == nil {
		return nil
	}
	if *year < s.tunables.Retrieval.MinYear || *year > time.Now().Year() {
		s.logger.Debug("ignoring out-of-range year filter", "year", *year)
		return nil
	}
	return year
}
