package store

import (
	"context"
	"fmt"

	"github.com/lettervault/lettervault/internal/models"
	"github.com/surrealdb/surrealdb.go"
)

// MaxBatchSize caps upsert batches to respect backend limits.
const MaxBatchSize = 50

// Match is a scored query hit with its chunk metadata.
type Match struct {
	Content    string  `json:"content"`
	Source     string  `json:"source"`
	Year       int     `json:"year"`
	ChunkIndex int     `json:"chunk_index"`
	Page       *int    `json:"page,omitempty"`
	Section    *string `json:"section,omitempty"`
	Score      float64 `json:"score"`
}

// QueryOptions parameterize a vector similarity query.
type QueryOptions struct {
	// Vector is the query embedding.
	Vector []float32

	// TopK is the number of nearest neighbors to return.
	TopK int

	// Year, when non-nil, restricts matches to that exact year.
	// Equality only; the index has no range filters.
	Year *int
}

// upsertRow is the wire form of a chunk record for batch upserts.
type upsertRow struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Source     string    `json:"source"`
	Year       int       `json:"year"`
	ChunkIndex int       `json:"chunk_index"`
	Page       *int      `json:"page"`
	Section    *string   `json:"section"`
	Embedding  []float32 `json:"embedding"`
}

// UpsertBatch writes a batch of chunk records. Record IDs are
// deterministic, so writing the same chunk twice overwrites rather
// than duplicates. Batches above MaxBatchSize are rejected; callers
// split their work first.
func (c *Client) UpsertBatch(ctx context.Context, records []models.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if len(records) > MaxBatchSize {
		return fmt.Errorf("batch of %d exceeds limit %d", len(records), MaxBatchSize)
	}

	rows := make([]upsertRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, upsertRow{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Source,
			Year:       r.Year,
			ChunkIndex: r.ChunkIndex,
			Page:       r.Page,
			Section:    r.Section,
			Embedding:  r.Embedding,
		})
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		FOR $row IN $rows {
			UPSERT type::record("chunk", $row.id) SET
				content = $row.content,
				source = $row.source,
				year = $row.year,
				chunk_index = $row.chunk_index,
				page = $row.page,
				section = $row.section,
				embedding = $row.embedding
		}
	`, map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// Query runs a nearest-neighbor search and returns matches ordered by
// descending cosine similarity. The optional year filter is an exact
// equality constraint pushed into the KNN query.
func (c *Client) Query(ctx context.Context, opts QueryOptions) ([]Match, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", opts.TopK)
	}

	yearClause := ""
	vars := map[string]any{
		"emb": opts.Vector,
	}
	if opts.Year != nil {
		yearClause = "AND year = $year"
		vars["year"] = *opts.Year
	}

	// HNSW KNN with ef=40 for recall; score recomputed for the
	// response so callers can threshold on it.
	sql := fmt.Sprintf(`
		SELECT content, source, year, chunk_index, page, section,
		       vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk
		WHERE embedding <|%d,40|> $emb %s
		ORDER BY score DESC
	`, opts.TopK, yearClause)

	results, err := surrealdb.Query[[]Match](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	if results != nil && len(*results) > 0 {
		return (*results)[0].Result, nil
	}
	return []Match{}, nil
}

// CountChunks returns the total number of stored chunk records,
// optionally restricted to one source document.
func (c *Client) CountChunks(ctx context.Context, source string) (int, error) {
	type countRow struct {
		Count int `json:"count"`
	}

	sql := `SELECT count() AS count FROM chunk GROUP ALL`
	vars := map[string]any{}
	if source != "" {
		sql = `SELECT count() AS count FROM chunk WHERE source = $source GROUP ALL`
		vars["source"] = source
	}

	results, err := surrealdb.Query[[]countRow](ctx, c.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return (*results)[0].Result[0].Count, nil
	}
	return 0, nil
}

// DeleteStale removes chunk records for one source document at or
// above the given chunk index. A letter re-issued under the same
// filename with fewer chunks would otherwise keep its old tail; a keep
// of zero removes the source entirely.
func (c *Client) DeleteStale(ctx context.Context, source string, keep int) error {
	if keep < 0 {
		return fmt.Errorf("keep must be non-negative, got %d", keep)
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE chunk WHERE source = $source AND chunk_index >= $keep
	`, map[string]any{"source": source, "keep": keep})
	if err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}
	return nil
}
