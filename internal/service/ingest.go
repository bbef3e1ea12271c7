// Package service implements the ingestion, search and chat pipelines
// on top of the extraction, chunking, embedding and store layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lettervault/lettervault/internal/chunker"
	"github.com/lettervault/lettervault/internal/config"
	"github.com/lettervault/lettervault/internal/extract"
	"github.com/lettervault/lettervault/internal/llm"
	"github.com/lettervault/lettervault/internal/metrics"
	"github.com/lettervault/lettervault/internal/models"
	"github.com/lettervault/lettervault/internal/store"
)

// callTimeout bounds every individual embedding or store call.
const callTimeout = 30 * time.Second

// DocState tracks a document through the ingestion pipeline.
type DocState string

const (
	StatePending    DocState = "pending"
	StateExtracting DocState = "extracting"
	StateChunking   DocState = "chunking"
	StateEmbedding  DocState = "embedding"
	StateStoring    DocState = "storing"
	StateDone       DocState = "done"
	StateFailed     DocState = "failed"
)

// DocumentReport is the per-document outcome of an ingestion run.
type DocumentReport struct {
	File           string
	Year           int
	State          DocState
	ChunksTotal    int
	ChunksEmbedded int
	ChunksStored   int
	Err            error
}

// Fraction reports how far the document is through the embed and store
// phases, in [0, 1]. Earlier phases count as zero.
func (r DocumentReport) Fraction() float64 {
	if r.ChunksTotal == 0 {
		return 0
	}
	return float64(r.ChunksEmbedded+r.ChunksStored) / float64(2*r.ChunksTotal)
}

// IngestResult summarizes an ingestion run over a directory.
type IngestResult struct {
	Documents []DocumentReport
}

// Succeeded counts documents that reached the done state.
func (r *IngestResult) Succeeded() int {
	n := 0
	for _, d := range r.Documents {
		if d.State == StateDone {
			n++
		}
	}
	return n
}

// Failed counts documents that ended in the failed state.
func (r *IngestResult) Failed() int {
	return len(r.Documents) - r.Succeeded()
}

// ProgressFunc receives a snapshot after every state change.
type ProgressFunc func(report DocumentReport)

// embedder is the slice of llm.Embedder that ingestion needs.
type embedder interface {
	EmbedWithRetry(ctx context.Context, text string, attempts int) ([]float32, error)
}

// chunkStore is the slice of store.Client that ingestion needs.
type chunkStore interface {
	UpsertBatch(ctx context.Context, records []models.ChunkRecord) error
	DeleteStale(ctx context.Context, source string, keep int) error
}

// IngestService turns PDF files into embedded chunks in the vector index.
type IngestService struct {
	store    chunkStore
	embedder embedder
	tunables config.Tunables
	logger   *slog.Logger

	// Token buckets pace calls to the embedding API and the index so a
	// large directory cannot exhaust provider rate limits.
	embedLimiter  *rate.Limiter
	upsertLimiter *rate.Limiter

	metrics *metrics.Collector

	// extractText is swapped out in tests.
	extractText func(path string) (string, error)
}

// SetMetrics attaches an optional stats collector.
func (s *IngestService) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

// NewIngestService creates an ingest service paced by the tunables'
// embed and upsert intervals.
func NewIngestService(st chunkStore, emb embedder, tunables config.Tunables, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:         st,
		embedder:      emb,
		tunables:      tunables,
		logger:        logger,
		embedLimiter:  limiterFromInterval(tunables.Ingest.EmbedInterval, 100*time.Millisecond),
		upsertLimiter: limiterFromInterval(tunables.Ingest.UpsertInterval, 500*time.Millisecond),
		extractText:   extract.Text,
	}
}

func limiterFromInterval(interval string, fallback time.Duration) *rate.Limiter {
	d, err := time.ParseDuration(interval)
	if err != nil || d <= 0 {
		d = fallback
	}
	return rate.NewLimiter(rate.Every(d), 1)
}

// ListPDFs returns the PDF files directly inside dir, sorted by name.
// Subdirectories are not scanned.
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read documents dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IngestDir ingests every PDF in dir sequentially. Document failures
// are recorded per document and do not stop the run; a fatal API error
// (auth, billing, quota) aborts immediately.
func (s *IngestService) IngestDir(ctx context.Context, dir string, progress ProgressFunc) (*IngestResult, error) {
	paths, err := ListPDFs(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no PDF files found in %s", dir)
	}

	result := &IngestResult{}
	for _, path := range paths {
		report := s.IngestDocument(ctx, path, progress)
		result.Documents = append(result.Documents, report)

		if report.Err != nil && errors.Is(report.Err, llm.ErrFatalAPI) {
			return result, fmt.Errorf("ingest %s: %w", report.File, report.Err)
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}
	return result, nil
}

// IngestDocument runs the full pipeline for one PDF: extract, chunk,
// embed, store. Chunks whose embedding fails after retries are skipped;
// the document fails only when no chunk could be embedded at all.
func (s *IngestService) IngestDocument(ctx context.Context, path string, progress ProgressFunc) DocumentReport {
	doc := models.NewDocument(path)
	report := DocumentReport{File: doc.Name, Year: doc.Year, State: StatePending}
	notify := func() {
		if progress != nil {
			progress(report)
		}
	}
	fail := func(err error) DocumentReport {
		report.State = StateFailed
		report.Err = err
		s.logger.Error("document ingestion failed", "file", doc.Name, "error", err)
		notify()
		return report
	}
	notify()

	report.State = StateExtracting
	notify()
	raw, err := s.extractText(path)
	if err != nil {
		return fail(err)
	}
	text := extract.Normalize(raw)
	if text == "" {
		return fail(fmt.Errorf("%s: %w", doc.Name, extract.ErrNoText))
	}

	report.State = StateChunking
	notify()
	chunks := chunker.Split(text, chunker.Config{
		MaxSize:    s.tunables.Chunking.MaxSize,
		Overlap:    s.tunables.Chunking.Overlap,
		Separators: s.tunables.Chunking.Separators,
	})
	if len(chunks) == 0 {
		return fail(fmt.Errorf("%s: %w", doc.Name, extract.ErrNoText))
	}
	report.ChunksTotal = len(chunks)
	s.logger.Info("chunked document", "file", doc.Name, "year", doc.Year, "chunks", len(chunks))

	report.State = StateEmbedding
	notify()
	records, err := s.embedChunks(ctx, doc, chunks, &report, notify)
	if err != nil {
		return fail(err)
	}
	if len(records) == 0 {
		return fail(fmt.Errorf("%s: no chunks could be embedded", doc.Name))
	}

	report.State = StateStoring
	notify()
	if err := s.storeRecords(ctx, records, &report, notify); err != nil {
		return fail(err)
	}
	if report.ChunksStored == 0 {
		return fail(fmt.Errorf("%s: no chunks could be stored", doc.Name))
	}

	// Upserts are keyed by chunk index, so a re-ingested letter that
	// shrank leaves records above the new count behind unless they are
	// removed here.
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	if err := s.store.DeleteStale(callCtx, doc.Name, report.ChunksTotal); err != nil {
		s.logger.Warn("failed to delete stale chunks", "file", doc.Name, "error", err)
	}
	cancel()

	report.State = StateDone
	s.logger.Info("document ingested",
		"file", doc.Name,
		"year", doc.Year,
		"embedded", report.ChunksEmbedded,
		"stored", report.ChunksStored,
	)
	notify()
	return report
}

// embedChunks embeds each chunk in order, pacing calls with the embed
// limiter. A chunk that still fails after the retry budget is dropped.
func (s *IngestService) embedChunks(ctx context.Context, doc models.Document, chunks []string, report *DocumentReport, notify func()) ([]models.ChunkRecord, error) {
	stem := doc.Stem()
	records := make([]models.ChunkRecord, 0, len(chunks))

	for i, content := range chunks {
		if err := s.embedLimiter.Wait(ctx); err != nil {
			return records, err
		}

		embedStart := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		vector, err := s.embedder.EmbedWithRetry(callCtx, content, s.tunables.Ingest.EmbedRetries)
		cancel()
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpEmbed, time.Since(embedStart))
		}
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) || ctx.Err() != nil {
				return records, err
			}
			s.logger.Warn("skipping chunk, embedding failed",
				"file", doc.Name, "chunk", i, "error", err)
			continue
		}

		records = append(records, models.NewChunkRecord(models.Chunk{
			Content: content,
			Source:  doc.Name,
			Year:    doc.Year,
			Index:   i,
		}, stem, vector))
		report.ChunksEmbedded++
		notify()
	}
	return records, nil
}

// storeRecords upserts records in batches of at most store.MaxBatchSize,
// pacing calls with the upsert limiter. A batch that fails is skipped.
func (s *IngestService) storeRecords(ctx context.Context, records []models.ChunkRecord, report *DocumentReport, notify func()) error {
	batchSize := s.tunables.Ingest.BatchSize
	if batchSize <= 0 || batchSize > store.MaxBatchSize {
		batchSize = store.MaxBatchSize
	}

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]

		if err := s.upsertLimiter.Wait(ctx); err != nil {
			return err
		}

		upsertStart := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, callTimeout)
		err := s.store.UpsertBatch(callCtx, batch)
		cancel()
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpUpsert, time.Since(upsertStart))
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("skipping batch, upsert failed",
				"from", start, "to", end, "error", err)
			continue
		}
		report.ChunksStored += len(batch)
		notify()
	}
	return nil
}
