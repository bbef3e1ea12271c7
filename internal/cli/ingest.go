package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lettervault/lettervault/internal/metrics"
	"github.com/lettervault/lettervault/internal/service"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Ingest shareholder letter PDFs into the vector index",
	Long: `Ingest every PDF in a directory: extract the text, split it into
overlapping chunks, embed each chunk and store it in the vector index.

Re-ingesting a letter overwrites its previous chunks, so the command is
safe to run repeatedly.

Examples:
  lettervault ingest
  lettervault ingest ./documents`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := cfg.DocumentsDir
	if len(args) > 0 {
		dir = args[0]
	}

	if err := initLLM(false); err != nil {
		return err
	}
	svc := service.NewIngestService(storeClient, embedder, cfg.Tunables, logger)
	collector := metrics.NewCollector()
	svc.SetMetrics(collector)

	ctx := cmd.Context()

	var result *service.IngestResult
	var err error
	if term.IsTerminal(int(os.Stdout.Fd())) {
		result, err = runIngestProgress(ctx, svc, dir)
	} else {
		result, err = svc.IngestDir(ctx, dir, func(r service.DocumentReport) {
			if r.State == service.StateDone || r.State == service.StateFailed {
				fmt.Printf("%s: %s (%d/%d chunks)\n", r.File, r.State, r.ChunksStored, r.ChunksTotal)
			}
		})
	}
	if result != nil {
		printIngestSummary(result)
	}
	if verbose {
		snap := collector.Snapshot()
		if op, ok := snap.Operations[metrics.OpEmbed]; ok {
			fmt.Printf("Embedding calls: %d, avg %.0fms\n", op.Count, op.AvgTimeMs)
		}
		if op, ok := snap.Operations[metrics.OpUpsert]; ok {
			fmt.Printf("Upsert batches: %d, avg %.0fms\n", op.Count, op.AvgTimeMs)
		}
	}
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if result != nil && result.Succeeded() == 0 {
		return fmt.Errorf("no documents ingested")
	}
	return nil
}

func printIngestSummary(result *service.IngestResult) {
	fmt.Printf("\nIngested %d of %d documents\n", result.Succeeded(), len(result.Documents))
	for _, d := range result.Documents {
		if d.State == service.StateFailed {
			fmt.Printf("  failed: %s: %v\n", d.File, d.Err)
		}
	}
}
