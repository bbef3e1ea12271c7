// Package cli provides the command-line interface for lettervault.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lettervault/lettervault/internal/config"
	"github.com/lettervault/lettervault/internal/llm"
	"github.com/lettervault/lettervault/internal/service"
	"github.com/lettervault/lettervault/internal/store"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	verbose bool

	// Global config, logger and store client, set up in PersistentPreRunE.
	cfg         config.Config
	logger      *slog.Logger
	logCleanup  func() error
	storeClient *store.Client

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lettervault",
	Short: "Question answering over Berkshire Hathaway shareholder letters",
	Long: `Lettervault ingests Berkshire Hathaway shareholder letter PDFs into a
vector index and answers questions about them with an LLM grounded in
the retrieved passages.

Typical flow:
  lettervault ingest ./documents
  lettervault chat`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that never touch the index
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = slog.LevelDebug
		}

		logger, logCleanup = config.SetupLogger(cfg.LogFile, cfg.LogLevel)

		ctx := context.Background()
		storeClient, err = store.NewClient(ctx, store.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Index:     cfg.Index,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to vector index: %w", err)
		}

		if err := storeClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if storeClient != nil {
			if err := storeClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close index connection: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// initLLM lazily creates the embedder, and the chat model when
// requireModel is set. Commands that only embed skip the model.
func initLLM(requireModel bool) error {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
	}
	if requireModel && model == nil {
		var err error
		model, err = llm.NewModel(cfg)
		if err != nil {
			return fmt.Errorf("init model: %w", err)
		}
	}
	return nil
}

func newSearchService() *service.SearchService {
	return service.NewSearchService(storeClient, embedder, cfg.Tunables, logger)
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(mcpCmd)
}
