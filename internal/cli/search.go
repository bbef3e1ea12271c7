package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lettervault/lettervault/internal/service"
)

var (
	searchTopK     int
	searchYear     int
	searchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the letters without LLM synthesis",
	Long: `Run a one-shot semantic search and print the matching passages with
their scores. Useful for inspecting what the chat agent would retrieve.

Examples:
  lettervault search "insurance float"
  lettervault search "market crash" --year 2008
  lettervault search "acquisitions" -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "number of results (default from config)")
	searchCmd.Flags().IntVar(&searchYear, "year", 0, "restrict results to one letter year")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "override the similarity threshold")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := initLLM(false); err != nil {
		return err
	}

	opts := service.SearchOptions{
		Query:    args[0],
		TopK:     searchTopK,
		MinScore: searchMinScore,
	}
	if searchYear != 0 {
		opts.Year = &searchYear
	}

	response, err := newSearchService().Search(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if response.TotalResults == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", response.TotalResults)
	for i, r := range response.Results {
		fmt.Printf("%d. %s (%d) score=%.3f\n", i+1, r.Source, r.Year, r.Score)
		fmt.Printf("   %s\n\n", r.Content)
	}
	return nil
}
