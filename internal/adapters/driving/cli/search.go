package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/services"
)

// searchPreviewRunes is the length of the text shown under each result.
const searchPreviewRunes = 160

var (
	searchLimit  int
	searchHybrid bool
	searchTopic  string
	searchTier   string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Retrieve guideline chunks for a query",
	Long: `Retrieves the chunks most similar to the query without generating an answer.

Results are deduplicated and trimmed to the context budget, exactly as they
would be passed to the answer model. --hybrid fuses keyword (BM25) ranking
with semantic (vector) ranking, which helps with exact drug names.`,
	Args:        cobra.ExactArgs(1),
	Annotations: requires("retrieval"),
	RunE:        runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of chunks (default retrieval.top_k)")
	searchCmd.Flags().BoolVar(&searchHybrid, "hybrid", false, "fuse keyword and vector ranking")
	searchCmd.Flags().StringVar(&searchTopic, "topic", "", "only chunks with this topic")
	searchCmd.Flags().StringVar(&searchTier, "tier", "", "only chunks with this evidence tier")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// retrieveOptions builds options from the shared retrieval flags. Hybrid is
// only set when the flag was given so the configured default applies.
func retrieveOptions(cmd *cobra.Command, limit int) domain.RetrieveOptions {
	opts := domain.RetrieveOptions{
		TopK:    limit,
		Filters: domain.Filters{Topic: searchTopic, Tier: searchTier},
	}
	if f := cmd.Flags().Lookup("hybrid"); f != nil && f.Changed {
		hybrid := searchHybrid
		opts.Hybrid = &hybrid
	}
	return opts
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrieverService == nil {
		return errors.New("retriever service not configured")
	}

	result, err := retrieverService.Retrieve(cmd.Context(), query, retrieveOptions(cmd, searchLimit))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, result)
	}

	return outputSearchTable(cmd, result)
}

func outputSearchTable(cmd *cobra.Command, result *domain.RetrievalResult) error {
	if result.IsEmpty() {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range result.Chunks {
		c := &result.Chunks[i]

		// Format: [N] Document › Section (similarity)
		cmd.Printf("  [%d] %s › %s (%.2f)\n", c.Rank, c.DocTitle, c.SectionTitle, c.Similarity)
		cmd.Printf("      %s | %s | %d tokens\n", valueOr(c.Topic, "unknown"), valueOr(c.Tier, "unknown"), c.TokenCount)
		cmd.Printf("      %s\n", services.Preview(c.Text, searchPreviewRunes))
		cmd.Println()
	}
	cmd.Printf("%d chunks, %d tokens, %s\n", len(result.Chunks), result.TotalTokens, result.Elapsed.Round(time.Millisecond))

	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
