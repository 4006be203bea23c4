package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driven/corpus/filesystem"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/logger"
)

var (
	indexWatch     bool
	indexValidate  bool
	indexStats     bool
	indexEphemeral bool
	indexJSON      bool
)

// watchDebounce is how long the corpus must be quiet before a rebuild.
var watchDebounce = filesystem.DefaultDebounce

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the corpus",
	Long: `Loads every markdown document in the corpus directory, splits it into
section-aware chunks, embeds them and stores them in a new collection
generation. The collection alias moves to the new generation only once every
chunk is stored, so a failed build leaves the previous index serving.

--stats and --validate inspect the existing index without rebuilding.
With --ephemeral the index is built in memory and discarded on exit, which
is useful together with --validate to check a corpus.
--watch rebuilds whenever the corpus changes.`,
	Args:        cobra.NoArgs,
	Annotations: requires("retrieval"),
	RunE:        runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexWatch, "watch", false, "rebuild when the corpus changes")
	indexCmd.Flags().BoolVar(&indexValidate, "validate", false, "run a sample retrieval against the index")
	indexCmd.Flags().BoolVar(&indexStats, "stats", false, "show statistics of the last build")
	indexCmd.Flags().BoolVar(&indexEphemeral, "ephemeral", false, "build in memory without persisting")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}
	ctx := cmd.Context()

	inspectOnly := (indexStats || indexValidate) && !indexEphemeral && !indexWatch
	if inspectOnly {
		if indexStats {
			if err := showStats(ctx, cmd); err != nil {
				return err
			}
		}
		if indexValidate {
			return runValidate(ctx, cmd)
		}
		return nil
	}

	if err := runBuild(ctx, cmd); err != nil {
		return err
	}
	if indexValidate {
		if err := runValidate(ctx, cmd); err != nil {
			return err
		}
	}
	if indexWatch {
		return watchCorpus(ctx, cmd)
	}
	return nil
}

func runBuild(ctx context.Context, cmd *cobra.Command) error {
	report, err := indexService.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, report)
	}
	cmd.Println("Index built.")
	cmd.Println()
	printBuildReport(cmd, report)
	return nil
}

func showStats(ctx context.Context, cmd *cobra.Command) error {
	report, err := indexService.Stats(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			cmd.Println("No index has been built yet. Run 'medrag index'.")
			return nil
		}
		return fmt.Errorf("failed to get stats: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, report)
	}
	printBuildReport(cmd, report)
	return nil
}

func runValidate(ctx context.Context, cmd *cobra.Command) error {
	report, err := indexService.Validate(ctx)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if indexJSON {
		return printJSON(cmd, report)
	}

	cmd.Println("Validation")
	cmd.Println("==========")
	cmd.Printf("  Collection:   %s\n", report.Collection)
	cmd.Printf("  Chunks:       %d\n", report.Chunks)
	cmd.Printf("  Sample query: %s\n", report.SampleQuery)
	cmd.Printf("  Sample hits:  %d\n", report.SampleHits)
	if report.SamplePreview != "" {
		cmd.Printf("  Top hit:      %s\n", report.SamplePreview)
	}
	if report.SampleHits == 0 {
		return errors.New("sample query returned no chunks")
	}
	return nil
}

// watchCorpus rebuilds after each settled burst of corpus changes until the
// command context is cancelled.
func watchCorpus(ctx context.Context, cmd *cobra.Command) error {
	if corpusWatcher == nil {
		return errors.New("corpus watcher not configured")
	}
	changes, err := corpusWatcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch corpus: %w", err)
	}

	cmd.Println("Watching corpus for changes. Press Ctrl+C to stop.")
	filesystem.Debounce(ctx, changes, watchDebounce, func(batch []domain.CorpusChange) {
		for _, c := range batch {
			logger.Debug("Corpus %s: %s", c.Type, c.Path)
		}
		cmd.Printf("%d change(s) detected, rebuilding...\n", len(batch))
		if err := runBuild(ctx, cmd); err != nil {
			// Keep watching; the previous generation still serves.
			cmd.PrintErrf("Rebuild failed: %v\n", err)
		}
	})
	return nil
}

func printBuildReport(cmd *cobra.Command, r *domain.BuildReport) {
	cmd.Printf("  Build:       %s\n", r.ID)
	cmd.Printf("  Collection:  %s\n", r.Collection)
	cmd.Printf("  Built:       %s (%s)\n", r.StartedAt.Local().Format(time.DateTime), r.Elapsed.Round(time.Millisecond))
	cmd.Printf("  Documents:   %d\n", r.Documents)
	cmd.Printf("  Chunks:      %d\n", r.Chunks)
	cmd.Printf("  Tokens:      %d (%d words)\n", r.TotalTokens, r.TotalWords)
	cmd.Printf("  Chunk size:  avg %.1f, median %.1f, min %d, max %d\n",
		r.AvgChunkTokens, r.MedianChunkTokens, r.MinChunkTokens, r.MaxChunkTokens)
	if len(r.TopicCounts) > 0 {
		cmd.Printf("  Topics:      %s\n", formatCounts(r.TopicCounts))
	}
	if len(r.TierCounts) > 0 {
		cmd.Printf("  Tiers:       %s\n", formatCounts(r.TierCounts))
	}
}

// formatCounts renders a count map as "a=1, b=2" sorted by key.
func formatCounts(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
