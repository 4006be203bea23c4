package cli

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui/components/list"
)

const evalQuestionWidth = 48

var (
	evalK    int
	evalJSON bool
)

var evalCmd = &cobra.Command{
	Use:   "eval [dataset.yaml]",
	Short: "Evaluate retrieval quality against a labelled dataset",
	Long: `Runs every question in a YAML dataset through retrieval and compares the
retrieved documents with the expected ones.

Dataset format:
  - question: "What is the tacrolimus trough target?"
    relevant_docs: ["kidney_immunosuppression"]
    category: immunosuppression

Reports precision@k, recall@k and MRR per question, their means, latency
percentiles and the mean MRR per category.`,
	Args:        cobra.ExactArgs(1),
	Annotations: requires("retrieval"),
	RunE:        runEval,
}

func init() {
	evalCmd.Flags().IntVarP(&evalK, "k", "k", 5, "cutoff for precision and recall")
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	if evalService == nil {
		return errors.New("evaluation service not configured")
	}
	if evalSetLoader == nil {
		return errors.New("dataset loader not configured")
	}

	cases, err := evalSetLoader.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	report, err := evalService.Evaluate(cmd.Context(), cases, evalK)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if evalJSON {
		return printJSON(cmd, report)
	}

	cmd.Printf("%-*s  %5s  %5s  %5s  %8s\n", evalQuestionWidth, "Question", "P@k", "R@k", "MRR", "Latency")
	for _, r := range report.Results {
		question := list.Truncate(r.Case.Question, evalQuestionWidth)
		if r.Error != "" {
			cmd.Printf("%-*s  error: %s\n", evalQuestionWidth, question, r.Error)
			continue
		}
		cmd.Printf("%-*s  %5.2f  %5.2f  %5.2f  %8s\n", evalQuestionWidth, question,
			r.PrecisionAtK, r.RecallAtK, r.MRR, r.Latency.Round(time.Millisecond))
	}
	cmd.Println()

	cmd.Printf("Questions:      %d (%d failed)\n", len(report.Results), report.Failed)
	cmd.Printf("Precision@%d:    %.3f\n", report.K, report.MeanPrecisionAtK)
	cmd.Printf("Recall@%d:       %.3f\n", report.K, report.MeanRecallAtK)
	cmd.Printf("MRR:            %.3f\n", report.MeanMRR)
	cmd.Printf("Latency p50:    %s\n", report.LatencyP50.Round(time.Millisecond))
	cmd.Printf("Latency p95:    %s\n", report.LatencyP95.Round(time.Millisecond))

	if len(report.ByCategory) > 0 {
		cmd.Println()
		cmd.Println("MRR by category:")
		categories := make([]string, 0, len(report.ByCategory))
		for c := range report.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			cmd.Printf("  %-24s %.3f\n", c, report.ByCategory[c])
		}
	}
	return nil
}
