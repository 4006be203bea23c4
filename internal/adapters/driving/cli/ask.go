package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var (
	askStream    bool
	askMode      string
	askTopK      int
	askThreshold float64
	askHTML      string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a clinical question from the guidelines",
	Long: `Retrieves evidence for the question, scores confidence and, when the
evidence is strong enough, generates a cited answer with the configured LLM.

When confidence falls below the threshold no answer is generated and the
command reports insufficient evidence instead.

Answer modes:
  brief     - 2-3 sentences
  clinical  - bullet points with key criteria (default)
  detailed  - mechanisms, implications and variations`,
	Args:        cobra.ExactArgs(1),
	Annotations: requires("answer"),
	RunE:        runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "print the answer as it is generated")
	askCmd.Flags().StringVarP(&askMode, "mode", "m", "", "answer mode: brief, clinical or detailed")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "chunks to retrieve (default answer.top_k)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "confidence threshold (default scoring.confidence_threshold)")
	askCmd.Flags().StringVar(&askHTML, "html", "", "also write the answer as an HTML file")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}

	req, err := askRequest(cmd, args[0])
	if err != nil {
		return err
	}

	var answer *domain.Answer
	if askStream && !askJSON {
		answer, err = streamAnswer(cmd.Context(), cmd, req)
	} else {
		answer, err = answerService.Answer(cmd.Context(), req)
		if err == nil {
			err = outputAnswer(cmd, answer)
		}
	}
	if err != nil {
		return err
	}

	if askHTML != "" {
		if err := exportAnswer(askHTML, answer); err != nil {
			return err
		}
		cmd.Printf("Wrote %s\n", askHTML)
	}
	return nil
}

func askRequest(cmd *cobra.Command, query string) (domain.AnswerRequest, error) {
	req := domain.AnswerRequest{
		Query: query,
		TopK:  askTopK,
		Mode:  domain.AnswerMode(askMode),
	}
	if askMode != "" && !req.Mode.IsValid() {
		return req, fmt.Errorf("%w: unknown mode %q (use brief, clinical or detailed)", domain.ErrInvalidInput, askMode)
	}
	if cmd.Flags().Changed("threshold") {
		if askThreshold < 0 || askThreshold > 1 {
			return req, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidInput)
		}
		threshold := askThreshold
		req.Threshold = &threshold
	}
	return req, nil
}

// streamAnswer prints tokens as they arrive and returns the final answer.
func streamAnswer(ctx context.Context, cmd *cobra.Command, req domain.AnswerRequest) (*domain.Answer, error) {
	events, err := answerService.AnswerStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("answer failed: %w", err)
	}

	for ev := range events {
		switch ev.Type {
		case domain.AnswerEventMetadata:
			if ev.Answer != nil {
				printConfidence(cmd, ev.Answer)
				cmd.Println()
			}
		case domain.AnswerEventToken:
			cmd.Print(ev.Content)
		case domain.AnswerEventDone:
			answer := ev.Answer
			if answer == nil {
				answer = &domain.Answer{Query: req.Query}
			}
			if answer.Gated {
				cmd.Println(gatedText(answer, ev.Message))
			} else {
				cmd.Println()
			}
			cmd.Println()
			printSources(cmd, answer)
			printTimings(cmd, answer)
			return answer, nil
		case domain.AnswerEventError:
			cmd.Println()
			return nil, fmt.Errorf("answer failed: %s", ev.Message)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("answer stream ended before completion")
}

func gatedText(a *domain.Answer, message string) string {
	if a.Text != "" {
		return a.Text
	}
	return message
}

func outputAnswer(cmd *cobra.Command, a *domain.Answer) error {
	if askJSON {
		return printJSON(cmd, a)
	}

	printConfidence(cmd, a)
	cmd.Println()
	cmd.Println(a.Text)
	cmd.Println()
	printSources(cmd, a)
	printTimings(cmd, a)
	return nil
}

func printConfidence(cmd *cobra.Command, a *domain.Answer) {
	line := fmt.Sprintf("Confidence: %s (%.2f)", a.Confidence, a.Score)
	if a.Gated {
		line += " - insufficient evidence, no answer generated"
	}
	cmd.Println(line)
}

func printSources(cmd *cobra.Command, a *domain.Answer) {
	if len(a.Sources) == 0 {
		return
	}
	cmd.Println("Sources:")
	for i, s := range a.Sources {
		cmd.Printf("  [%d] %s › %s (%.2f)\n", i+1, s.Document, s.Section, s.Similarity)
	}
	cmd.Println()
}

func printTimings(cmd *cobra.Command, a *domain.Answer) {
	parts := []string{fmt.Sprintf("%d chunks", a.ChunksUsed)}
	if a.Model != "" && !a.Gated {
		parts = append(parts, a.Model)
	}
	parts = append(parts,
		"retrieval "+a.RetrievalTime.Round(time.Millisecond).String(),
		"generation "+a.GenerationTime.Round(time.Millisecond).String(),
		"total "+a.TotalTime.Round(time.Millisecond).String(),
	)
	cmd.Println(strings.Join(parts, " | "))
}

func exportAnswer(path string, a *domain.Answer) (err error) {
	if answerExporter == nil {
		return errors.New("answer exporter not configured")
	}
	if a == nil {
		return errors.New("no answer to export")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := answerExporter.Export(f, a); err != nil {
		return fmt.Errorf("failed to export answer: %w", err)
	}
	return nil
}

var (
	scoreLimit int
	scoreJSON  bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [query]",
	Short: "Show retrieval confidence for a query",
	Long: `Retrieves chunks for the query and reports the confidence label and score
that gate answer generation, without calling the LLM.`,
	Args:        cobra.ExactArgs(1),
	Annotations: requires("retrieval"),
	RunE:        runScore,
}

func init() {
	scoreCmd.Flags().IntVarP(&scoreLimit, "limit", "n", 0, "chunks to retrieve (default retrieval.top_k)")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(scoreCmd)
}

// ScoreReport is the output of the score command.
type ScoreReport struct {
	Query      string                 `json:"query"`
	Confidence domain.ConfidenceLabel `json:"confidence"`
	Score      float64                `json:"confidence_score"`
	Threshold  float64                `json:"threshold"`
	Gated      bool                   `json:"gated"`
	Chunks     int                    `json:"chunks"`
}

func runScore(cmd *cobra.Command, args []string) error {
	if retrieverService == nil {
		return errors.New("retriever service not configured")
	}
	if confidenceScorer == nil {
		return errors.New("confidence scorer not configured")
	}

	result, err := retrieverService.Retrieve(cmd.Context(), args[0], domain.RetrieveOptions{TopK: scoreLimit})
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	conf := confidenceScorer.ScoreConfidence(result.Chunks)

	report := ScoreReport{
		Query:      args[0],
		Confidence: conf.Label,
		Score:      conf.Score,
		Threshold:  confidenceScorer.Threshold(),
		Gated:      confidenceScorer.Gate(conf),
		Chunks:     len(result.Chunks),
	}
	if scoreJSON {
		return printJSON(cmd, report)
	}

	cmd.Printf("Confidence: %s (%.2f)\n", report.Confidence, report.Score)
	cmd.Printf("Threshold:  %.2f\n", report.Threshold)
	if report.Gated {
		cmd.Println("Gated:      yes, an answer would be withheld")
	} else {
		cmd.Println("Gated:      no")
	}
	cmd.Printf("Chunks:     %d\n", report.Chunks)
	return nil
}
