package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var (
	logLimit int
	logJSON  bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recently answered questions",
	Long: `Prints the query audit log, newest first: when each question was asked,
its confidence, how many chunks were used, how long it took, and whether the
answer was gated or failed.`,
	Args:        cobra.NoArgs,
	Annotations: requires("storage"),
	RunE:        runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "number of entries")
	logCmd.Flags().BoolVar(&logJSON, "json", false, "output entries as JSON")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return errors.New("answer service not configured")
	}
	if logLimit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", domain.ErrInvalidInput)
	}

	entries, err := answerService.RecentQueries(cmd.Context(), logLimit)
	if err != nil {
		return fmt.Errorf("failed to read query log: %w", err)
	}

	if logJSON {
		return printJSON(cmd, entries)
	}

	if len(entries) == 0 {
		cmd.Println("No questions yet.")
		return nil
	}

	for i := range entries {
		e := &entries[i]
		status := ""
		switch {
		case e.Error != "":
			status = " [error: " + e.Error + "]"
		case e.Gated:
			status = " [gated]"
		}
		mode := ""
		if e.Streamed {
			mode = " stream"
		}
		cmd.Printf("%s  %-6s %.2f  %2d chunks  %8s%s%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Confidence, e.Score, e.ChunksUsed,
			e.TotalTime.Round(time.Millisecond), mode, status)
		cmd.Printf("    %s\n", e.Query)
	}
	return nil
}
