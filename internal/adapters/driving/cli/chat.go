package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/medrag/internal/logger"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for medrag.

Ask questions and watch answers stream in, with the confidence label and the
cited sources alongside. Earlier questions can be browsed and asked again.

Controls:
  Enter       - Ask / Select
  Tab         - Cycle answer mode
  ↑/↓         - Recall earlier questions
  Ctrl+S      - Show or hide sources
  Esc         - Cancel answer / Back
  ?           - Help (from the menu)
  Ctrl+C      - Quit`,
	Args:        cobra.NoArgs,
	Annotations: requires("retrieval"),
	RunE:        runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if answerService == nil {
		return errors.New("answer service not configured")
	}

	app, err := tui.NewApp(tui.NewPorts(answerService, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	// Log lines would corrupt the alt screen.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
