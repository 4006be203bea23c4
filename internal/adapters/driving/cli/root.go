// Package cli implements the medrag command line interface using cobra.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/ports/driving"
	"github.com/custodia-labs/medrag/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Requirement is how much of the application a command needs wired.
type Requirement int

const (
	// RequireNone needs nothing beyond flag parsing.
	RequireNone Requirement = iota
	// RequireSettings needs the settings service only.
	RequireSettings
	// RequireStorage adds the persistent stores but no AI providers.
	RequireStorage
	// RequireRetrieval adds the embedding provider. The LLM is optional.
	RequireRetrieval
	// RequireAnswer makes an unavailable LLM fatal.
	RequireAnswer
)

// requiresAnnotation is the cobra annotation holding a command's Requirement.
const requiresAnnotation = "medrag/requires"

var requirementNames = map[string]Requirement{
	"none":      RequireNone,
	"settings":  RequireSettings,
	"storage":   RequireStorage,
	"retrieval": RequireRetrieval,
	"answer":    RequireAnswer,
}

// requires builds the annotation map for a command.
func requires(name string) map[string]string {
	return map[string]string{requiresAnnotation: name}
}

func requirementOf(cmd *cobra.Command) Requirement {
	return requirementNames[cmd.Annotations[requiresAnnotation]]
}

// BootstrapOptions tells the bootstrapper what to build.
type BootstrapOptions struct {
	// ConfigDir overrides ~/.medrag.
	ConfigDir string

	Require Requirement

	// Ephemeral keeps every store in memory for this run.
	Ephemeral bool
}

// Services is the wired application handed to the commands.
type Services struct {
	Settings  driving.SettingsService
	Retriever driving.RetrieverService
	Scorer    driving.ConfidenceScorer
	Answer    driving.AnswerService
	Index     driving.IndexService
	Eval      driving.EvaluationService

	EvalSets driven.EvalSetLoader
	Exporter driven.AnswerExporter
	Watcher  driven.CorpusWatcher

	// Close releases stores and provider clients.
	Close func()
}

// Bootstrapper builds Services for a command.
type Bootstrapper func(ctx context.Context, opts BootstrapOptions) (*Services, error)

var bootstrapper Bootstrapper

// closeServices is the Close of the current bootstrap, if any.
var closeServices func()

// Services used by the commands.
var (
	settingsService  driving.SettingsService
	retrieverService driving.RetrieverService
	confidenceScorer driving.ConfidenceScorer
	answerService    driving.AnswerService
	indexService     driving.IndexService
	evalService      driving.EvaluationService
	evalSetLoader    driven.EvalSetLoader
	answerExporter   driven.AnswerExporter
	corpusWatcher    driven.CorpusWatcher
)

// Global flags.
var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "medrag",
	Short: "Retrieval-augmented answers over transplant guidelines",
	Long: `medrag indexes a corpus of transplant medicine guidelines and answers
clinical questions with citations, withholding answers when the retrieved
evidence is too weak.

Get started:
  medrag settings                 Show the configuration
  medrag index                    Build the vector index from the corpus
  medrag ask "What are the CMV prophylaxis options?"
  medrag chat                     Interactive terminal UI`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.medrag)")
}

// SetBootstrapper installs the function that wires services before each command.
func SetBootstrapper(b Bootstrapper) {
	bootstrapper = b
}

// SetServices assigns the services used by the commands.
func SetServices(s *Services) {
	settingsService = s.Settings
	retrieverService = s.Retriever
	confidenceScorer = s.Scorer
	answerService = s.Answer
	indexService = s.Index
	evalService = s.Eval
	evalSetLoader = s.EvalSets
	answerExporter = s.Exporter
	corpusWatcher = s.Watcher
	closeServices = s.Close
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	require := requirementOf(cmd)
	if bootstrapper == nil || require == RequireNone {
		return nil
	}

	svc, err := bootstrapper(cmd.Context(), BootstrapOptions{
		ConfigDir: configDir,
		Require:   require,
		Ephemeral: indexEphemeral,
	})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(svc)
	return nil
}

func closeAll() {
	if closeServices != nil {
		closeServices()
		closeServices = nil
	}
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	defer closeAll()
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}
