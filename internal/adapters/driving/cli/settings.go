package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure paths, chunking, retrieval, AI providers and the API server.

Settings are stored in config.toml in the configuration directory. Use
'settings set' for single values or the subcommands to configure providers.`,
	Annotations: requires("settings"),
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: requires("settings"),
	RunE:        runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by its dotted key, for example:

  medrag settings set retrieval.hybrid true
  medrag settings set scoring.confidence_threshold 0.6
  medrag settings set server.users alice:secret:admin,bob:secret

Run 'medrag settings keys' for the full list.`,
	Args:        cobra.ExactArgs(2),
	Annotations: requires("settings"),
	RunE:        runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List recognised setting keys",
	Annotations: requires("settings"),
	RunE:        runSettingsKeys,
}

var settingsWizardCmd = &cobra.Command{
	Use:         "wizard",
	Short:       "Interactive setup wizard",
	Long:        `Run an interactive wizard to choose the answer mode and both AI providers.`,
	Annotations: requires("settings"),
	RunE:        runSettingsWizard,
}

var settingsModeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Set the default answer mode",
	Long: `Set the answer mode used when a question does not name one.

Available modes:
  brief     - 2-3 sentences
  clinical  - bullet points with key criteria
  detailed  - mechanisms, implications and variations`,
	Annotations: requires("settings"),
	RunE:        runSettingsMode,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:         "embedding",
	Short:       "Configure embedding provider",
	Long:        `Configure the embedding provider used to index and query the corpus.`,
	Annotations: requires("settings"),
	RunE:        runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:         "llm",
	Short:       "Configure LLM provider",
	Long:        `Configure the LLM provider that writes answers.`,
	Annotations: requires("settings"),
	RunE:        runSettingsLLM,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsModeCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	rootCmd.AddCommand(settingsCmd)
}

//nolint:gocyclo // one section per settings group
func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Paths]")
	cmd.Printf("  Corpus: %s\n", settings.Paths.CorpusDir)
	cmd.Printf("  Data: %s\n", valueOr(settings.Paths.DataDir, "(config directory)"))
	cmd.Printf("  Artifacts: %s\n", valueOr(settings.Paths.ArtifactsDir, "(off)"))
	cmd.Println()

	cmd.Println("[Chunking]")
	c := settings.Chunking
	cmd.Printf("  Tokens: target %d, min %d, max %d, overlap %d\n",
		c.TargetTokens, c.MinTokens, c.MaxTokens, c.OverlapTokens)
	cmd.Printf("  Respect sections: %s\n", yesNo(c.RespectSections))
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskSecret(settings.Embedding.APIKey))
	}
	cmd.Printf("  Batch size: %d, max sequence %d words, normalise %s\n",
		settings.Embedding.BatchSize, settings.Embedding.MaxSeqLength, yesNo(settings.Embedding.Normalize))
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[Retrieval]")
	r := settings.Retrieval
	cmd.Printf("  Collection: %s\n", settings.Index.Collection)
	cmd.Printf("  Top K: %d, context budget %d tokens, dedup threshold %.2f\n",
		r.TopK, r.ContextBudget, r.DedupThreshold)
	if r.Hybrid {
		cmd.Printf("  Hybrid: yes (vector %.2f, keyword %.2f, rrf_k %d)\n", r.VectorWeight, r.KeywordWeight, r.RRFK)
	} else {
		cmd.Println("  Hybrid: no")
	}
	cmd.Printf("  Confidence threshold: %.2f\n", settings.Scoring.ConfidenceThreshold)
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	if settings.LLM.Provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskSecret(settings.LLM.APIKey))
	}
	cmd.Printf("  Max tokens: %d, temperature %.2f\n", settings.LLM.MaxTokens, settings.LLM.Temperature)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Answer]")
	cmd.Printf("  Mode: %s, top K %d\n", settings.Answer.Mode, settings.Answer.TopK)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)
	cmd.Printf("  JWT secret: %s\n", maskSecret(settings.Server.JWTSecret))
	cmd.Printf("  Users: %d, token TTL %s\n", len(settings.Server.Users), settings.Server.TokenTTL)
	cmd.Printf("  Rate limit: %.1f/s, burst %d\n", settings.Server.RateLimit, settings.Server.RateBurst)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'medrag settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if isSecretKey(key) {
		shown = maskSecret(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("medrag Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Select Answer Mode")
	cmd.Println("--------------------------")
	if err := chooseAnswerMode(cmd, reader, 2); err != nil {
		return err
	}
	cmd.Println()

	cmd.Println("Step 2: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 3: Configure LLM Provider")
	cmd.Println("------------------------------")
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsMode(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return chooseAnswerMode(cmd, reader, 0)
}

// chooseAnswerMode prompts for a mode. A defaultChoice of 0 makes an empty
// or invalid answer an error.
func chooseAnswerMode(cmd *cobra.Command, reader *bufio.Reader, defaultChoice int) error {
	modes := domain.AllAnswerModes()
	for i, mode := range modes {
		cmd.Printf("  %d. %s\n", i+1, mode)
	}
	if defaultChoice > 0 {
		cmd.Printf("\nEnter choice [%d]: ", defaultChoice)
	} else {
		cmd.Print("\nEnter choice: ")
	}
	idx := parseChoice(readLine(reader), len(modes), defaultChoice)
	if idx == 0 {
		return errors.New("invalid selection")
	}

	selected := modes[idx-1]
	if err := settingsService.Set("answer.mode", selected.String()); err != nil {
		return fmt.Errorf("failed to set answer mode: %w", err)
	}
	cmd.Printf("Answer mode set to: %s\n", selected)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

// providerStep describes one provider prompt. Embedding and LLM providers
// are chosen the same way and differ only in the lists and setters used.
type providerStep struct {
	kind      string
	providers []domain.AIProvider
	defaults  map[domain.AIProvider]string
	save      func(p domain.AIProvider, model, apiKey string) error
	validate  func(ctx context.Context) error
	after     string
}

func embeddingStep() providerStep {
	return providerStep{
		kind:      "embedding",
		providers: domain.AllEmbeddingProviders(),
		defaults:  domain.DefaultEmbeddingModels(),
		save:      settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
		after:     "Rebuild the index with 'medrag index' after changing the embedding model.",
	}
}

func llmStep() providerStep {
	return providerStep{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		defaults:  domain.DefaultLLMModels(),
		save:      settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	}
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, embeddingStep())
}

func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	return configureProvider(cmd, reader, llmStep())
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, step providerStep) error {
	title := strings.ToUpper(step.kind[:1]) + step.kind[1:]
	cmd.Printf("Select %s Provider\n", title)
	for i, p := range step.providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	provider := step.providers[parseChoice(readLine(reader), len(step.providers), 1)-1]

	model := step.defaults[provider]
	cmd.Printf("Enter model name [%s]: ", model)
	if typed := readLine(reader); typed != "" {
		model = typed
	}

	var apiKey string
	if provider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = promptPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := step.save(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", step.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := step.validate(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", step.kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", title, provider.Description(), model)
	if step.after != "" {
		cmd.Println(step.after)
	}
	cmd.Println()
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key") || key == "server.jwt_secret" || key == "server.users"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
