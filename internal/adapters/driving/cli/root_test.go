package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	settings  *MockSettingsService
	retriever *MockRetrieverService
	scorer    *MockConfidenceScorer
	answer    *MockAnswerService
	index     *MockIndexService
	eval      *MockEvaluationService
	evalSets  *MockEvalSetLoader
	watcher   *MockCorpusWatcher
}

var mocks testServices

// setupTestServices installs fresh mocks and resets every flag. The returned
// cleanup removes them again.
func setupTestServices() func() {
	mocks = testServices{
		settings:  newMockSettingsService(),
		retriever: &MockRetrieverService{},
		scorer:    &MockConfidenceScorer{},
		answer:    &MockAnswerService{},
		index:     &MockIndexService{},
		eval:      &MockEvaluationService{},
		evalSets:  &MockEvalSetLoader{},
		watcher:   &MockCorpusWatcher{},
	}
	SetServices(&Services{
		Settings:  mocks.settings,
		Retriever: mocks.retriever,
		Scorer:    mocks.scorer,
		Answer:    mocks.answer,
		Index:     mocks.index,
		Eval:      mocks.eval,
		EvalSets:  mocks.evalSets,
		Exporter:  &MockExporter{},
		Watcher:   mocks.watcher,
	})
	resetFlags(rootCmd)

	return func() {
		SetServices(&Services{})
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores every flag to its default. Cobra keeps parsed values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// executeCommand runs the root command with args and returns the combined output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "medrag", rootCmd.Use)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	v := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, v)
	assert.Equal(t, "v", v.Shorthand)

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{
		"index", "search", "ask", "score", "eval", "serve", "mcp", "chat", "token", "settings", "log", "version",
	} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRequirementOf(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		want Requirement
	}{
		{versionCmd, RequireNone},
		{settingsSetCmd, RequireSettings},
		{tokenCmd, RequireSettings},
		{logCmd, RequireStorage},
		{indexCmd, RequireRetrieval},
		{searchCmd, RequireRetrieval},
		{chatCmd, RequireRetrieval},
		{serveCmd, RequireRetrieval},
		{askCmd, RequireAnswer},
	}

	for _, tt := range tests {
		t.Run(tt.cmd.Name(), func(t *testing.T) {
			assert.Equal(t, tt.want, requirementOf(tt.cmd))
		})
	}
}

func TestBootstrap_WiresServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	answer := &MockAnswerService{}
	closed := false
	var got BootstrapOptions
	SetBootstrapper(func(_ context.Context, opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Answer: answer, Close: func() { closed = true }}, nil
	})
	defer SetBootstrapper(nil)

	_, err := executeCommand("log", "--config-dir", "/tmp/medrag-test")

	require.NoError(t, err)
	assert.Equal(t, RequireStorage, got.Require)
	assert.Equal(t, "/tmp/medrag-test", got.ConfigDir)
	assert.False(t, got.Ephemeral)
	assert.Equal(t, 20, answer.GotLimit)
	assert.True(t, closed)
}

func TestBootstrap_Ephemeral(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	index := &MockIndexService{}
	var got BootstrapOptions
	SetBootstrapper(func(_ context.Context, opts BootstrapOptions) (*Services, error) {
		got = opts
		return &Services{Index: index}, nil
	})
	defer SetBootstrapper(nil)

	_, err := executeCommand("index", "--ephemeral")

	require.NoError(t, err)
	assert.Equal(t, RequireRetrieval, got.Require)
	assert.True(t, got.Ephemeral)
	assert.Equal(t, 1, index.Builds)
}

func TestBootstrap_SkippedForVersion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	called := false
	SetBootstrapper(func(_ context.Context, _ BootstrapOptions) (*Services, error) {
		called = true
		return &Services{}, nil
	})
	defer SetBootstrapper(nil)

	_, err := executeCommand("version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestBootstrap_Error(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	SetBootstrapper(func(_ context.Context, _ BootstrapOptions) (*Services, error) {
		return nil, errors.New("embedding provider unreachable")
	})
	defer SetBootstrapper(nil)

	_, err := executeCommand("search", "tacrolimus")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising: embedding provider unreachable")
	assert.Empty(t, mocks.retriever.GotQuery)
}
