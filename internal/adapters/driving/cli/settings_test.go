package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

func TestSettingsCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range settingsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"show", "set", "keys", "wizard", "mode", "embedding", "llm"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSettingsShow(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.Settings.Server.JWTSecret = "supersecretvalue123"

	out, err := executeCommand("settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Paths]")
	assert.Contains(t, out, "Corpus: ./data/raw_docs")
	assert.Contains(t, out, "Data: (config directory)")
	assert.Contains(t, out, "Artifacts: (off)")
	assert.Contains(t, out, "Collection: medical_kb")
	assert.Contains(t, out, "Hybrid: no")
	assert.Contains(t, out, "JWT secret: supe...e123")
	assert.NotContains(t, out, "supersecretvalue123")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_IsDefault(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("settings")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
}

func TestSettingsShow_ValidationWarning(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.ValidateErr = errors.New("LLM model is required")

	out, err := executeCommand("settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: LLM model is required")
	assert.Contains(t, out, "medrag settings wizard")
}

func TestSettingsSet(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"plain value", "retrieval.hybrid", "true", "Set retrieval.hybrid = true"},
		{"jwt secret masked", "server.jwt_secret", "averylongsecretvalue", "Set server.jwt_secret = aver...alue"},
		{"api key masked", "llm.api_key", "sk-123", "Set llm.api_key = ****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := setupTestServices()
			defer cleanup()

			out, err := executeCommand("settings", "set", tt.key, tt.value)

			require.NoError(t, err)
			assert.Equal(t, tt.value, mocks.settings.Sets[tt.key])
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestSettingsSet_Error(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.SetErr = domain.ErrInvalidInput

	_, err := executeCommand("settings", "set", "nope.key", "1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "failed to set nope.key")
}

func TestSettingsKeys(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("settings", "keys")

	require.NoError(t, err)
	assert.Equal(t, "answer.mode\nretrieval.hybrid\n", out)
}

func TestSettingsMode(t *testing.T) {
	t.Run("selects mode", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		rootCmd.SetIn(strings.NewReader("3\n"))

		out, err := executeCommand("settings", "mode")

		require.NoError(t, err)
		assert.Equal(t, "detailed", mocks.settings.Sets["answer.mode"])
		assert.Contains(t, out, "Answer mode set to: detailed")
	})

	t.Run("rejects invalid choice", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		rootCmd.SetIn(strings.NewReader("9\n"))

		_, err := executeCommand("settings", "mode")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid selection")
		assert.Empty(t, mocks.settings.Sets)
	})
}

func TestSettingsEmbedding(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("1\n\n"))

	out, err := executeCommand("settings", "embedding")

	require.NoError(t, err)
	assert.Equal(t, []string{"ollama", "nomic-embed-text", ""}, mocks.settings.Embedding)
	assert.Contains(t, out, "Validating configuration... OK")
}

func TestSettingsLLM_APIKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("2\ngpt-4o\n"))

	original := promptPassword
	promptPassword = func() string { return "sk-test" }
	defer func() { promptPassword = original }()

	_, err := executeCommand("settings", "llm")

	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gpt-4o", "sk-test"}, mocks.settings.LLM)
}

func TestSettingsLLM_ValidationFails(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	rootCmd.SetIn(strings.NewReader("1\n\n"))
	mocks.settings.PingErr = errors.New("connection refused")

	out, err := executeCommand("settings", "llm")

	require.Error(t, err)
	assert.Contains(t, out, "FAILED: connection refused")
}

func TestSettings_NoService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	for _, args := range [][]string{{"settings", "show"}, {"settings", "keys"}, {"settings", "set", "a", "b"}} {
		_, err := executeCommand(args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "settings service not configured")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{"empty", "", "(not set)"},
		{"short", "abc", "****"},
		{"exactly 8", "12345678", "****"},
		{"long", "sk-1234567890abcdef", "sk-1...cdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskSecret(tt.secret))
		})
	}
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey("embedding.api_key"))
	assert.True(t, isSecretKey("server.jwt_secret"))
	assert.True(t, isSecretKey("server.users"))
	assert.False(t, isSecretKey("server.addr"))
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		want       int
	}{
		{"empty input returns default", "", 3, 1, 1},
		{"valid choice", "2", 3, 1, 2},
		{"max choice", "3", 3, 1, 3},
		{"zero returns default", "0", 3, 1, 1},
		{"exceeds max returns default", "4", 3, 1, 1},
		{"negative returns default", "-1", 3, 1, 1},
		{"non-numeric returns default", "abc", 3, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseChoice(tt.input, tt.maxVal, tt.defaultVal))
		})
	}
}
