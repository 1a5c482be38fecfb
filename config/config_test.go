package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LLM_PROVIDER", "LLM_MODEL", "AGENTRELAY_PROFILE", "MAX_TURNS", "TOOL_TIMEOUT", "DOCS_DIR", "LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, rest, err := Load(context.Background(), []string{"--offline", "extra"})
	require.NoError(t, err)

	assert.Equal(t, []string{"extra"}, rest)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, 400, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAGTopK)
	assert.Equal(t, 3, cfg.MemoryTopK)
	assert.InDelta(t, 0.01, cfg.MemoryRecencyWeight, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.Equal(t, 2*time.Minute, cfg.TurnTimeout)
	assert.Equal(t, 16, cfg.MaxTurns)
	assert.Equal(t, 0, cfg.ToolRetries)
	assert.Nil(t, cfg.Profile)
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("MAX_TURNS", "4")
	t.Setenv("TOOL_TIMEOUT", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, _, err := Load(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 4, cfg.MaxTurns)
	assert.Equal(t, 5*time.Second, cfg.ToolTimeout)
	assert.Equal(t, logging.LogLevelDebug, cfg.LoggerConfig().Level)
}

func TestLoad_MissingCredentialIsFatal(t *testing.T) {
	clearEnv(t)

	_, _, err := Load(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, _, err = Load(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestLoad_Help(t *testing.T) {
	clearEnv(t)

	_, _, err := Load(context.Background(), []string{"--help"})
	assert.True(t, IsHelp(err))
}

func TestValidate(t *testing.T) {
	base := Config{
		Offline: true, Provider: ProviderOpenAI, ChunkSize: 100, ChunkOverlap: 10,
		EmbeddingDim: 8, RAGTopK: 1, MemoryTopK: 1, MaxTurns: 1, LogLevel: "info",
	}
	require.NoError(t, base.Validate())

	overlap := base
	overlap.ChunkOverlap = 100
	assert.ErrorContains(t, overlap.Validate(), "CHUNK_OVERLAP")

	level := base
	level.LogLevel = "loud"
	assert.ErrorContains(t, level.Validate(), "unknown log level")

	turns := base
	turns.MaxTurns = 0
	assert.ErrorContains(t, turns.Validate(), "MAX_TURNS")
}

func TestProfile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
instructions:
  HeadAgent: Be brief.
  analyst: Prefer pandas.
descriptions:
  memory: Keeps the customer history.
documents:
  - ./handbook.pdf
`), 0o600))

	cfg, _, err := Load(context.Background(), []string{"--offline", "--profile", path, "--docs-dir", "./docs"})
	require.NoError(t, err)
	require.NotNil(t, cfg.Profile)

	text, ok := cfg.Profile.Instruction(core.Head)
	assert.True(t, ok)
	assert.Equal(t, "Be brief.", text)

	_, ok = cfg.Profile.Instruction(core.Rag)
	assert.False(t, ok)

	desc, ok := cfg.Profile.Description(core.Memory)
	assert.True(t, ok)
	assert.Equal(t, "Keeps the customer history.", desc)

	assert.Equal(t, []string{"./docs", "./handbook.pdf"}, cfg.Documents())
}

func TestParseProfile_RejectsUnknownAgent(t *testing.T) {
	_, err := ParseProfile([]byte("instructions:\n  janitor: sweep\n"))
	assert.ErrorContains(t, err, "janitor")

	_, err = ParseProfile([]byte("descriptions:\n  planner: plans\n"))
	assert.ErrorContains(t, err, "planner")

	_, err = ParseProfile([]byte("instructions: [broken"))
	assert.Error(t, err)
}
