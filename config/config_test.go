package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.ModelProvider)
	assert.Equal(t, 10, cfg.MaxTurns)
	assert.Equal(t, 120*time.Second, cfg.RunTimeout)
	assert.Equal(t, "TERMINATE", cfg.TerminationMarker)
	assert.Equal(t, 5*time.Minute, cfg.RAGCacheTTL)
	assert.Equal(t, 60*time.Second, cfg.InjectorCacheTTL)
	assert.True(t, cfg.PerTurnRAGEnabled)
	assert.InDelta(t, 50.0, cfg.TotalBudgetUSD, 1e-9)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONVERGIO_MODEL_PROVIDER", "anthropic")
	t.Setenv("CONVERGIO_MAX_TURNS", "4")
	t.Setenv("CONVERGIO_RUN_TIMEOUT", "30s")
	t.Setenv("CONVERGIO_PER_TURN_RAG", "false")
	t.Setenv("CONVERGIO_TOTAL_BUDGET_USD", "12.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.ModelProvider)
	assert.Equal(t, 4, cfg.MaxTurns)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.False(t, cfg.PerTurnRAGEnabled)
	assert.InDelta(t, 12.5, cfg.TotalBudgetUSD, 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONVERGIO_MODEL_PROVIDER", "carrier-pigeon")
	_, err := Load()
	assert.ErrorContains(t, err, "unknown model provider")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.MaxTurns = 0
	assert.ErrorContains(t, cfg.Validate(), "max turns")

	cfg = Default()
	cfg.RunTimeout = 0
	assert.ErrorContains(t, cfg.Validate(), "run timeout")

	cfg = Default()
	cfg.TotalBudgetUSD = 0
	assert.ErrorContains(t, cfg.Validate(), "total budget")

	cfg = Default()
	cfg.CostPer1KTokens = -1
	assert.ErrorContains(t, cfg.Validate(), "cost per 1k")

	cfg = Default()
	cfg.EmbeddingDimensions = 0
	assert.ErrorContains(t, cfg.Validate(), "embedding dimensions")
}

func TestDefaultMatchesEnvDefaults(t *testing.T) {
	fromEnv, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), fromEnv)
}

func TestLoadDotenvMissingFileIsSkipped(t *testing.T) {
	cfg, err := LoadDotenv("testdata/does-not-exist.env")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
