package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"paperforge/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROCESS_MODE", "")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.APIAddr)
	require.Equal(t, float64(1000), cfg.CreditTokenRatio)
	require.False(t, cfg.WorkflowMode())

	p := cfg.Pricing()
	require.Equal(t, float64(2), p.Multipliers[models.KindCode])
	require.Equal(t, 500, p.AssumedOutput[models.KindSummary])
	require.Equal(t, 1500, p.AssumedOutput[models.KindCode])
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CODE_COST_MULTIPLIER", "3.5")
	t.Setenv("CODE_MAX_TOKENS", "2048")
	t.Setenv("PROCESS_MODE", "workflow")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3.5, cfg.Pricing().Multipliers[models.KindCode])
	require.Equal(t, 2048, cfg.Generation(models.KindCode).MaxTokens)
	require.True(t, cfg.WorkflowMode())
}

func TestZeroTemperatureOverrideIsKept(t *testing.T) {
	t.Setenv("CODE_TEMPERATURE", "0")
	cfg, err := Load()
	require.NoError(t, err)
	params := cfg.Generation(models.KindCode)
	require.NotNil(t, params.Temperature)
	require.Zero(t, *params.Temperature)
	require.Equal(t, 0.95, *params.TopP)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("CREDIT_TOKEN_RATIO", "0")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("CREDIT_TOKEN_RATIO", "1000")
	t.Setenv("PROCESS_MODE", "batch")
	_, err = Load()
	require.Error(t, err)
}
