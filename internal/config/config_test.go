package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"CONFIG_FILE", "PORT", "MAX_BET", "COUNTDOWN"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Countdown)
	assert.Equal(t, "100", cfg.MaxBet.String())
	assert.Equal(t, 50, cfg.ChatCapacity)
	assert.InDelta(t, 0.01, cfg.Curve.HouseEdge, 1e-9)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rounds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
countdown: 5s
result_stagger: 0s
max_bet: "25.50"
drift_curve:
  house_edge: 0.03
  max_target: 500
  growth_rate: 0.2
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("STARTING_BALANCE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Countdown)
	assert.Equal(t, time.Duration(0), cfg.ResultStagger)
	assert.Equal(t, "25.5", cfg.MaxBet.String())
	assert.Equal(t, "10", cfg.StartingBalance.String())
	assert.InDelta(t, 0.03, cfg.Curve.HouseEdge, 1e-9)
	assert.InDelta(t, 500, cfg.Curve.MaxTarget, 1e-9)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")

	t.Setenv("MAX_BET", "-1")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_BET", "abc")
	_, err = Load()
	require.Error(t, err)

	t.Setenv("MAX_BET", "")
	t.Setenv("COUNTDOWN", "soon")
	_, err = Load()
	require.Error(t, err)
}
