package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tslnc04/agent-sim/internal/config"
)

func TestLoadDefaults(t *testing.T) {

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 40.0, cfg.World.Width)
	assert.Equal(t, 480, cfg.World.Agents)
	assert.Equal(t, 4, cfg.Index.LeafCapacity)
	assert.Equal(t, 2.0, cfg.Index.MinLeafWidth)
	assert.Equal(t, 150, cfg.Sim.Steps)
	assert.Equal(t, time.Hour, cfg.Sim.StepSize)
	assert.True(t, cfg.Sim.ExactRadius)
	assert.False(t, cfg.Sim.FullConsolidation)
	assert.Equal(t, 100*time.Millisecond, cfg.Sim.Interval)
	assert.Equal(t, ":8080", cfg.Rest.Addr)
	assert.Empty(t, cfg.Output.Store)
	assert.False(t, cfg.Output.Grid)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
world:
  width: 64
  agents: 10
index:
  leafCapacity: 8
sim:
  stepSize: 30m
  fullConsolidation: true
output:
  grid: true
  chart: curve.png
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64.0, cfg.World.Width)
	assert.Equal(t, 40.0, cfg.World.Height, "unset keys keep their default")
	assert.Equal(t, 10, cfg.World.Agents)
	assert.Equal(t, 8, cfg.Index.LeafCapacity)
	assert.Equal(t, 30*time.Minute, cfg.Sim.StepSize)
	assert.True(t, cfg.Sim.FullConsolidation)
	assert.Equal(t, "curve.png", cfg.Output.Chart)
	assert.True(t, cfg.Output.Grid)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("AGENTSIM_SIM_STEPS", "12")
	t.Setenv("AGENTSIM_REST_ADDR", ":9999")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Sim.Steps)
	assert.Equal(t, ":9999", cfg.Rest.Addr)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  leafCapacity: 0\n"), 0o644))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "leafCapacity")
}

func TestValidate(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.World.Width = 0
	bad.Sim.StepSize = 0
	err = bad.Validate()
	assert.ErrorContains(t, err, "world size")
	assert.ErrorContains(t, err, "stepSize")
}
