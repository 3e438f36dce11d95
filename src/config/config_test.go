package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantsim/src/datamodels"
)

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("testdata", "config.test.yaml"))
	require.NoError(t, err)

	sim := cfg.Simulation
	assert.Equal(t, 2500.0, sim.InitialCapital)
	assert.Equal(t, 3, sim.ShortWindow)
	assert.Equal(t, 8, sim.LongWindow)
	assert.Equal(t, 30, sim.InitialTicks)
	assert.Equal(t, 0.25, sim.PriceVolatility)
	assert.Equal(t, 50.0, sim.StartingPrice)
	assert.Equal(t, int64(1234), sim.Seed)
	assert.Equal(t, 15*time.Minute, sim.TickInterval)
	assert.Equal(t, time.Duration(0), sim.StepInterval)
	assert.Equal(t, 10, sim.MaxSteps)
	assert.Equal(t, datamodels.DefaultSignalType, sim.SignalType)

	assert.True(t, cfg.MetricsWriter.FileWriter)
	assert.Equal(t, "json", cfg.MetricsWriter.FileFormat)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "/health", cfg.Server.HealthEndpoint)
}

func TestLoadFileDefaultsOnly(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, datamodels.NewDefaultSimulationConfig(), cfg.Simulation)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("QUANTSIM_SIMULATION_INITIAL_CAPITAL", "777")
	t.Setenv("QUANTSIM_SERVER_PORT", ":7000")
	cfg, err := LoadFile(filepath.Join("testdata", "config.test.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 777.0, cfg.Simulation.InitialCapital)
	assert.Equal(t, ":7000", cfg.Server.Port)
}

func TestLoadFileRejectsInvalidWindows(t *testing.T) {
	_, err := LoadFile(filepath.Join("testdata", "config.invalid.yaml"))
	assert.Error(t, err)
}

func TestLoadExplicitMissingPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromConfigPath(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("testdata", "config.test.yaml"))
	require.NoError(t, err)
	t.Setenv("CONFIG_PATH", path)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), cfg.Simulation.Seed)
}
