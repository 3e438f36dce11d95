package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantsim/src/datamodels"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestBacktestRandomWalk(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "run.yaml", `
simulation:
  seed: 17
  max_steps: 50
metrics_writer:
  file_writer: true
  file_format: csv
  file_path: out
  plot_path: out/run.png
`)
	cfg, err := datamodels.NewQuantsimConfigFromFile(configPath, dir)
	require.NoError(t, err)

	summary, err := backtest(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 150, summary.Ticks)
	assert.Equal(t, 10000.0, summary.InitialCapital)

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.Contains(t, names, "run.png")
	joined := strings.Join(names, ",")
	assert.Contains(t, joined, "step_record.csv")
	assert.Contains(t, joined, "portfolio_metrics.csv")
	assert.Contains(t, joined, "run_summary.csv")
}

func TestBacktestReplaysPriceFile(t *testing.T) {
	dir := t.TempDir()
	var rows strings.Builder
	rows.WriteString("timestamp,price\n")
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 11, 12, 13, 14, 15}
	for i, price := range prices {
		fmt.Fprintf(&rows, "%s,%g\n", start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339), price)
	}
	writeFile(t, dir, "prices.csv", rows.String())
	configPath := writeFile(t, dir, "run.yaml", `
simulation:
  initial_ticks: 10
  price_file: prices.csv
`)
	cfg, err := datamodels.NewQuantsimConfigFromFile(configPath, dir)
	require.NoError(t, err)

	summary, err := backtest(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, len(prices), summary.Ticks)
	assert.Equal(t, 1, summary.Buys)
	assert.InDelta(t, 15.0/11-1, summary.TotalReturn, 1e-9)
	assert.Equal(t, start.Add(24*time.Minute), summary.EndTime)
}

func TestBacktestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "run.yaml", `
simulation:
  short_window: 30
  long_window: 10
`)
	cfg, err := datamodels.NewQuantsimConfigFromFile(configPath, dir)
	require.NoError(t, err)
	_, err = backtest(context.Background(), cfg)
	assert.Error(t, err)
}
