package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/feeds"
	"quantsim/src/metrics"
	"quantsim/src/simulation"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

const defaultBacktestSteps = 1000

// backtest <config.yaml> [steps]
func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		slog.Error("No config file provided", "usage", "backtest <config.yaml> [steps]")
		os.Exit(1)
	}
	configFilePath := os.Args[1]
	slog.Info("Using config file", "path", configFilePath)

	absConfigPath, err := filepath.Abs(configFilePath)
	if err != nil {
		slog.Error("Failed to resolve config path", "error", err)
		os.Exit(1)
	}
	quantsimConfig, err := datamodels.NewQuantsimConfigFromFile(absConfigPath, filepath.Dir(absConfigPath))
	if err != nil {
		slog.Error("Failed to create run config", "error", err)
		os.Exit(1)
	}

	if len(os.Args) > 2 {
		steps, err := strconv.Atoi(os.Args[2])
		if err != nil || steps < 1 {
			slog.Error("Steps must be a positive integer", "steps", os.Args[2])
			os.Exit(1)
		}
		quantsimConfig.Simulation.MaxSteps = steps
	}

	summary, err := backtest(ctx, quantsimConfig)
	if err != nil {
		slog.Error("Backtest failed", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal summary", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// backtest runs a bounded simulation as fast as possible and writes its artifacts.
func backtest(ctx context.Context, quantsimConfig *datamodels.QuantsimConfig) (simulation.Summary, error) {
	simConfig := quantsimConfig.Simulation
	simConfig.StepInterval = 0
	if simConfig.MaxSteps == 0 {
		simConfig.MaxSteps = defaultBacktestSteps
	}
	if err := simConfig.Validate(); err != nil {
		return simulation.Summary{}, err
	}

	startedAt := time.Now()
	runId := general.NewRunId(simConfig.Seed, startedAt)

	writerConfig := quantsimConfig.MetricsWriter
	writerConfig.WsWriter = false
	if writerConfig.DbWriter {
		slog.Warn("Backtests do not write to the database, ignoring db_writer")
		writerConfig.DbWriter = false
	}
	metricsWriter, _, err := metrics.BuildMetricsWriter(&writerConfig, nil)
	if err != nil {
		return simulation.Summary{}, err
	}

	sim, err := simulation.SimulationFromConfig(&simConfig, runId, metricsWriter, nil)
	if err != nil {
		metricsWriter.Close()
		return simulation.Summary{}, err
	}
	runner, err := simulation.RunnerFromConfig(sim, &simConfig)
	if err != nil {
		metricsWriter.Close()
		return simulation.Summary{}, err
	}

	slog.Info("Starting backtest", "run_id", runId, "steps", simConfig.MaxSteps, "source", simConfig.PriceFile)
	runErr := runner.Run(ctx)

	records := runner.Records()
	summary := simulation.Summarize(records, simConfig.InitialCapital)
	if summaryMetric, err := summary.Metric(runId, sim.Strategy().GetName()); err == nil {
		if err := metricsWriter.Write(ctx, summaryMetric); err != nil {
			slog.Warn("Failed to write run summary", "error", err)
		}
	}
	if err := metricsWriter.Close(); err != nil {
		slog.Warn("Failed to close metrics writers", "error", err)
	}

	artifacts := metricsWriter.Paths()
	if writerConfig.PlotPath != "" {
		plotter, err := metrics.NewMetricPlotter().
			WithLiveWindow(0).
			WithRecords(records).
			WithFileOutput(writerConfig.PlotPath).
			Build()
		if err == nil {
			err = plotter.Plot()
		}
		if err != nil {
			slog.Warn("Failed to write plot", "error", err)
		} else {
			artifacts = append(artifacts, writerConfig.PlotPath)
		}
	}

	if quantsimConfig.Storage.Bucket != "" {
		uploadArtifacts(ctx, quantsimConfig.Storage, runId, artifacts)
	}

	// a feed running dry ends a replay, it is not a failure
	if errors.Is(runErr, feeds.ErrFeedExhausted) {
		slog.Info("Price file exhausted", "steps", runner.Steps())
		runErr = nil
	}
	return summary, runErr
}

func uploadArtifacts(ctx context.Context, storageConfig datamodels.StorageConfig, runId string, artifacts []string) {
	for _, artifact := range artifacts {
		objectPath := path.Join(storageConfig.Prefix, runId, filepath.Base(artifact))
		if err := general.CopyFileToBucket(ctx, artifact, storageConfig.Bucket, objectPath); err != nil {
			slog.Error("Failed to upload artifact", "file", artifact, "bucket", storageConfig.Bucket, "error", err)
			continue
		}
		slog.Info("Uploaded artifact", "file", artifact, "object", "gs://"+storageConfig.Bucket+"/"+objectPath)
	}
}
