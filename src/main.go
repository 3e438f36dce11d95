package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"quantsim/src/config"
	"quantsim/src/database"
	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/portfolio"
	"quantsim/src/server"
	"quantsim/src/simulation"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

func main() {
	initializeLogging()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	quantsimConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Ramping up quantsim", "simulation", quantsimConfig.Simulation)

	if err := run(ctx, quantsimConfig); err != nil {
		slog.Error("Quantsim stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutting down...")
}

func run(ctx context.Context, quantsimConfig *datamodels.QuantsimConfig) error {
	startedAt := time.Now()
	simConfig := quantsimConfig.Simulation
	runId := general.NewRunId(simConfig.Seed, startedAt)

	var db database.QuantsimDatabase
	var tradeStore portfolio.TradeStore
	if quantsimConfig.Postgres.Enabled {
		var err error
		db, err = database.NewDBConnection(quantsimConfig.Postgres)
		if err != nil {
			return err
		}
		tradeStore = db
		if err := db.CreateSimulationRun(ctx, datamodels.SimulationRun{
			RunId:          runId,
			StartedAt:      startedAt,
			InitialCapital: simConfig.InitialCapital,
			ShortWindow:    simConfig.ShortWindow,
			LongWindow:     simConfig.LongWindow,
			Seed:           simConfig.Seed,
		}); err != nil {
			return err
		}
	}

	// the live view always streams to websocket clients
	writerConfig := quantsimConfig.MetricsWriter
	writerConfig.WsWriter = true
	metricsWriter, wsWriter, err := metrics.BuildMetricsWriter(&writerConfig, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := metricsWriter.Close(); err != nil {
			slog.Error("Failed to close metrics writers", "error", err)
		}
	}()

	sim, err := simulation.SimulationFromConfig(&simConfig, runId, metricsWriter, tradeStore)
	if err != nil {
		return err
	}

	recent := simulation.NewRecentRecords(quantsimConfig.Server.RecentRecords)
	plotter, err := metrics.NewMetricPlotter().
		WithFileOutput(writerConfig.PlotPath).
		Build()
	if err != nil {
		return err
	}
	sim.WithPublisher(recent).
		WithPublisher(simulation.PublisherFunc(func(ctx context.Context, record datamodels.StepRecord) error {
			plotter.AddRecord(record)
			return nil
		}))

	runner, err := simulation.RunnerFromConfig(sim, &simConfig)
	if err != nil {
		return err
	}

	srv, err := server.ServerFromConfig(&quantsimConfig.Server).
		WithMetricsWriter(wsWriter).
		WithController(runner).
		WithRecentRecords(recent).
		WithPlotter(plotter).
		Build()
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	runErr := runner.Run(ctx)

	summary := runner.Summary()
	slog.Info("Run summary",
		"run_id", runId,
		"ticks", summary.Ticks,
		"final_value", summary.FinalValue,
		"total_return", summary.TotalReturn,
		"max_drawdown", summary.MaxDrawdown,
		"sharpe", summary.Sharpe,
		"buys", summary.Buys,
		"sells", summary.Sells)
	if summaryMetric, err := summary.Metric(runId, sim.Strategy().GetName()); err == nil {
		if err := metricsWriter.Write(context.Background(), summaryMetric); err != nil {
			slog.Warn("Failed to write run summary", "error", err)
		}
	}
	if writerConfig.PlotPath != "" {
		if err := plotter.Plot(); err != nil {
			slog.Warn("Failed to write plot", "error", err)
		}
	}

	if runErr == nil && ctx.Err() == nil {
		slog.Info("Run finished, serving until interrupted")
	}
	select {
	case <-ctx.Done():
		return runErr
	case err := <-serverErr:
		return errors.Join(runErr, err)
	}
}

func initializeLogging() {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
