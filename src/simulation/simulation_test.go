package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quantsim/src/datamodels"
	"quantsim/src/feeds"
	"quantsim/src/portfolio"
	"quantsim/src/strategies"
	"quantsim/src/utils/errors"
)

var crossoverScenario = []float64{
	10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
	10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
	11, 12, 13, 14, 15,
}

type recordingWriter struct {
	metrics []datamodels.Metric
}

func (w *recordingWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.metrics = append(w.metrics, metric)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) named(name string) []datamodels.Metric {
	var out []datamodels.Metric
	for _, metric := range w.metrics {
		if metric.MetricName == name {
			out = append(out, metric)
		}
	}
	return out
}

func scriptedSimulation(prices []float64, initialTicks int, publishers ...Publisher) (*Simulation, error) {
	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.InitialTicks = initialTicks
	sim := NewSimulation().
		WithConfig(cfg).
		WithTickSource(feeds.NewScriptedFeed(prices))
	for _, publisher := range publishers {
		sim = sim.WithPublisher(publisher)
	}
	return sim.Build()
}

func seededConfig(seed int64) datamodels.SimulationConfig {
	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.Seed = seed
	return cfg
}

type SimulationTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
}

func TestSimulationSuite(t *testing.T) {
	suite.Run(t, new(SimulationTestSuite))
}

func (s *SimulationTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 10*time.Second)
}

func (s *SimulationTestSuite) TearDownTest() {
	s.cancel()
}

func (s *SimulationTestSuite) TestCrossoverScenarioStepByStep() {
	var published []datamodels.StepRecord
	collect := PublisherFunc(func(ctx context.Context, record datamodels.StepRecord) error {
		published = append(published, record)
		return nil
	})
	sim, err := scriptedSimulation(crossoverScenario, 1, collect)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))

	for i := 1; i < len(crossoverScenario); i++ {
		record, err := sim.Step(s.ctx)
		s.Require().NoError(err)
		s.Equal(i, record.Index)
		s.Equal(crossoverScenario[i], record.Price)
	}

	signals := sim.Signals()
	s.Require().Len(signals, len(crossoverScenario))
	for i, signal := range signals {
		if i == 20 {
			s.Equal(datamodels.SignalBuy, signal, "index 20")
			continue
		}
		s.Equal(datamodels.SignalHold, signal, "index %d", i)
	}

	values := sim.PortfolioHistory()
	s.Equal(10000.0, values[19].Value)
	s.InDelta(10000.0, values[20].Value, 1e-9)
	s.InDelta(10000.0/11*15, values[24].Value, 1e-9)

	s.Len(published, len(crossoverScenario))
	s.Equal(sim.Records(), published)

	_, err = sim.Step(s.ctx)
	s.ErrorIs(err, feeds.ErrFeedExhausted)
	s.Equal(len(crossoverScenario), sim.Len())
}

func (s *SimulationTestSuite) TestIncrementalMatchesBatch() {
	prices := append(append([]float64{}, crossoverScenario...), 14, 12, 9, 8, 8, 9, 12, 15)

	batch, err := scriptedSimulation(prices, len(prices))
	s.Require().NoError(err)
	s.Require().NoError(batch.Initialize(s.ctx))

	incremental, err := scriptedSimulation(prices, 3)
	s.Require().NoError(err)
	s.Require().NoError(incremental.Initialize(s.ctx))
	for incremental.Len() < len(prices) {
		_, err := incremental.Step(s.ctx)
		s.Require().NoError(err)
	}

	s.Equal(batch.Signals(), incremental.Signals())
	s.Equal(strategies.ComputeSignalSeries(batch.History(), 5, 20), batch.Signals())
	s.Equal(batch.PortfolioHistory(), incremental.PortfolioHistory())
	s.Contains(batch.Signals(), datamodels.SignalSell)
}

func (s *SimulationTestSuite) TestSeedingAndHoldOnlyStartup() {
	cfg := seededConfig(99)
	sim, err := SimulationFromConfig(&cfg, "run-seed", nil, nil)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))

	s.Equal(100, sim.Len())
	s.Equal(10000.0, sim.PortfolioHistory()[0].Value)
	for i, signal := range sim.Signals()[:19] {
		s.Equal(datamodels.SignalHold, signal, "index %d", i)
	}
	history := sim.History()
	s.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), history[0].Timestamp)
	s.Equal(time.Hour, history[1].Timestamp.Sub(history[0].Timestamp))

	s.ErrorIs(sim.Initialize(s.ctx), ErrAlreadyInitialized)
}

func (s *SimulationTestSuite) TestSameSeedSameRun() {
	run := func() []datamodels.StepRecord {
		cfg := seededConfig(2024)
		sim, err := SimulationFromConfig(&cfg, "", nil, nil)
		s.Require().NoError(err)
		s.Require().NoError(sim.Initialize(s.ctx))
		var records []datamodels.StepRecord
		for record, err := range sim.Stream(s.ctx) {
			s.Require().NoError(err)
			records = append(records, record)
			if len(records) == 50 {
				break
			}
		}
		return records
	}
	first := run()
	second := run()
	s.Len(first, 50)
	s.Equal(first, second)
	s.Equal(100, first[0].Index)
}

func (s *SimulationTestSuite) TestStreamStopsOnError() {
	sim, err := scriptedSimulation([]float64{10, 11, 12}, 1)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))

	var records int
	var lastErr error
	for _, err := range sim.Stream(s.ctx) {
		if err != nil {
			lastErr = err
			continue
		}
		records++
	}
	s.Equal(2, records)
	s.ErrorIs(lastErr, feeds.ErrFeedExhausted)
}

func (s *SimulationTestSuite) TestStepBeforeInitialize() {
	sim, err := scriptedSimulation(crossoverScenario, 1)
	s.Require().NoError(err)
	_, err = sim.Step(s.ctx)
	s.ErrorIs(err, ErrNotInitialized)
	_, err = sim.Accept(s.ctx, datamodels.Tick{Timestamp: time.Now(), Price: 1})
	s.ErrorIs(err, ErrNotInitialized)
}

func (s *SimulationTestSuite) TestRejectsOutOfOrderTick() {
	sim, err := scriptedSimulation(crossoverScenario, 21)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))
	last, ok := sim.Latest()
	s.Require().True(ok)

	for _, ts := range []time.Time{last.Timestamp, last.Timestamp.Add(-time.Minute)} {
		_, err := sim.Accept(s.ctx, datamodels.Tick{Timestamp: ts, Price: 12})
		s.ErrorIs(err, ErrOutOfOrderTick)
	}
	s.Equal(21, sim.Len())
	latest, _ := sim.Latest()
	s.Equal(last, latest)
}

func (s *SimulationTestSuite) TestRejectsNonPositivePriceWithoutMutation() {
	writer := &recordingWriter{}
	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.InitialTicks = 21
	strategy, err := strategies.StrategyEngineFromConfig(&cfg, writer)
	s.Require().NoError(err)
	sim, err := NewSimulation().
		WithConfig(cfg).
		WithTickSource(feeds.NewScriptedFeed(crossoverScenario)).
		WithStrategy(strategy).
		WithPublisher(NewMetricsPublisher(writer, "run", "test")).
		Build()
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))

	// index 20 is a Buy, so the portfolio is holding now
	s.False(sim.Portfolio().State().IsFlat())
	stateBefore := sim.Portfolio().State()
	recordsBefore := sim.Records()
	metricsBefore := len(writer.metrics)
	countsBefore := strategy.SignalCounts()
	last, _ := sim.Latest()

	for _, price := range []float64{0, -3} {
		_, err := sim.Accept(s.ctx, datamodels.Tick{Timestamp: last.Timestamp.Add(time.Hour), Price: price})
		s.ErrorIs(err, portfolio.ErrNonPositivePrice)
	}
	s.Equal(stateBefore, sim.Portfolio().State())
	s.Equal(recordsBefore, sim.Records())
	s.Len(writer.metrics, metricsBefore)
	s.Equal(countsBefore, strategy.SignalCounts())

	record, err := sim.Accept(s.ctx, datamodels.Tick{Timestamp: last.Timestamp.Add(time.Hour), Price: 12})
	s.Require().NoError(err)
	s.Equal(21, record.Index)
}

func (s *SimulationTestSuite) TestAcceptAssignsIndex() {
	sim, err := scriptedSimulation(crossoverScenario, 5)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))
	last, _ := sim.Latest()
	record, err := sim.Accept(s.ctx, datamodels.Tick{Index: 999, Timestamp: last.Timestamp.Add(time.Minute), Price: 10})
	s.Require().NoError(err)
	s.Equal(5, record.Index)
	s.Equal(5, sim.History()[5].Index)
}

func (s *SimulationTestSuite) TestMetricsFromConfig() {
	writer := &recordingWriter{}
	cfg := seededConfig(5)
	cfg.InitialTicks = 30
	sim, err := SimulationFromConfig(&cfg, "run-metrics", writer, nil)
	s.Require().NoError(err)
	s.Require().NoError(sim.Initialize(s.ctx))
	_, err = sim.Step(s.ctx)
	s.Require().NoError(err)

	steps := writer.named(datamodels.MetricNameStepRecord)
	s.Len(steps, 31)
	s.Equal("run-metrics", steps[0].MetricGeneratorId)
	s.Len(writer.named(datamodels.MetricNamePortfolioMetrics), 31)

	records, err := recordsFromMetrics(steps)
	s.Require().NoError(err)
	s.Equal(sim.Records(), records)
}

func (s *SimulationTestSuite) TestBuildValidation() {
	_, err := NewSimulation().Build()
	s.Error(err)

	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.ShortWindow = 30
	_, err = NewSimulation().WithConfig(cfg).WithTickSource(feeds.NewScriptedFeed(crossoverScenario)).Build()
	s.Error(err)

	p, err := portfolio.NewSimulatedPortfolio().Build()
	s.Require().NoError(err)
	_, err = p.Seed(datamodels.Tick{Price: 1})
	s.Require().NoError(err)
	_, err = NewSimulation().WithTickSource(feeds.NewScriptedFeed(crossoverScenario)).WithPortfolio(p).Build()
	s.Error(err)
}

func (s *SimulationTestSuite) TestInitializeRejectsBadSeedSeries() {
	sim, err := scriptedSimulation([]float64{10, 11, -1, 12}, 4)
	s.Require().NoError(err)
	err = sim.Initialize(s.ctx)
	s.True(errors.Is(err, portfolio.ErrNonPositivePrice))
	s.False(sim.IsInitialized())
	s.Zero(sim.Len())
	s.False(sim.Portfolio().IsSeeded())
}
