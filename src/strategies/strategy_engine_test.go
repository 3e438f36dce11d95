package strategies

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"quantsim/src/datamodels"
)

type recordingWriter struct {
	metrics []datamodels.Metric
}

func (w *recordingWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.metrics = append(w.metrics, metric)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type StrategyEngineTestSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	writer *recordingWriter
	engine *StrategyEngine
}

func TestStrategyEngineSuite(t *testing.T) {
	suite.Run(t, new(StrategyEngineTestSuite))
}

func (s *StrategyEngineTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.writer = &recordingWriter{}
	cfg := datamodels.NewDefaultSimulationConfig()
	engine, err := StrategyEngineFromConfig(&cfg, s.writer)
	s.Require().NoError(err)
	s.engine = engine
}

func (s *StrategyEngineTestSuite) TearDownTest() {
	s.cancel()
}

func (s *StrategyEngineTestSuite) TestNameAndWindow() {
	s.Equal("sma_crossover_5_20", s.engine.GetName())
	s.Equal(21, s.engine.WindowSize())
	s.NotEmpty(s.engine.GetId())
}

func (s *StrategyEngineTestSuite) TestEvaluateWritesActionableSignals() {
	history := ticksFromPrices(flatThen(20, 10, 11, 9, 8))
	var got []datamodels.SignalType
	for i := range history {
		start := max(0, i+1-s.engine.WindowSize())
		got = append(got, s.engine.Evaluate(s.ctx, history[start:i+1]))
	}
	s.Equal(datamodels.SignalBuy, got[20])
	s.Equal(datamodels.SignalSell, got[22])

	s.Require().Len(s.writer.metrics, 2)
	first := s.writer.metrics[0]
	s.Equal(datamodels.MetricGeneratorTypeStrategy, first.MetricGeneratorType)
	s.Equal(s.engine.GetId(), first.MetricGeneratorId)

	var event SignalEvent
	s.Require().NoError(json.Unmarshal(first.MetricValue, &event))
	s.Equal(20, event.TickIndex)
	s.Equal(datamodels.SignalBuy, event.Signal)
	s.Equal(11.0, event.Price)

	counts := s.engine.SignalCounts()
	s.Equal(1, counts[datamodels.SignalBuy])
	s.Equal(1, counts[datamodels.SignalSell])
	s.Equal(21, counts[datamodels.SignalHold])
}

func (s *StrategyEngineTestSuite) TestEvaluateSeries() {
	history := ticksFromPrices(flatThen(20, 10, 11))
	signals := s.engine.EvaluateSeries(s.ctx, history)
	s.Len(signals, 21)
	s.Equal(datamodels.SignalBuy, signals[20])
	s.Len(s.writer.metrics, 1)
}

func (s *StrategyEngineTestSuite) TestEvaluateEmptyWindow() {
	s.Equal(datamodels.SignalHold, s.engine.Evaluate(s.ctx, nil))
	s.Empty(s.writer.metrics)
}

func (s *StrategyEngineTestSuite) TestBuildFromConfig() {
	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.SignalType = "hold"
	engine, err := StrategyEngineFromConfig(&cfg, nil)
	s.Require().NoError(err)
	s.Equal("hold", engine.GetName())
	s.Equal(datamodels.SignalHold, engine.Evaluate(s.ctx, ticksFromPrices(flatThen(20, 10, 11))))

	cfg.SignalType = "momentum"
	_, err = StrategyEngineFromConfig(&cfg, nil)
	s.Error(err)

	cfg.SignalType = "crossover"
	cfg.ShortWindow = 0
	_, err = StrategyEngineFromConfig(&cfg, nil)
	s.Error(err)

	_, err = NewStratEngine().Build()
	s.Error(err)
}
