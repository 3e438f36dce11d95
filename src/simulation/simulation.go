package simulation

/*
Simulation is the explicit step function of the backtest loop. It owns the
append-only price history, the signal of every tick and the portfolio value of
every tick, all aligned by index. Each step reads only the trailing window the
strategy needs, so a step costs O(window) regardless of how long the run is.

A Simulation is not safe for concurrent use. Runner serializes access when the
loop is shared with a server.
*/

import (
	"context"
	"iter"
	"log/slog"

	"quantsim/src/datamodels"
	"quantsim/src/feeds"
	"quantsim/src/metrics"
	"quantsim/src/portfolio"
	"quantsim/src/strategies"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

var (
	ErrOutOfOrderTick     = errors.Sentinel("tick is not newer than the last accepted tick")
	ErrNotInitialized     = errors.Sentinel("simulation is not initialized")
	ErrAlreadyInitialized = errors.Sentinel("simulation is already initialized")
	ErrEmptyInitialSeries = errors.Sentinel("tick source returned no initial ticks")
)

// exhaustible is implemented by sources with a finite supply of ticks.
type exhaustible interface {
	Remaining(last datamodels.Tick) int
}

type Simulation struct {
	id          string
	config      datamodels.SimulationConfig
	source      feeds.TickSource
	strategy    *strategies.StrategyEngine
	portfolio   *portfolio.SimulatedPortfolio
	publishers  []Publisher
	history     []datamodels.Tick
	signals     []datamodels.SignalType
	values      []datamodels.PortfolioValue
	initialized bool
}

func NewSimulation() *Simulation {
	return &Simulation{
		config: datamodels.NewDefaultSimulationConfig(),
	}
}

func (s *Simulation) WithConfig(config datamodels.SimulationConfig) *Simulation {
	s.config = config
	return s
}

func (s *Simulation) WithId(id string) *Simulation {
	s.id = id
	return s
}

func (s *Simulation) WithTickSource(source feeds.TickSource) *Simulation {
	s.source = source
	return s
}

func (s *Simulation) WithStrategy(strategy *strategies.StrategyEngine) *Simulation {
	s.strategy = strategy
	return s
}

func (s *Simulation) WithPortfolio(p *portfolio.SimulatedPortfolio) *Simulation {
	s.portfolio = p
	return s
}

func (s *Simulation) WithPublisher(publisher Publisher) *Simulation {
	s.publishers = append(s.publishers, publisher)
	return s
}

func (s *Simulation) Build() (*Simulation, error) {
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, errors.New("simulation needs a tick source")
	}
	if s.strategy == nil {
		strategy, err := strategies.StrategyEngineFromConfig(&s.config, nil)
		if err != nil {
			return nil, err
		}
		s.strategy = strategy
	}
	if s.portfolio == nil {
		p, err := portfolio.SimulatedPortfolioFromConfig(&s.config, s.id, nil, nil)
		if err != nil {
			return nil, err
		}
		s.portfolio = p
	}
	if s.portfolio.IsSeeded() {
		return nil, errors.New("simulation needs a fresh portfolio")
	}
	if s.id == "" {
		s.id = general.GenerateUUID5StringFromByteArray([]byte(s.strategy.GetId() + s.portfolio.GetId()))
	}
	return s, nil
}

// SimulationFromConfig wires a random walk, the configured strategy and a fresh
// portfolio. metricsWriter and tradeStore may be nil.
func SimulationFromConfig(config *datamodels.SimulationConfig,
	runId string,
	metricsWriter metrics.MetricsWriter,
	tradeStore portfolio.TradeStore) (*Simulation, error) {

	if err := config.Validate(); err != nil {
		return nil, err
	}
	source, err := feeds.TickSourceFromConfig(config)
	if err != nil {
		return nil, err
	}
	strategy, err := strategies.StrategyEngineFromConfig(config, metricsWriter)
	if err != nil {
		return nil, err
	}
	p, err := portfolio.SimulatedPortfolioFromConfig(config, runId, metricsWriter, tradeStore)
	if err != nil {
		return nil, err
	}

	sim := NewSimulation().
		WithConfig(*config).
		WithId(runId).
		WithTickSource(source).
		WithStrategy(strategy).
		WithPortfolio(p)
	if metricsWriter != nil {
		sim = sim.WithPublisher(NewMetricsPublisher(metricsWriter, runId, strategy.GetName()))
	}
	return sim.Build()
}

func (s *Simulation) GetId() string {
	return s.id
}

func (s *Simulation) Config() datamodels.SimulationConfig {
	return s.config
}

func (s *Simulation) Strategy() *strategies.StrategyEngine {
	return s.strategy
}

func (s *Simulation) Portfolio() *portfolio.SimulatedPortfolio {
	return s.portfolio
}

func (s *Simulation) IsInitialized() bool {
	return s.initialized
}

// Initialize builds the seed history, classifies it as a whole, folds the portfolio
// over it with tick 0 seeded, and publishes one record per seed tick.
func (s *Simulation) Initialize(ctx context.Context) error {
	if s.initialized {
		return ErrAlreadyInitialized
	}
	ticks := s.source.InitialSeries(s.config.InitialTicks, s.config.StartingPrice)
	if len(ticks) == 0 {
		return ErrEmptyInitialSeries
	}
	for i, tick := range ticks {
		if !tick.IsValidPrice() {
			return errors.Wrapf(portfolio.ErrNonPositivePrice, "initial tick %d has price %f", i, tick.Price)
		}
		if i > 0 && !tick.Timestamp.After(ticks[i-1].Timestamp) {
			return errors.Wrapf(ErrOutOfOrderTick, "initial tick %d at %s", i, tick.Timestamp)
		}
		ticks[i].Index = i
	}

	signals := s.strategy.EvaluateSeries(ctx, ticks)
	values := make([]datamodels.PortfolioValue, len(ticks))
	for i, tick := range ticks {
		var value datamodels.PortfolioValue
		var err error
		if i == 0 {
			value, err = s.portfolio.Seed(tick)
		} else {
			value, err = s.portfolio.OnTick(signals[i], tick)
		}
		if err != nil {
			// prices were validated above, so this is a wiring error
			return errors.Wrapf(err, "failed to fold portfolio over initial tick %d", i)
		}
		values[i] = value
	}

	s.history = ticks
	s.signals = signals
	s.values = values
	s.initialized = true

	slog.Info("Simulation initialized",
		"id", s.id,
		"source", s.source.GetName(),
		"strategy", s.strategy.GetName(),
		"ticks", len(ticks),
		"value", values[len(values)-1].Value)

	for i := range ticks {
		s.publish(ctx, s.recordAt(i))
	}
	return nil
}

// Step asks the tick source for the tick after the latest one and accepts it.
func (s *Simulation) Step(ctx context.Context) (datamodels.StepRecord, error) {
	if err := ctx.Err(); err != nil {
		return datamodels.StepRecord{}, err
	}
	if !s.initialized {
		return datamodels.StepRecord{}, ErrNotInitialized
	}
	last := s.history[len(s.history)-1]
	if source, ok := s.source.(exhaustible); ok && source.Remaining(last) == 0 {
		return datamodels.StepRecord{}, feeds.ErrFeedExhausted
	}
	return s.Accept(ctx, s.source.NextTick(last))
}

// Accept appends one externally supplied tick. The tick index is assigned by the
// simulation. Nothing changes when an error is returned.
func (s *Simulation) Accept(ctx context.Context, tick datamodels.Tick) (datamodels.StepRecord, error) {
	if !s.initialized {
		return datamodels.StepRecord{}, ErrNotInitialized
	}
	last := s.history[len(s.history)-1]
	if !tick.Timestamp.After(last.Timestamp) {
		return datamodels.StepRecord{}, errors.Wrapf(ErrOutOfOrderTick, "tick at %s is not after %s", tick.Timestamp, last.Timestamp)
	}
	if !tick.IsValidPrice() {
		return datamodels.StepRecord{}, errors.Wrapf(portfolio.ErrNonPositivePrice, "tick at %s has price %f", tick.Timestamp, tick.Price)
	}
	tick.Index = last.Index + 1

	signal := s.strategy.Compute(s.window(tick))
	value, err := s.portfolio.OnTick(signal, tick)
	if err != nil {
		return datamodels.StepRecord{}, err
	}
	s.strategy.Observe(ctx, tick, signal)

	s.history = append(s.history, tick)
	s.signals = append(s.signals, signal)
	s.values = append(s.values, value)

	record := s.recordAt(len(s.history) - 1)
	s.publish(ctx, record)
	return record, nil
}

// window is the trailing slice the strategy needs, with tick appended, without
// touching the history.
func (s *Simulation) window(tick datamodels.Tick) []datamodels.Tick {
	size := s.strategy.WindowSize()
	start := max(0, len(s.history)-(size-1))
	window := make([]datamodels.Tick, 0, len(s.history)-start+1)
	window = append(window, s.history[start:]...)
	return append(window, tick)
}

// Stream is an endless lazy sequence of steps. It yields the first error and stops;
// breaking out of the loop leaves the simulation ready for further steps.
func (s *Simulation) Stream(ctx context.Context) iter.Seq2[datamodels.StepRecord, error] {
	return func(yield func(datamodels.StepRecord, error) bool) {
		for {
			record, err := s.Step(ctx)
			if err != nil {
				yield(datamodels.StepRecord{}, err)
				return
			}
			if !yield(record, nil) {
				return
			}
		}
	}
}

func (s *Simulation) publish(ctx context.Context, record datamodels.StepRecord) {
	for _, publisher := range s.publishers {
		if err := publisher.Publish(ctx, record); err != nil {
			slog.Warn("Simulation publisher failed", "index", record.Index, "error", err)
		}
	}
}

func (s *Simulation) recordAt(i int) datamodels.StepRecord {
	tick := s.history[i]
	value := s.values[i]
	return datamodels.StepRecord{
		Index:          tick.Index,
		Timestamp:      tick.Timestamp,
		Price:          tick.Price,
		Signal:         s.signals[i],
		PortfolioValue: value.Value,
		Cash:           value.Cash,
		Units:          value.Units,
	}
}

func (s *Simulation) Len() int {
	return len(s.history)
}

func (s *Simulation) History() []datamodels.Tick {
	return append([]datamodels.Tick(nil), s.history...)
}

func (s *Simulation) Signals() []datamodels.SignalType {
	return append([]datamodels.SignalType(nil), s.signals...)
}

func (s *Simulation) PortfolioHistory() []datamodels.PortfolioValue {
	return append([]datamodels.PortfolioValue(nil), s.values...)
}

func (s *Simulation) Records() []datamodels.StepRecord {
	records := make([]datamodels.StepRecord, len(s.history))
	for i := range s.history {
		records[i] = s.recordAt(i)
	}
	return records
}

func (s *Simulation) Latest() (datamodels.StepRecord, bool) {
	if len(s.history) == 0 {
		return datamodels.StepRecord{}, false
	}
	return s.recordAt(len(s.history) - 1), true
}
