package portfolio

import (
	"context"
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

var (
	ErrNonPositivePrice   = errors.Sentinel("price must be positive and finite")
	ErrNotSeeded          = errors.Sentinel("portfolio has not been seeded")
	ErrAlreadySeeded      = errors.Sentinel("portfolio is already seeded")
	ErrTickOutOfSequence  = errors.Sentinel("tick index does not follow the last applied tick")
	ErrInvalidInitBalance = errors.Sentinel("initial balance must be positive")
)

// TradeStore receives every executed trade. database.RunDatabase satisfies it.
type TradeStore interface {
	WriteTrade(ctx context.Context, trade datamodels.SimulationTrade) error
}

// SimulatedPortfolio is a single asset all-in / all-out portfolio. It is either flat
// (all cash) or holding (all units). It is not safe for concurrent use; the
// simulation loop is its only caller.
type SimulatedPortfolio struct {
	id             string
	runId          string
	initialBalance float64
	state          datamodels.PortfolioState
	seeded         bool
	lastIndex      int
	lastValue      datamodels.PortfolioValue
	highestValue   float64
	lowestValue    float64
	latestMetrics  datamodels.PortfolioRealTimeMetrics
	transactions   []datamodels.Transaction
	metricsWriter  metrics.MetricsWriter
	tradeStore     TradeStore
}

func NewSimulatedPortfolio() *SimulatedPortfolio {
	nowBytes := []byte(time.Now().Format(time.RFC3339Nano))
	return &SimulatedPortfolio{
		id:             general.GenerateUUID5StringFromByteArray(nowBytes),
		initialBalance: datamodels.DefaultInitialCapital,
		lastIndex:      -1,
	}
}

func (p *SimulatedPortfolio) GetName() string {
	// use struct name without package
	name := strings.Split(reflect.TypeOf(p).String(), ".")[1]
	return name
}

func (p *SimulatedPortfolio) GetId() string {
	return p.id
}

func (p *SimulatedPortfolio) WithInitialBalance(balance float64) *SimulatedPortfolio {
	p.initialBalance = balance
	return p
}

func (p *SimulatedPortfolio) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *SimulatedPortfolio {
	p.metricsWriter = metricsWriter
	return p
}

func (p *SimulatedPortfolio) WithTradeStore(tradeStore TradeStore) *SimulatedPortfolio {
	p.tradeStore = tradeStore
	return p
}

// WithRunId tags metrics and stored trades with the run they belong to.
func (p *SimulatedPortfolio) WithRunId(runId string) *SimulatedPortfolio {
	p.runId = runId
	if runId != "" {
		p.id = runId
	}
	return p
}

func (p *SimulatedPortfolio) Build() (*SimulatedPortfolio, error) {
	if !(p.initialBalance > 0) {
		return nil, errors.Wrapf(ErrInvalidInitBalance, "got %f", p.initialBalance)
	}
	p.state = datamodels.PortfolioState{Cash: p.initialBalance}
	return p, nil
}

func (p *SimulatedPortfolio) InitialBalance() float64 {
	return p.initialBalance
}

func (p *SimulatedPortfolio) State() datamodels.PortfolioState {
	return p.state
}

func (p *SimulatedPortfolio) IsSeeded() bool {
	return p.seeded
}

// Value is the last recorded portfolio value.
func (p *SimulatedPortfolio) Value() datamodels.PortfolioValue {
	return p.lastValue
}

func (p *SimulatedPortfolio) GetTransactions() []datamodels.Transaction {
	transactionsCopy := make([]datamodels.Transaction, len(p.transactions))
	for i, transaction := range p.transactions {
		transactionsCopy[i] = transaction.Copy()
	}
	return transactionsCopy
}

func (p *SimulatedPortfolio) Metrics() datamodels.PortfolioRealTimeMetrics {
	return p.latestMetrics
}

// Seed records the first tick. Its value is the initial balance whatever the price.
func (p *SimulatedPortfolio) Seed(tick datamodels.Tick) (datamodels.PortfolioValue, error) {
	if !tick.IsValidPrice() {
		return datamodels.PortfolioValue{}, errors.Wrapf(ErrNonPositivePrice, "tick %d has price %f", tick.Index, tick.Price)
	}
	if p.seeded {
		return datamodels.PortfolioValue{}, ErrAlreadySeeded
	}

	p.seeded = true
	p.state = datamodels.PortfolioState{Cash: p.initialBalance}
	p.highestValue = p.initialBalance
	p.lowestValue = p.initialBalance
	return p.record(tick, datamodels.SignalHold, p.initialBalance), nil
}

// OnTick applies signal at the tick's price and returns the value after the transition.
// Flat+Buy goes all in, Holding+Sell goes all out, anything else leaves the state alone.
// On error nothing changes.
func (p *SimulatedPortfolio) OnTick(signal datamodels.SignalType, tick datamodels.Tick) (datamodels.PortfolioValue, error) {
	if !tick.IsValidPrice() {
		return datamodels.PortfolioValue{}, errors.Wrapf(ErrNonPositivePrice, "tick %d has price %f", tick.Index, tick.Price)
	}
	if !p.seeded {
		return datamodels.PortfolioValue{}, ErrNotSeeded
	}
	if tick.Index != p.lastIndex+1 {
		return datamodels.PortfolioValue{}, errors.Wrapf(ErrTickOutOfSequence, "expected %d, got %d", p.lastIndex+1, tick.Index)
	}

	switch {
	case signal == datamodels.SignalBuy && p.state.IsFlat() && p.state.Cash > 0:
		units := p.state.Cash / tick.Price
		p.addTransaction(tick, datamodels.OrderSideBuy, units, p.state.Cash)
		p.state = datamodels.PortfolioState{Cash: 0, Units: units}
	case signal == datamodels.SignalSell && !p.state.IsFlat():
		cash := p.state.Units * tick.Price
		p.addTransaction(tick, datamodels.OrderSideSell, p.state.Units, cash)
		p.state = datamodels.PortfolioState{Cash: cash, Units: 0}
	}

	value := p.state.Value(tick.Price)
	p.highestValue = max(p.highestValue, value)
	p.lowestValue = min(p.lowestValue, value)
	return p.record(tick, signal, value), nil
}

func (p *SimulatedPortfolio) addTransaction(tick datamodels.Tick, side datamodels.OrderSide, units, total float64) {
	transaction := datamodels.Transaction{
		TickIndex: tick.Index,
		Timestamp: tick.Timestamp,
		Side:      side,
		Units:     units,
		Price:     tick.Price,
		Total:     total,
	}
	p.transactions = append(p.transactions, transaction)
	slog.Debug("Portfolio executed trade", "side", side, "tick", tick.Index, "price", tick.Price, "units", units)

	if p.tradeStore != nil {
		trade := datamodels.SimulationTrade{
			RunId:     p.runId,
			TickIndex: tick.Index,
			Side:      side,
			Price:     tick.Price,
			Units:     units,
			Total:     total,
			Timestamp: tick.Timestamp,
		}
		if err := p.tradeStore.WriteTrade(context.Background(), trade); err != nil {
			slog.Error("Portfolio failed to store trade", "tick", tick.Index, "error", err)
		}
	}
}

func (p *SimulatedPortfolio) record(tick datamodels.Tick, signal datamodels.SignalType, value float64) datamodels.PortfolioValue {
	p.lastIndex = tick.Index
	p.lastValue = datamodels.PortfolioValue{
		Index:     tick.Index,
		Timestamp: tick.Timestamp,
		Value:     value,
		Cash:      p.state.Cash,
		Units:     p.state.Units,
	}
	p.updatePortfolioMetrics(tick, signal, value)
	return p.lastValue
}

func calculatePortfolioGrowthPct(initialValue float64, currentValue float64) float64 {
	if initialValue == 0 {
		return 0
	}
	return (currentValue - initialValue) / initialValue
}

func calculateDrawdown(highestValue float64, currentValue float64) float64 {
	if highestValue == 0 {
		return 0
	}
	if currentValue > highestValue {
		return 0
	}
	return (highestValue - currentValue) / highestValue
}

func (p *SimulatedPortfolio) updatePortfolioMetrics(tick datamodels.Tick, signal datamodels.SignalType, value float64) {
	p.latestMetrics = datamodels.PortfolioRealTimeMetrics{
		TickIndex:          tick.Index,
		Timestamp:          tick.Timestamp,
		Price:              tick.Price,
		Signal:             signal,
		TotalValue:         value,
		CashBalance:        p.state.Cash,
		Units:              p.state.Units,
		PortfolioGrowthPct: calculatePortfolioGrowthPct(p.initialBalance, value),
		Drawdown:           calculateDrawdown(p.highestValue, value),
		HighestValue:       p.highestValue,
		LowestValue:        p.lowestValue,
	}

	if p.metricsWriter == nil {
		return
	}
	metricsBytes, err := json.Marshal(p.latestMetrics)
	if err != nil {
		slog.Error("Portfolio has error marshalling json from metrics", "error", err, "metrics", p.latestMetrics)
		return
	}
	writableMetric := datamodels.Metric{
		MetricGeneratorId:   p.id,
		MetricGeneratorName: p.GetName(),
		MetricGeneratorType: datamodels.MetricGeneratorTypePortfolio,
		MetricTime:          tick.Timestamp,
		MetricName:          datamodels.MetricNamePortfolioMetrics,
		MetricValue:         metricsBytes,
	}
	if err := p.metricsWriter.Write(context.Background(), writableMetric); err != nil {
		slog.Warn("Portfolio failed to write metrics", "tick", tick.Index, "error", err)
	}
}
