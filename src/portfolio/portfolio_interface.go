package portfolio

import (
	"quantsim/src/datamodels"
	"quantsim/src/metrics"
)

type Portfolio interface {
	// Core operations
	Seed(tick datamodels.Tick) (datamodels.PortfolioValue, error)
	OnTick(signal datamodels.SignalType, tick datamodels.Tick) (datamodels.PortfolioValue, error)
	State() datamodels.PortfolioState

	// Performance tracking
	GetTransactions() []datamodels.Transaction
	Metrics() datamodels.PortfolioRealTimeMetrics
	GetName() string
}

// SimulatedPortfolioFromConfig builds a portfolio holding config.InitialCapital in cash.
// metricsWriter and tradeStore may be nil.
func SimulatedPortfolioFromConfig(config *datamodels.SimulationConfig,
	runId string,
	metricsWriter metrics.MetricsWriter,
	tradeStore TradeStore) (*SimulatedPortfolio, error) {

	return NewSimulatedPortfolio().
		WithInitialBalance(config.InitialCapital).
		WithRunId(runId).
		WithMetricsWriter(metricsWriter).
		WithTradeStore(tradeStore).
		Build()
}
