package strategies

import (
	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/utils/errors"
)

func StrategyEngineFromConfig(config *datamodels.SimulationConfig, metricsWriter metrics.MetricsWriter) (*StrategyEngine, error) {
	signalFuncSupplier, err := BuildSignalFunctionSupplierFromConfig(config)
	if err != nil {
		return nil, err
	}

	strategyEngine := NewStratEngine().
		WithSignalFunctionSupplier(signalFuncSupplier)
	if metricsWriter != nil {
		strategyEngine.WithMetricsWriter(metricsWriter)
	}
	return strategyEngine.Build()
}

func BuildSignalFunctionSupplierFromConfig(config *datamodels.SimulationConfig) (SignalFunctionSupplier, error) {
	switch config.SignalType {
	case "", "crossover":
		if config.ShortWindow <= 0 || config.LongWindow <= 0 {
			return nil, errors.Newf("crossover needs positive windows, got %d/%d", config.ShortWindow, config.LongWindow)
		}
		return GetCrossoverSignalSupplier(config.ShortWindow, config.LongWindow), nil
	case "hold":
		return GetHoldSignalSupplier(), nil
	default:
		return nil, errors.Newf("unknown signal type: %s", config.SignalType)
	}
}
