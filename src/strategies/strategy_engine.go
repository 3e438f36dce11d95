package strategies

/*
A strategy engine wraps a signal function supplier. The simulation hands it a
trailing window of ticks and gets back one signal; the engine reports every
actionable signal to its metrics writer.
*/

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

// SignalEvent is the metric payload for one actionable signal.
type SignalEvent struct {
	TickIndex int                   `json:"tick_index"`
	Timestamp time.Time             `json:"timestamp"`
	Price     float64               `json:"price"`
	Signal    datamodels.SignalType `json:"signal"`
}

type StrategyEngine struct {
	id                 string
	name               string
	signalFuncSupplier SignalFunctionSupplier
	metricsWriter      metrics.MetricsWriter
	signalCounts       map[datamodels.SignalType]int
}

func NewStratEngine() *StrategyEngine {
	return &StrategyEngine{
		signalCounts: make(map[datamodels.SignalType]int),
	}
}

func (se *StrategyEngine) WithName(name string) *StrategyEngine {
	se.name = name
	return se
}

func (se *StrategyEngine) WithSignalFunctionSupplier(signalFuncSupplier SignalFunctionSupplier) *StrategyEngine {
	se.signalFuncSupplier = signalFuncSupplier
	return se
}

func (se *StrategyEngine) WithMetricsWriter(metricsWriter metrics.MetricsWriter) *StrategyEngine {
	se.metricsWriter = metricsWriter
	return se
}

func (se *StrategyEngine) Build() (*StrategyEngine, error) {
	if se.signalFuncSupplier == nil {
		return nil, errors.New("signal function supplier is required")
	}
	if se.signalFuncSupplier.GetWindowSize() < 1 {
		return nil, errors.Newf("signal function %s has no window", se.signalFuncSupplier.GetName())
	}
	if se.name == "" {
		se.name = se.signalFuncSupplier.GetName()
	}
	se.id = general.GenerateUUID5StringFromByteArray([]byte(se.name + time.Now().String()))
	return se, nil
}

func (se *StrategyEngine) GetName() string {
	return se.name
}

func (se *StrategyEngine) GetId() string {
	return se.id
}

// WindowSize is how many trailing ticks Evaluate needs.
func (se *StrategyEngine) WindowSize() int {
	return se.signalFuncSupplier.GetWindowSize()
}

// Evaluate returns the signal for the last tick of window and records it.
func (se *StrategyEngine) Evaluate(ctx context.Context, window []datamodels.Tick) datamodels.SignalType {
	if len(window) == 0 {
		return datamodels.SignalHold
	}
	signal := se.Compute(window)
	se.Observe(ctx, window[len(window)-1], signal)
	return signal
}

// Compute is Evaluate without any bookkeeping.
func (se *StrategyEngine) Compute(window []datamodels.Tick) datamodels.SignalType {
	if len(window) == 0 {
		return datamodels.SignalHold
	}
	return se.signalFuncSupplier.GetSignalFunc()(window)
}

// Observe counts a signal computed for tick and reports it if it is actionable.
func (se *StrategyEngine) Observe(ctx context.Context, tick datamodels.Tick, signal datamodels.SignalType) {
	se.record(ctx, tick, signal)
}

// EvaluateSeries returns one signal per tick of history.
func (se *StrategyEngine) EvaluateSeries(ctx context.Context, history []datamodels.Tick) []datamodels.SignalType {
	signals := se.signalFuncSupplier.GetSeriesFunc()(history)
	for i, signal := range signals {
		se.record(ctx, history[i], signal)
	}
	return signals
}

func (se *StrategyEngine) SignalCounts() map[datamodels.SignalType]int {
	out := make(map[datamodels.SignalType]int, len(se.signalCounts))
	for k, v := range se.signalCounts {
		out[k] = v
	}
	return out
}

func (se *StrategyEngine) record(ctx context.Context, tick datamodels.Tick, signal datamodels.SignalType) {
	se.signalCounts[signal]++
	if signal == datamodels.SignalHold || se.metricsWriter == nil {
		return
	}
	slog.Debug("Strategy emitted signal", "strategy", se.name, "index", tick.Index, "signal", signal, "price", tick.Price)

	eventBytes, err := json.Marshal(SignalEvent{
		TickIndex: tick.Index,
		Timestamp: tick.Timestamp,
		Price:     tick.Price,
		Signal:    signal,
	})
	if err != nil {
		slog.Error("Strategy failed to marshal signal event", "error", err)
		return
	}
	metric := datamodels.Metric{
		MetricGeneratorId:   se.id,
		MetricGeneratorName: se.name,
		MetricGeneratorType: datamodels.MetricGeneratorTypeStrategy,
		MetricTime:          tick.Timestamp,
		MetricName:          "signal",
		MetricValue:         eventBytes,
	}
	if err := se.metricsWriter.Write(ctx, metric); err != nil {
		slog.Error("Strategy failed to write signal metric", "strategy", se.name, "error", err)
	}
}
