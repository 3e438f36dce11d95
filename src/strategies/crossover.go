package strategies

import (
	"math"

	"github.com/montanaflynn/stats"

	"quantsim/src/datamodels"
)

// Prices extracts the price column of a tick history.
func Prices(history []datamodels.Tick) []float64 {
	prices := make([]float64, len(history))
	for i, tick := range history {
		prices[i] = tick.Price
	}
	return prices
}

// SMA returns the trailing simple moving average of prices. Entries before the first
// full window are NaN: an undefined average, never zero.
func SMA(prices []float64, window int) []float64 {
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = meanEndingAt(prices, i, window)
	}
	return out
}

// meanEndingAt is the mean of prices[end-window+1 : end+1], or NaN when that range
// does not exist.
func meanEndingAt(prices []float64, end int, window int) float64 {
	if window <= 0 || end < window-1 || end >= len(prices) {
		return math.NaN()
	}
	mean, err := stats.Mean(stats.Float64Data(prices[end-window+1 : end+1]))
	if err != nil {
		return math.NaN()
	}
	return mean
}

// crossover classifies the transition from (prevShort, prevLong) to (short, long).
// Any undefined average yields Hold.
func crossover(prevShort, prevLong, short, long float64) datamodels.SignalType {
	if math.IsNaN(prevShort) || math.IsNaN(prevLong) || math.IsNaN(short) || math.IsNaN(long) {
		return datamodels.SignalHold
	}
	switch {
	case short > long && prevShort <= prevLong:
		return datamodels.SignalBuy
	case short < long && prevShort >= prevLong:
		return datamodels.SignalSell
	default:
		return datamodels.SignalHold
	}
}

// ComputeSignal classifies the most recent tick of history. Only the last
// longWindow+1 ticks are read, so callers may pass a trailing window.
func ComputeSignal(history []datamodels.Tick, shortWindow, longWindow int) datamodels.SignalType {
	n := len(history)
	if n < 2 {
		return datamodels.SignalHold
	}
	start := n - (max(shortWindow, longWindow) + 1)
	if start < 0 {
		start = 0
	}
	prices := Prices(history[start:])
	t := len(prices) - 1
	return crossover(
		meanEndingAt(prices, t-1, shortWindow),
		meanEndingAt(prices, t-1, longWindow),
		meanEndingAt(prices, t, shortWindow),
		meanEndingAt(prices, t, longWindow),
	)
}

// ComputeSignalSeries classifies every tick of history.
func ComputeSignalSeries(history []datamodels.Tick, shortWindow, longWindow int) []datamodels.SignalType {
	signals := make([]datamodels.SignalType, len(history))
	if len(history) == 0 {
		return signals
	}
	prices := Prices(history)
	shortMA := SMA(prices, shortWindow)
	longMA := SMA(prices, longWindow)
	signals[0] = datamodels.SignalHold
	for t := 1; t < len(prices); t++ {
		signals[t] = crossover(shortMA[t-1], longMA[t-1], shortMA[t], longMA[t])
	}
	return signals
}
