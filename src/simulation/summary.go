package simulation

import (
	"encoding/json"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// Summary describes a finished or running backtest.
type Summary struct {
	Ticks          int                       `json:"ticks"`
	StartTime      time.Time                 `json:"start_time"`
	EndTime        time.Time                 `json:"end_time"`
	InitialCapital float64                   `json:"initial_capital"`
	FinalValue     float64                   `json:"final_value"`
	TotalReturn    float64                   `json:"total_return"`
	MaxDrawdown    float64                   `json:"max_drawdown"`
	Volatility     float64                   `json:"volatility"`
	Sharpe         float64                   `json:"sharpe"`
	BuySignals     int                       `json:"buy_signals"`
	SellSignals    int                       `json:"sell_signals"`
	Buys           int                       `json:"buys"`
	Sells          int                       `json:"sells"`
	Exposure       float64                   `json:"exposure"`
	FinalState     datamodels.PortfolioState `json:"final_state"`
}

// Summarize computes per-tick statistics over records. Volatility is the sample
// standard deviation of tick to tick returns and Sharpe is their mean over that
// deviation, with no risk free rate and no annualization.
func Summarize(records []datamodels.StepRecord, initialCapital float64) Summary {
	summary := Summary{
		Ticks:          len(records),
		InitialCapital: initialCapital,
	}
	if len(records) == 0 {
		return summary
	}

	first := records[0]
	last := records[len(records)-1]
	summary.StartTime = first.Timestamp
	summary.EndTime = last.Timestamp
	summary.FinalValue = last.PortfolioValue
	summary.FinalState = datamodels.PortfolioState{Cash: last.Cash, Units: last.Units}
	if initialCapital > 0 {
		summary.TotalReturn = (last.PortfolioValue - initialCapital) / initialCapital
	}

	returns := make(stats.Float64Data, 0, len(records))
	peak := math.Inf(-1)
	holding := 0
	for i, record := range records {
		switch record.Signal {
		case datamodels.SignalBuy:
			summary.BuySignals++
		case datamodels.SignalSell:
			summary.SellSignals++
		}
		if record.Units > 0 {
			holding++
		}
		if record.PortfolioValue > peak {
			peak = record.PortfolioValue
		}
		if peak > 0 {
			summary.MaxDrawdown = max(summary.MaxDrawdown, (peak-record.PortfolioValue)/peak)
		}
		if i == 0 {
			continue
		}
		prev := records[i-1]
		if prev.Units == 0 && record.Units > 0 {
			summary.Buys++
		}
		if prev.Units > 0 && record.Units == 0 {
			summary.Sells++
		}
		if prev.PortfolioValue > 0 {
			returns = append(returns, record.PortfolioValue/prev.PortfolioValue-1)
		}
	}
	summary.Exposure = float64(holding) / float64(len(records))

	if len(returns) > 1 {
		std, err := stats.StandardDeviationSample(returns)
		if err == nil {
			summary.Volatility = std
		}
		mean, err := stats.Mean(returns)
		if err == nil && std > 0 {
			summary.Sharpe = mean / std
		}
	}
	return summary
}

// Metric packs the summary as a run_summary metric.
func (s Summary) Metric(generatorId, generatorName string) (datamodels.Metric, error) {
	value, err := json.Marshal(s)
	if err != nil {
		return datamodels.Metric{}, errors.Wrap(err, "failed to marshal summary")
	}
	return datamodels.Metric{
		MetricGeneratorId:   generatorId,
		MetricGeneratorName: generatorName,
		MetricGeneratorType: datamodels.MetricGeneratorTypeSimulation,
		MetricTime:          s.EndTime,
		MetricName:          datamodels.MetricNameRunSummary,
		MetricValue:         value,
	}, nil
}
