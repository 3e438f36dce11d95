package feeds

import (
	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// TickSource hands the simulation one new tick at a time.
type TickSource interface {
	// InitialSeries seeds the price history with n ticks starting near start.
	InitialSeries(n int, start float64) []datamodels.Tick
	// NextTick returns the tick that follows last.
	NextTick(last datamodels.Tick) datamodels.Tick
	GetName() string
}

var ErrFeedExhausted = errors.Sentinel("scripted feed exhausted")

// ScriptedFeed replays a fixed price list, one entry per tick index. Used for
// deterministic scenarios and replays of recorded runs.
type ScriptedFeed struct {
	prices []float64
	clock  Clock
}

func NewScriptedFeed(prices []float64) *ScriptedFeed {
	return &ScriptedFeed{
		prices: append([]float64(nil), prices...),
		clock:  NewDefaultStepClock(),
	}
}

func (f *ScriptedFeed) WithClock(clock Clock) *ScriptedFeed {
	f.clock = clock
	return f
}

// InitialSeries ignores start: the script already fixes the prices.
func (f *ScriptedFeed) InitialSeries(n int, start float64) []datamodels.Tick {
	if n > len(f.prices) {
		n = len(f.prices)
	}
	ticks := make([]datamodels.Tick, 0, n)
	for i := 0; i < n; i++ {
		ticks = append(ticks, f.tickAt(i))
	}
	return ticks
}

// NextTick past the end of the script repeats the last price; callers that care
// check Remaining first.
func (f *ScriptedFeed) NextTick(last datamodels.Tick) datamodels.Tick {
	index := last.Index + 1
	if index >= len(f.prices) {
		return datamodels.Tick{Index: index, Timestamp: f.clock.TimeAt(index), Price: last.Price}
	}
	return f.tickAt(index)
}

func (f *ScriptedFeed) Remaining(last datamodels.Tick) int {
	remaining := len(f.prices) - (last.Index + 1)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (f *ScriptedFeed) Len() int {
	return len(f.prices)
}

func (f *ScriptedFeed) GetName() string {
	return "scripted"
}

func (f *ScriptedFeed) tickAt(i int) datamodels.Tick {
	return datamodels.Tick{Index: i, Timestamp: f.clock.TimeAt(i), Price: f.prices[i]}
}

// TickSourceFromConfig replays cfg.PriceFile when set and walks randomly otherwise.
func TickSourceFromConfig(cfg *datamodels.SimulationConfig) (TickSource, error) {
	if cfg.PriceFile != "" {
		feed, err := NewCsvFeedBuilder(cfg.PriceFile).Build()
		if err != nil {
			return nil, err
		}
		return feed, nil
	}
	return PriceGeneratorFromConfig(cfg)
}
