package feeds

import (
	"math/rand"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// PriceGenerator produces a Gaussian random walk. It is the only source of randomness
// in a run: two generators built from equal seeds and clocks yield identical series.
type PriceGenerator struct {
	rng        *rand.Rand
	clock      Clock
	volatility float64
}

func NewPriceGenerator() *PriceGenerator {
	return &PriceGenerator{
		volatility: datamodels.DefaultPriceVolatility,
	}
}

func (g *PriceGenerator) WithRand(rng *rand.Rand) *PriceGenerator {
	g.rng = rng
	return g
}

func (g *PriceGenerator) WithSeed(seed int64) *PriceGenerator {
	g.rng = rand.New(rand.NewSource(seed))
	return g
}

func (g *PriceGenerator) WithClock(clock Clock) *PriceGenerator {
	g.clock = clock
	return g
}

func (g *PriceGenerator) WithVolatility(volatility float64) *PriceGenerator {
	g.volatility = volatility
	return g
}

func (g *PriceGenerator) Build() (*PriceGenerator, error) {
	if g.volatility < 0 {
		return nil, errors.Newf("volatility must not be negative, got %f", g.volatility)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if g.clock == nil {
		g.clock = NewDefaultStepClock()
	}
	return g, nil
}

// PriceGeneratorFromConfig wires the seed, clock and volatility of cfg. Seed 0 means time based.
func PriceGeneratorFromConfig(cfg *datamodels.SimulationConfig) (*PriceGenerator, error) {
	start, err := cfg.ParseStartTime()
	if err != nil {
		return nil, err
	}
	g := NewPriceGenerator().
		WithVolatility(cfg.PriceVolatility).
		WithClock(NewStepClock(start, cfg.TickInterval))
	if cfg.Seed != 0 {
		g = g.WithSeed(cfg.Seed)
	}
	return g.Build()
}

func (g *PriceGenerator) draw() float64 {
	return g.rng.NormFloat64() * g.volatility
}

// NextPrice returns previous plus one Normal(0, volatility) draw. No floor is applied.
func (g *PriceGenerator) NextPrice(previous float64) float64 {
	return previous + g.draw()
}

// InitialSeries returns n ticks whose prices are start plus the running sum of n draws,
// so the first tick is already one step away from start.
func (g *PriceGenerator) InitialSeries(n int, start float64) []datamodels.Tick {
	if n <= 0 {
		return []datamodels.Tick{}
	}
	ticks := make([]datamodels.Tick, n)
	cumulative := 0.0
	for i := range ticks {
		cumulative += g.draw()
		ticks[i] = datamodels.Tick{
			Index:     i,
			Timestamp: g.clock.TimeAt(i),
			Price:     start + cumulative,
		}
	}
	return ticks
}

func (g *PriceGenerator) NextTick(last datamodels.Tick) datamodels.Tick {
	index := last.Index + 1
	return datamodels.Tick{
		Index:     index,
		Timestamp: g.clock.TimeAt(index),
		Price:     g.NextPrice(last.Price),
	}
}

func (g *PriceGenerator) GetName() string {
	return "random_walk"
}
