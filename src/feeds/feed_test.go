package feeds

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantsim/src/datamodels"
)

func newSeededGenerator(t *testing.T, seed int64) *PriceGenerator {
	t.Helper()
	g, err := NewPriceGenerator().WithSeed(seed).Build()
	require.NoError(t, err)
	return g
}

func TestInitialSeriesIsCumulativeSum(t *testing.T) {
	g := newSeededGenerator(t, 42)
	series := g.InitialSeries(100, 100)
	require.Len(t, series, 100)

	reference := rand.New(rand.NewSource(42))
	cumulative := 0.0
	for i, tick := range series {
		cumulative += reference.NormFloat64() * datamodels.DefaultPriceVolatility
		assert.InDelta(t, 100+cumulative, tick.Price, 1e-12, "tick %d", i)
		assert.Equal(t, i, tick.Index)
	}
}

func TestInitialSeriesTimestampsHourly(t *testing.T) {
	g := newSeededGenerator(t, 1)
	series := g.InitialSeries(5, 100)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, tick := range series {
		assert.Equal(t, start.Add(time.Duration(i)*time.Hour), tick.Timestamp)
	}
}

func TestInitialSeriesEmpty(t *testing.T) {
	g := newSeededGenerator(t, 1)
	assert.Empty(t, g.InitialSeries(0, 100))
	assert.Empty(t, g.InitialSeries(-3, 100))
}

func TestGeneratorDeterministic(t *testing.T) {
	a := newSeededGenerator(t, 99)
	b := newSeededGenerator(t, 99)
	assert.Equal(t, a.InitialSeries(50, 100), b.InitialSeries(50, 100))

	lastA := datamodels.Tick{Index: 49, Price: 100}
	lastB := lastA
	for i := 0; i < 20; i++ {
		lastA = a.NextTick(lastA)
		lastB = b.NextTick(lastB)
		assert.Equal(t, lastA, lastB)
	}
}

func TestNextTickAdvancesIndexAndClock(t *testing.T) {
	start := time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC)
	g, err := NewPriceGenerator().
		WithSeed(3).
		WithClock(NewStepClock(start, time.Minute)).
		Build()
	require.NoError(t, err)

	next := g.NextTick(datamodels.Tick{Index: 9, Timestamp: start.Add(9 * time.Minute), Price: 50})
	assert.Equal(t, 10, next.Index)
	assert.Equal(t, start.Add(10*time.Minute), next.Timestamp)
	assert.NotEqual(t, 50.0, next.Price)
}

func TestZeroVolatilityIsFlat(t *testing.T) {
	g, err := NewPriceGenerator().WithSeed(5).WithVolatility(0).Build()
	require.NoError(t, err)
	for _, tick := range g.InitialSeries(10, 100) {
		assert.Equal(t, 100.0, tick.Price)
	}
	assert.Equal(t, 100.0, g.NextPrice(100))
}

func TestBuildRejectsNegativeVolatility(t *testing.T) {
	_, err := NewPriceGenerator().WithVolatility(-1).Build()
	assert.Error(t, err)
}

func TestPriceGeneratorFromConfig(t *testing.T) {
	cfg := datamodels.NewDefaultSimulationConfig()
	cfg.Seed = 11
	cfg.StartTime = "2025-02-03T04:00:00Z"
	cfg.TickInterval = 30 * time.Minute

	a, err := PriceGeneratorFromConfig(&cfg)
	require.NoError(t, err)
	b, err := PriceGeneratorFromConfig(&cfg)
	require.NoError(t, err)

	seriesA := a.InitialSeries(3, cfg.StartingPrice)
	assert.Equal(t, seriesA, b.InitialSeries(3, cfg.StartingPrice))
	assert.Equal(t, time.Date(2025, 2, 3, 4, 30, 0, 0, time.UTC), seriesA[1].Timestamp)
}

func TestScriptedFeed(t *testing.T) {
	feed := NewScriptedFeed([]float64{10, 11, 12})
	initial := feed.InitialSeries(2, 999)
	require.Len(t, initial, 2)
	assert.Equal(t, 10.0, initial[0].Price)
	assert.Equal(t, 1, feed.Remaining(initial[1]))

	next := feed.NextTick(initial[1])
	assert.Equal(t, 12.0, next.Price)
	assert.Equal(t, 2, next.Index)
	assert.Equal(t, 0, feed.Remaining(next))

	past := feed.NextTick(next)
	assert.Equal(t, 12.0, past.Price)
	assert.True(t, past.Timestamp.After(next.Timestamp))

	assert.Len(t, feed.InitialSeries(10, 0), 3)
}

func TestWallClockStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewWallClock()
	c.now = func() time.Time { return fixed }
	first := c.TimeAt(0)
	second := c.TimeAt(1)
	assert.Equal(t, fixed, first)
	assert.True(t, second.After(first))
}
