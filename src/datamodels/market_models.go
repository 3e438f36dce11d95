package datamodels

import (
	"fmt"
	"math"
	"time"
)

// Tick is a single price observation. Index is its position in the run's price history.
type Tick struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

func (t Tick) IsValidPrice() bool {
	return t.Price > 0 && !math.IsNaN(t.Price) && !math.IsInf(t.Price, 0)
}

type SignalType int

const (
	SignalSell SignalType = -1
	SignalHold SignalType = 0
	SignalBuy  SignalType = 1
)

func (s SignalType) String() string {
	switch s {
	case SignalBuy:
		return "buy"
	case SignalSell:
		return "sell"
	case SignalHold:
		return "hold"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

func (s SignalType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SignalType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "buy":
		*s = SignalBuy
	case "sell":
		*s = SignalSell
	case "hold":
		*s = SignalHold
	default:
		return fmt.Errorf("unknown signal type: %s", text)
	}
	return nil
}

// PortfolioState is the whole trading state of the single-asset portfolio.
// Outside of the seeded tick at most one of Cash and Units is positive.
type PortfolioState struct {
	Cash  float64 `json:"cash"`
	Units float64 `json:"units"`
}

func (s PortfolioState) Value(price float64) float64 {
	return s.Cash + s.Units*price
}

func (s PortfolioState) IsFlat() bool {
	return s.Units == 0
}

// PortfolioValue is one entry of the portfolio history, aligned with the tick of the same index.
type PortfolioValue struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Cash      float64   `json:"cash"`
	Units     float64   `json:"units"`
}

// StepRecord is what the simulation publishes for every tick it accepts.
type StepRecord struct {
	Index          int        `json:"index"`
	Timestamp      time.Time  `json:"timestamp"`
	Price          float64    `json:"price"`
	Signal         SignalType `json:"signal"`
	PortfolioValue float64    `json:"portfolio_value"`
	Cash           float64    `json:"cash"`
	Units          float64    `json:"units"`
}

func (r StepRecord) GetId() string {
	return fmt.Sprintf("%d", r.Index)
}

func (r StepRecord) GetTimestamp() time.Time {
	return r.Timestamp
}

func (r StepRecord) Tick() Tick {
	return Tick{Index: r.Index, Timestamp: r.Timestamp, Price: r.Price}
}
