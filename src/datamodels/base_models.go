package datamodels

import (
	"time"
)

type BaseModel struct {
	Id        int64 `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderSideFromSignal maps an actionable signal to the side of the trade it triggers.
func OrderSideFromSignal(signal SignalType) (OrderSide, bool) {
	switch signal {
	case SignalBuy:
		return OrderSideBuy, true
	case SignalSell:
		return OrderSideSell, true
	default:
		return "", false
	}
}

// SimulationRun is the row describing one simulation run in the metrics database.
type SimulationRun struct {
	BaseModel
	RunId          string    `gorm:"not null;uniqueIndex"`
	StartedAt      time.Time `gorm:"not null;index"`
	InitialCapital float64   `gorm:"not null"`
	ShortWindow    int       `gorm:"not null"`
	LongWindow     int       `gorm:"not null"`
	Seed           int64     `gorm:"not null"`
}

// SimulationTrade is one executed all-in or all-out trade.
type SimulationTrade struct {
	BaseModel
	RunId     string    `gorm:"not null;index"`
	TickIndex int       `gorm:"not null"`
	Side      OrderSide `gorm:"not null"`
	Price     float64   `gorm:"not null"`
	Units     float64   `gorm:"not null"`
	Total     float64   `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index"`
}
