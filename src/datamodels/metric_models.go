package datamodels

import (
	"encoding/json"
	"time"
)

type Transaction struct {
	TickIndex int       `json:"tick_index"`
	Timestamp time.Time `json:"timestamp"`
	Side      OrderSide `json:"side"`
	Units     float64   `json:"units"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
}

func (t *Transaction) Copy() Transaction {
	return Transaction{
		TickIndex: t.TickIndex,
		Timestamp: t.Timestamp,
		Side:      t.Side,
		Units:     t.Units,
		Price:     t.Price,
		Total:     t.Total,
	}
}

type PortfolioRealTimeMetrics struct {
	TickIndex          int        `json:"tick_index"`
	Timestamp          time.Time  `json:"timestamp"`
	Price              float64    `json:"price"`
	Signal             SignalType `json:"signal"`
	TotalValue         float64    `json:"total_value"`
	CashBalance        float64    `json:"cash_balance"`
	Units              float64    `json:"units"`
	PortfolioGrowthPct float64    `json:"portfolio_growth_pct"`
	Drawdown           float64    `json:"drawdown"`
	HighestValue       float64    `json:"highest_value"`
	LowestValue        float64    `json:"lowest_value"`
}

func (pm *PortfolioRealTimeMetrics) GetId() string {
	return pm.Timestamp.Format(time.RFC3339Nano)
}

func (pm *PortfolioRealTimeMetrics) GetTimestamp() time.Time {
	return pm.Timestamp
}

type MetricGeneratorType string

const (
	MetricGeneratorTypeSimulation MetricGeneratorType = "simulation"
	MetricGeneratorTypeStrategy   MetricGeneratorType = "strategy"
	MetricGeneratorTypePortfolio  MetricGeneratorType = "portfolio"
)

const (
	MetricNameStepRecord       = "step_record"
	MetricNamePortfolioMetrics = "portfolio_metrics"
	MetricNameRunSummary       = "run_summary"
)

// metric value is arbitrary json
type Metric struct {
	BaseModel
	MetricGeneratorId   string              `gorm:"not null;index" json:"metric_generator_id"`
	MetricGeneratorName string              `gorm:"not null;index" json:"metric_generator_name"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index" json:"metric_generator_type"`
	MetricTime          time.Time           `gorm:"not null;index" json:"metric_time"`
	MetricName          string              `gorm:"not null;index" json:"metric_name"`
	MetricValue         json.RawMessage     `gorm:"not null;type:json" json:"metric_value"`
}

type MetricGenerator struct {
	BaseModel
	MetricGeneratorName string              `gorm:"not null;index"`
	MetricGeneratorType MetricGeneratorType `gorm:"not null;index"`
}
