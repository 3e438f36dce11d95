package database

import (
	"context"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// RunDatabase stores simulation runs and the trades they execute.
type RunDatabase interface {
	CreateSimulationRun(ctx context.Context, run datamodels.SimulationRun) error
	WriteTrade(ctx context.Context, trade datamodels.SimulationTrade) error
	GetTrades(ctx context.Context, runId string, side *datamodels.OrderSide) ([]datamodels.SimulationTrade, error)
}

func (d *databaseImplementation) CreateSimulationRun(ctx context.Context, run datamodels.SimulationRun) error {
	if run.RunId == "" {
		return errors.New("simulation run has no run id")
	}
	return d.gormDb.WithContext(ctx).Create(&run).Error
}

func (d *databaseImplementation) WriteTrade(ctx context.Context, trade datamodels.SimulationTrade) error {
	return d.gormDb.WithContext(ctx).Create(&trade).Error
}

func (d *databaseImplementation) GetTrades(
	ctx context.Context,
	runId string,
	side *datamodels.OrderSide) ([]datamodels.SimulationTrade, error) {

	query := d.gormDb.WithContext(ctx).Model(&datamodels.SimulationTrade{}).
		Where("run_id = ?", runId)
	if side != nil {
		query = query.Where("side = ?", *side)
	}

	var trades []datamodels.SimulationTrade
	if err := query.Order("tick_index").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}
