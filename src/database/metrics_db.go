package database

import (
	"context"

	"quantsim/src/datamodels"
)

type MetricsDatabase interface {
	CreateNewMetricGenerator(ctx context.Context, metricGenerator datamodels.MetricGenerator) (int64, error)
	WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error)
}

func (a *databaseImplementation) CreateNewMetricGenerator(ctx context.Context, metricGenerator datamodels.MetricGenerator) (int64, error) {
	result := a.gormDb.WithContext(ctx).Create(&metricGenerator)
	return result.RowsAffected, result.Error
}

func (a *databaseImplementation) WriteNewMetric(ctx context.Context, metric datamodels.Metric) (int64, error) {
	result := a.gormDb.WithContext(ctx).Create(&metric)
	return result.RowsAffected, result.Error
}
