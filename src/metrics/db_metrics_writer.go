package metrics

import (
	"context"

	"quantsim/src/database"
	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

type DBMetricsWriter struct {
	db database.MetricsDatabase
}

func NewDBMetricsWriter(db database.MetricsDatabase) (*DBMetricsWriter, error) {
	if db == nil {
		return nil, errors.New("metrics database is nil")
	}
	return &DBMetricsWriter{
		db: db,
	}, nil
}

func (w *DBMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	if _, err := w.db.WriteNewMetric(ctx, metric); err != nil {
		return errors.Wrapf(err, "failed to store metric %s", metric.MetricName)
	}
	return nil
}

func (w *DBMetricsWriter) Close() error {
	return nil
}
