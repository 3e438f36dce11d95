package simulation

import (
	"context"
	"encoding/json"

	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/utils/errors"
	"quantsim/src/utils/general"
)

// Publisher receives every record the simulation accepts, in index order.
type Publisher interface {
	Publish(ctx context.Context, record datamodels.StepRecord) error
}

type PublisherFunc func(ctx context.Context, record datamodels.StepRecord) error

func (f PublisherFunc) Publish(ctx context.Context, record datamodels.StepRecord) error {
	return f(ctx, record)
}

// MetricsPublisher turns records into step_record metrics.
type MetricsPublisher struct {
	writer        metrics.MetricsWriter
	generatorId   string
	generatorName string
}

func NewMetricsPublisher(writer metrics.MetricsWriter, generatorId, generatorName string) *MetricsPublisher {
	return &MetricsPublisher{
		writer:        writer,
		generatorId:   generatorId,
		generatorName: generatorName,
	}
}

func (p *MetricsPublisher) Publish(ctx context.Context, record datamodels.StepRecord) error {
	metric, err := StepRecordMetric(p.generatorId, p.generatorName, record)
	if err != nil {
		return err
	}
	return p.writer.Write(ctx, metric)
}

func StepRecordMetric(generatorId, generatorName string, record datamodels.StepRecord) (datamodels.Metric, error) {
	value, err := json.Marshal(record)
	if err != nil {
		return datamodels.Metric{}, errors.Wrap(err, "failed to marshal step record")
	}
	return datamodels.Metric{
		MetricGeneratorId:   generatorId,
		MetricGeneratorName: generatorName,
		MetricGeneratorType: datamodels.MetricGeneratorTypeSimulation,
		MetricTime:          record.Timestamp,
		MetricName:          datamodels.MetricNameStepRecord,
		MetricValue:         value,
	}, nil
}

// RecentRecords keeps the newest records for clients that connect mid-run.
type RecentRecords struct {
	buffer *general.TimedBuffer[datamodels.StepRecord]
}

func NewRecentRecords(size int) *RecentRecords {
	return &RecentRecords{
		buffer: general.NewTimedBuffer[datamodels.StepRecord](size),
	}
}

func (r *RecentRecords) Publish(ctx context.Context, record datamodels.StepRecord) error {
	r.buffer.AddElement(record)
	return nil
}

func (r *RecentRecords) Records() []datamodels.StepRecord {
	return r.buffer.GetElements()
}

func (r *RecentRecords) Latest() (datamodels.StepRecord, bool) {
	return r.buffer.GetLatestElement()
}
