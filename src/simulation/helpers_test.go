package simulation

import (
	"encoding/json"

	"quantsim/src/datamodels"
)

func recordsFromMetrics(metrics []datamodels.Metric) ([]datamodels.StepRecord, error) {
	records := make([]datamodels.StepRecord, 0, len(metrics))
	for _, metric := range metrics {
		var record datamodels.StepRecord
		if err := json.Unmarshal(metric.MetricValue, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
