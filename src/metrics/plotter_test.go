package metrics

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"quantsim/src/datamodels"
)

func TestPlotterWritesPNG(t *testing.T) {
	plotter, err := NewMetricPlotter().
		WithRecords(sampleRecords()).
		WithSize(vg.Points(400), vg.Points(400)).
		Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, plotter.WritePNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestPlotterSavesFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "plots", "run.png")
	plotter, err := NewMetricPlotter().WithFileOutput(filename).Build()
	require.NoError(t, err)

	assert.Error(t, plotter.Plot(), "no records yet")

	var metrics []datamodels.Metric
	for _, record := range sampleRecords() {
		metrics = append(metrics, stepMetric(t, record))
	}
	metrics = append(metrics, datamodels.Metric{MetricName: datamodels.MetricNamePortfolioMetrics})
	require.NoError(t, plotter.UpdateMetrics(metrics))
	require.NoError(t, plotter.Plot())

	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestPlotterLiveWindow(t *testing.T) {
	plotter, err := NewMetricPlotter().WithLiveWindow(2).Build()
	require.NoError(t, err)
	for _, record := range sampleRecords() {
		plotter.AddRecord(record)
	}
	records := plotter.getRecords()
	require.Len(t, records, 2)
	assert.Equal(t, 5, records[1].Index)

	_, err = NewMetricPlotter().WithLiveWindow(-1).Build()
	assert.Error(t, err)
	_, err = NewMetricPlotter().WithSize(0, 10).Build()
	assert.Error(t, err)
}

func TestStepRecordsFromMetricsRejectsGarbage(t *testing.T) {
	_, err := StepRecordsFromMetrics([]datamodels.Metric{{
		MetricName:  datamodels.MetricNameStepRecord,
		MetricValue: []byte("not json"),
	}})
	assert.Error(t, err)
}
