package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// MultiMetricsWriter fans a metric out to every registered writer. A failing writer
// does not stop the others.
type MultiMetricsWriter struct {
	writers []MetricsWriter
	mu      sync.RWMutex
}

func NewMultiMetricsWriter(writers ...MetricsWriter) *MultiMetricsWriter {
	return &MultiMetricsWriter{
		writers: writers,
	}
}

func (w *MultiMetricsWriter) AddWriter(writer MetricsWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writers = append(w.writers, writer)
}

func (w *MultiMetricsWriter) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.writers)
}

// Paths lists the files written by every file backed writer.
func (w *MultiMetricsWriter) Paths() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var paths []string
	for _, writer := range w.writers {
		if fileWriter, ok := writer.(interface{ Paths() []string }); ok {
			paths = append(paths, fileWriter.Paths()...)
		}
	}
	return paths
}

func (w *MultiMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var errs []error
	for _, writer := range w.writers {
		if err := writer.Write(ctx, metric); err != nil {
			slog.Error("Failed to write metric",
				"writer", fmt.Sprintf("%T", writer),
				"metric", metric.MetricName,
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *MultiMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for _, writer := range w.writers {
		if err := writer.Close(); err != nil {
			slog.Error("Failed to close metrics writer",
				"writer", fmt.Sprintf("%T", writer),
				"error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
