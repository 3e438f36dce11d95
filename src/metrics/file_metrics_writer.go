package metrics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatJSON FileFormat = "json"
)

func ParseFileFormat(raw string) (FileFormat, error) {
	switch strings.ToLower(raw) {
	case "", "csv":
		return FormatCSV, nil
	case "json", "jsonl":
		return FormatJSON, nil
	default:
		return "", errors.Newf("unknown metrics file format: %s", raw)
	}
}

var csvLeadingColumns = []string{"metric_time", "metric_generator_name", "metric_generator_type", "metric_name"}

type csvTarget struct {
	writer  *csv.Writer
	columns []string
}

// FileMetricsWriter writes one file per generator and metric name. CSV rows flatten the
// top level keys of the metric's json value into columns fixed by the first row.
type FileMetricsWriter struct {
	dateId     string
	baseDir    string
	files      map[string]*os.File
	csvTargets map[string]*csvTarget
	fileFormat FileFormat
	paths      []string
	mu         sync.Mutex
}

func NewFileMetricsWriter(baseDir string, format FileFormat) (*FileMetricsWriter, error) {
	if baseDir == "" {
		return nil, errors.New("metrics file path is required for the file writer")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create metrics directory")
	}
	now := time.Now()

	return &FileMetricsWriter{
		dateId:     fmt.Sprintf("%d%02d%02d", now.Year(), now.Month(), now.Day()),
		baseDir:    baseDir,
		files:      make(map[string]*os.File),
		csvTargets: make(map[string]*csvTarget),
		fileFormat: format,
	}, nil
}

// Paths lists every file created so far.
func (w *FileMetricsWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.paths...)
}

func (w *FileMetricsWriter) Write(ctx context.Context, metric datamodels.Metric) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	writerId := fmt.Sprintf("%s_%s_%s", w.dateId, sanitize(metric.MetricGeneratorName), sanitize(metric.MetricName))
	file, ok := w.files[writerId]
	if !ok {
		filename := filepath.Join(w.baseDir, fmt.Sprintf("%s.%s", writerId, w.fileFormat))
		f, err := os.OpenFile(filename, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return errors.Wrap(err, "failed to open metrics file")
		}
		w.files[writerId] = f
		w.paths = append(w.paths, filename)
		file = f
	}

	switch w.fileFormat {
	case FormatJSON:
		line, err := json.Marshal(jsonLine(metric))
		if err != nil {
			return errors.Wrap(err, "failed to marshal metric to JSON")
		}
		if _, err := file.Write(append(line, '\n')); err != nil {
			return errors.Wrap(err, "failed to write JSON metric")
		}
	case FormatCSV:
		return w.writeCSV(writerId, file, metric)
	}
	return nil
}

func (w *FileMetricsWriter) writeCSV(writerId string, file *os.File, metric datamodels.Metric) error {
	values := map[string]any{}
	if err := json.Unmarshal(metric.MetricValue, &values); err != nil {
		values = map[string]any{"value": string(metric.MetricValue)}
	}

	target, ok := w.csvTargets[writerId]
	if !ok {
		columns := make([]string, 0, len(values))
		for key := range values {
			columns = append(columns, key)
		}
		sort.Strings(columns)
		target = &csvTarget{writer: csv.NewWriter(file), columns: columns}
		w.csvTargets[writerId] = target
		if err := target.writer.Write(append(append([]string{}, csvLeadingColumns...), columns...)); err != nil {
			return errors.Wrap(err, "failed to write CSV headers")
		}
	}

	row := []string{
		metric.MetricTime.Format(time.RFC3339),
		metric.MetricGeneratorName,
		string(metric.MetricGeneratorType),
		metric.MetricName,
	}
	for _, column := range target.columns {
		row = append(row, formatCSVValue(values[column]))
	}
	if err := target.writer.Write(row); err != nil {
		return errors.Wrap(err, "failed to write CSV row")
	}
	target.writer.Flush()
	return target.writer.Error()
}

func formatCSVValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func jsonLine(metric datamodels.Metric) map[string]any {
	value := json.RawMessage(metric.MetricValue)
	if !json.Valid(value) {
		value = json.RawMessage("null")
	}
	return map[string]any{
		"metric_time":           metric.MetricTime,
		"metric_generator_id":   metric.MetricGeneratorId,
		"metric_generator_name": metric.MetricGeneratorName,
		"metric_generator_type": metric.MetricGeneratorType,
		"metric_name":           metric.MetricName,
		"metric_value":          value,
	}
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func (w *FileMetricsWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for source, file := range w.files {
		if target := w.csvTargets[source]; target != nil {
			target.writer.Flush()
			if err := target.writer.Error(); err != nil {
				slog.Error("Failed to flush CSV writer", "source", source, "error", err)
				errs = append(errs, err)
			}
		}
		if err := file.Close(); err != nil {
			slog.Error("Failed to close metrics file", "source", source, "error", err)
			errs = append(errs, err)
		}
	}
	w.files = make(map[string]*os.File)
	w.csvTargets = make(map[string]*csvTarget)
	return errors.Join(errs...)
}
