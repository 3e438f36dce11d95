package metrics

import (
	"context"
	"log/slog"

	"quantsim/src/database"
	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

// MetricsWriter interface defines methods for writing metrics
type MetricsWriter interface {
	Write(ctx context.Context, metric datamodels.Metric) error
	// Close flushes and releases any resources
	Close() error
}

// BuildMetricsWriter assembles the writers enabled in config. The websocket writer is
// returned separately so the server can register clients on it; it is nil when disabled.
// db may be nil when the database writer is off.
func BuildMetricsWriter(config *datamodels.MetricsWriterConfig, db database.MetricsDatabase) (*MultiMetricsWriter, *WebsocketMetricsWriter, error) {
	multi := NewMultiMetricsWriter()
	if config == nil {
		slog.Warn("MetricsWriterConfig is nil, metrics are not written anywhere")
		return multi, nil, nil
	}

	var wsWriter *WebsocketMetricsWriter
	if config.WsWriter {
		wsWriter = NewWebSocketMetricsWriter()
		multi.AddWriter(wsWriter)
	}
	if config.FileWriter {
		format, err := ParseFileFormat(config.FileFormat)
		if err != nil {
			return nil, nil, err
		}
		fileWriter, err := NewFileMetricsWriter(config.FilePath, format)
		if err != nil {
			return nil, nil, err
		}
		multi.AddWriter(fileWriter)
	}
	if config.DbWriter {
		if db == nil {
			return nil, nil, errors.New("db_writer is enabled but no database connection was given")
		}
		dbWriter, err := NewDBMetricsWriter(db)
		if err != nil {
			return nil, nil, err
		}
		multi.AddWriter(dbWriter)
	}
	return multi, wsWriter, nil
}
