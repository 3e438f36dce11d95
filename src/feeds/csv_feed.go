package feeds

import (
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"quantsim/src/utils/errors"
)

// recordedClock replays timestamps read from a file and extrapolates past the end
// with the last observed spacing.
type recordedClock struct {
	times []time.Time
}

func (c *recordedClock) TimeAt(index int) time.Time {
	n := len(c.times)
	if index < n {
		return c.times[index]
	}
	step := time.Hour
	if n >= 2 {
		step = c.times[n-1].Sub(c.times[n-2])
	}
	return c.times[n-1].Add(time.Duration(index-n+1) * step)
}

type CsvFeedBuilder struct {
	filePath        string
	hasHeader       bool
	timestampColumn int
	priceColumn     int
}

// NewCsvFeedBuilder reads "timestamp,price" rows by default. Timestamps are RFC3339
// or unix seconds.
func NewCsvFeedBuilder(filePath string) *CsvFeedBuilder {
	return &CsvFeedBuilder{
		filePath:        filePath,
		hasHeader:       true,
		timestampColumn: 0,
		priceColumn:     1,
	}
}

func (b *CsvFeedBuilder) WithHasHeader(hasHeader bool) *CsvFeedBuilder {
	b.hasHeader = hasHeader
	return b
}

func (b *CsvFeedBuilder) WithColumns(timestampColumn, priceColumn int) *CsvFeedBuilder {
	b.timestampColumn = timestampColumn
	b.priceColumn = priceColumn
	return b
}

func (b *CsvFeedBuilder) Build() (*ScriptedFeed, error) {
	file, err := os.Open(b.filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open price file %s", b.filePath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	prices := make([]float64, 0)
	times := make([]time.Time, 0)
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read line %d of %s", line+1, b.filePath)
		}
		line++
		if line == 1 && b.hasHeader {
			continue
		}
		if len(record) <= b.timestampColumn || len(record) <= b.priceColumn {
			return nil, errors.Newf("line %d has %d columns", line, len(record))
		}
		ts, err := parseTimestamp(record[b.timestampColumn])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[b.priceColumn]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad price", line)
		}
		if len(times) > 0 && !ts.After(times[len(times)-1]) {
			return nil, errors.Newf("line %d: timestamp %s is not after the previous row", line, ts)
		}
		times = append(times, ts)
		prices = append(prices, price)
	}
	if len(prices) == 0 {
		return nil, errors.Newf("price file %s has no rows", b.filePath)
	}

	slog.Info("Loaded price file", "path", b.filePath, "rows", len(prices))
	return NewScriptedFeed(prices).WithClock(&recordedClock{times: times}), nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}
