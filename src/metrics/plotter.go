package metrics

import (
	"bytes"
	"encoding/json"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"quantsim/src/datamodels"
	"quantsim/src/utils/errors"
)

var (
	buyColor  = color.RGBA{R: 0, G: 160, B: 60, A: 255}
	sellColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

// MetricPlotter renders step records as a stacked chart: price with trade markers,
// portfolio value, and drawdown from the running peak.
type MetricPlotter struct {
	liveWindow int
	records    []datamodels.StepRecord
	filename   string
	width      vg.Length
	height     vg.Length
	mutex      sync.RWMutex
}

func NewMetricPlotter() *MetricPlotter {
	return &MetricPlotter{
		liveWindow: 1000,
		width:      vg.Points(900),
		height:     vg.Points(900),
	}
}

// WithLiveWindow caps how many of the newest records are drawn. Zero draws all.
func (pb *MetricPlotter) WithLiveWindow(liveWindow int) *MetricPlotter {
	pb.liveWindow = liveWindow
	return pb
}

func (pb *MetricPlotter) WithFileOutput(filename string) *MetricPlotter {
	pb.filename = filename
	return pb
}

func (pb *MetricPlotter) WithSize(width, height vg.Length) *MetricPlotter {
	pb.width = width
	pb.height = height
	return pb
}

func (pb *MetricPlotter) WithRecords(records []datamodels.StepRecord) *MetricPlotter {
	pb.records = records
	return pb
}

func (pb *MetricPlotter) Build() (*MetricPlotter, error) {
	if pb.width <= 0 || pb.height <= 0 {
		return nil, errors.New("plot size must be positive")
	}
	if pb.liveWindow < 0 {
		return nil, errors.New("live window must not be negative")
	}
	return pb, nil
}

// AddRecord appends one record, trimming to the live window.
func (pb *MetricPlotter) AddRecord(record datamodels.StepRecord) {
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.records = append(pb.records, record)
	if pb.liveWindow > 0 && len(pb.records) > 2*pb.liveWindow {
		pb.records = append([]datamodels.StepRecord(nil), pb.records[len(pb.records)-pb.liveWindow:]...)
	}
}

// UpdateMetrics replaces the records with the step records found in metrics.
func (pb *MetricPlotter) UpdateMetrics(metrics []datamodels.Metric) error {
	records, err := StepRecordsFromMetrics(metrics)
	if err != nil {
		return err
	}
	pb.mutex.Lock()
	defer pb.mutex.Unlock()
	pb.records = records
	return nil
}

func StepRecordsFromMetrics(metrics []datamodels.Metric) ([]datamodels.StepRecord, error) {
	records := make([]datamodels.StepRecord, 0, len(metrics))
	for _, metric := range metrics {
		if metric.MetricName != datamodels.MetricNameStepRecord {
			continue
		}
		var record datamodels.StepRecord
		if err := json.Unmarshal(metric.MetricValue, &record); err != nil {
			return nil, errors.Wrap(err, "failed to decode step record metric")
		}
		records = append(records, record)
	}
	return records, nil
}

func (pb *MetricPlotter) getRecords() []datamodels.StepRecord {
	pb.mutex.RLock()
	defer pb.mutex.RUnlock()
	records := pb.records
	if pb.liveWindow > 0 && len(records) > pb.liveWindow {
		records = records[len(records)-pb.liveWindow:]
	}
	return append([]datamodels.StepRecord(nil), records...)
}

// Plot saves the chart to the configured file.
func (pb *MetricPlotter) Plot() error {
	if pb.filename == "" {
		return errors.New("no output file set")
	}
	if err := os.MkdirAll(filepath.Dir(pb.filename), 0755); err != nil {
		return errors.Wrap(err, "failed to create plot directory")
	}
	var buf bytes.Buffer
	if err := pb.WritePNG(&buf); err != nil {
		return err
	}
	slog.Info("MetricPlotter writing plot", "filename", pb.filename)
	return os.WriteFile(pb.filename, buf.Bytes(), 0644)
}

// WritePNG renders the current records as a PNG image.
func (pb *MetricPlotter) WritePNG(w io.Writer) error {
	records := pb.getRecords()
	if len(records) == 0 {
		return errors.New("no records to plot")
	}

	plots, err := buildStepRecordPlots(records)
	if err != nil {
		return err
	}

	img := vgimg.New(pb.width, pb.height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter * 2,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(10),
	}
	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return errors.Wrap(err, "failed to encode png")
	}
	return nil
}

func buildStepRecordPlots(records []datamodels.StepRecord) ([]*plot.Plot, error) {
	prices := make(plotter.XYs, len(records))
	values := make(plotter.XYs, len(records))
	drawdowns := make(plotter.XYs, len(records))
	buys := plotter.XYs{}
	sells := plotter.XYs{}

	peak := 0.0
	for i, r := range records {
		x := float64(r.Timestamp.Unix())
		prices[i] = plotter.XY{X: x, Y: r.Price}
		values[i] = plotter.XY{X: x, Y: r.PortfolioValue}
		if r.PortfolioValue > peak {
			peak = r.PortfolioValue
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - r.PortfolioValue) / peak
		}
		drawdowns[i] = plotter.XY{X: x, Y: -dd}
		switch r.Signal {
		case datamodels.SignalBuy:
			buys = append(buys, prices[i])
		case datamodels.SignalSell:
			sells = append(sells, prices[i])
		}
	}

	pricePlot := newTimePlot("Price", "price")
	if err := addLine(pricePlot, "price", prices, 0); err != nil {
		return nil, err
	}
	if err := addMarkers(pricePlot, "buy", buys, draw.TriangleGlyph{}, buyColor); err != nil {
		return nil, err
	}
	if err := addMarkers(pricePlot, "sell", sells, draw.CrossGlyph{}, sellColor); err != nil {
		return nil, err
	}

	valuePlot := newTimePlot("Portfolio value", "value")
	if err := addLine(valuePlot, "portfolio", values, 1); err != nil {
		return nil, err
	}

	drawdownPlot := newTimePlot("Drawdown", "fraction of peak")
	if err := addLine(drawdownPlot, "drawdown", drawdowns, 2); err != nil {
		return nil, err
	}

	return []*plot.Plot{pricePlot, valuePlot, drawdownPlot}, nil
}

func newTimePlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	return p
}

func addLine(p *plot.Plot, name string, pts plotter.XYs, colorIndex int) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s line", name)
	}
	line.Color = plotutil.Color(colorIndex)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

func addMarkers(p *plot.Plot, name string, pts plotter.XYs, shape draw.GlyphDrawer, c color.Color) error {
	if len(pts) == 0 {
		return nil
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s markers", name)
	}
	scatter.GlyphStyle.Shape = shape
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(4)
	p.Add(scatter)
	p.Legend.Add(name, scatter)
	return nil
}
