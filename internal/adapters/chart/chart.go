// Package chart renders report charts with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Supported output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

const (
	defaultWidth    = 6 * vg.Inch
	defaultHeight   = 4 * vg.Inch
	defaultBarWidth = vg.Length(24)
)

// Sentinel errors.
var (
	ErrNoData        = errors.New("nothing to plot")
	ErrInvalidFormat = errors.New("unsupported chart format")
)

// Option configures a chart.
type Option func(*options)

type options struct {
	width, height vg.Length
	format        string
	threshold     float64
	title         string
}

// WithSize sets the canvas size.
func WithSize(width, height vg.Length) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithFormat selects png or svg output.
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithThreshold draws a horizontal reference line at pct.
func WithThreshold(pct float64) Option {
	return func(o *options) { o.threshold = pct }
}

// WithTitle overrides the chart title.
func WithTitle(title string) Option {
	return func(o *options) { o.title = title }
}

func apply(opts []Option, title string) (*options, error) {
	o := &options{width: defaultWidth, height: defaultHeight, format: FormatPNG, title: title}
	for _, opt := range opts {
		opt(o)
	}
	if o.format != FormatPNG && o.format != FormatSVG {
		return nil, fmt.Errorf("%q: %w", o.format, ErrInvalidFormat)
	}
	return o, nil
}

// TopicPerformance draws one bar per topic, topics in name order.
func TopicPerformance(w io.Writer, perf map[string]float64, opts ...Option) error {
	if len(perf) == 0 {
		return ErrNoData
	}
	o, err := apply(opts, "Topic performance")
	if err != nil {
		return err
	}

	topics := make([]string, 0, len(perf))
	for t := range perf {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	values := make(plotter.Values, len(topics))
	for i, t := range topics {
		values[i] = perf[t]
	}

	p := plot.New()
	p.Title.Text = o.title
	p.Y.Label.Text = "Accuracy (%)"
	p.Y.Min, p.Y.Max = 0, 100

	bars, err := plotter.NewBarChart(values, defaultBarWidth)
	if err != nil {
		return fmt.Errorf("bar chart: %w", err)
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(topics...)
	if o.threshold > 0 {
		p.Add(hline(o.threshold))
	}
	return render(w, p, o)
}

// ScoreHistory draws the score of each attempt in order.
func ScoreHistory(w io.Writer, scores []float64, opts ...Option) error {
	if len(scores) == 0 {
		return ErrNoData
	}
	o, err := apply(opts, "Score history")
	if err != nil {
		return err
	}

	pts := make(plotter.XYs, len(scores))
	for i, s := range scores {
		pts[i].X = float64(i + 1)
		pts[i].Y = s
	}

	p := plot.New()
	p.Title.Text = o.title
	p.X.Label.Text = "Attempt"
	p.Y.Label.Text = "Score"
	p.X.Min = 0.5
	p.X.Max = float64(len(scores)) + 0.5

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("line chart: %w", err)
	}
	p.Add(line, points, plotter.NewGrid())
	if o.threshold > 0 {
		p.Add(hline(o.threshold))
	}
	return render(w, p, o)
}

func hline(y float64) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	return f
}

func render(w io.Writer, p *plot.Plot, o *options) error {
	wt, err := p.WriterTo(o.width, o.height, o.format)
	if err != nil {
		return fmt.Errorf("render %s: %w", o.format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", o.format, err)
	}
	return nil
}
