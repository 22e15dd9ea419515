package charts

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/AlexisBnnft/Building-Waste/internal/analysis"
	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Kind selects a chart
type Kind string

// Chart kinds
const (
	KindBins      Kind = "bins"
	KindRegrouped Kind = "regrouped"
	KindWasteful  Kind = "wasteful"
	KindDemanding Kind = "demanding"
)

// Kinds lists every chart kind
var Kinds = []Kind{KindBins, KindRegrouped, KindWasteful, KindDemanding}

// ParseKind validates a chart name
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownChart, s)
}

// Options sets the image size and whether stacked bars are shown as
// fractions of each period's total.
type Options struct {
	Width     vg.Length
	Height    vg.Length
	Normalize bool
}

// DefaultOptions returns a 10x5 inch image with absolute values
func DefaultOptions() Options {
	return Options{Width: 10 * vg.Inch, Height: 5 * vg.Inch}
}

// Render draws the chart of the given kind as PNG.
func Render(w io.Writer, view *domain.AnalysisView, kind Kind, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}

	var (
		p   *plot.Plot
		err error
	)
	switch kind {
	case KindBins:
		p, err = BinsChart(view, opts.Normalize)
	case KindRegrouped:
		p, err = RegroupedChart(view, opts.Normalize)
	case KindWasteful:
		p, err = RankingChart("Top Wasteful Zones", view.TopWasteful, domain.ColorWasteful)
	case KindDemanding:
		p, err = RankingChart("Top Demanding Zones", view.TopDemanding, domain.ColorDemanding)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownChart, kind)
	}
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// BinsChart stacks the six comfort bins per period.
func BinsChart(view *domain.AnalysisView, normalize bool) (*plot.Plot, error) {
	colors := make(map[string]string, len(domain.BinKeys))
	labels := make(map[string]string, len(domain.BinKeys))
	for _, k := range domain.BinKeys {
		colors[string(k)] = domain.Bins[k].Color
		labels[string(k)] = string(k)
	}
	title := fmt.Sprintf("%s cooling by IAT bin (%s)", view.Building, frequencyName(view.Frequency))
	return stacked(title, view.Binned, view.Frequency, normalize, colors, labels)
}

// RegroupedChart stacks the wasted, excess and useful categories per period.
func RegroupedChart(view *domain.AnalysisView, normalize bool) (*plot.Plot, error) {
	colors := make(map[string]string, len(domain.Categories))
	labels := make(map[string]string, len(domain.Categories))
	for _, c := range domain.Categories {
		colors[string(c)] = domain.CategoryColors[c]
		labels[string(c)] = string(c)
	}
	title := fmt.Sprintf("%s cooling by category (%s)", view.Building, frequencyName(view.Frequency))
	return stacked(title, view.Regrouped, view.Frequency, normalize, colors, labels)
}

func stacked(title string, data domain.FrameData, freq string, normalize bool, colors, labels map[string]string) (*plot.Plot, error) {
	if data.Empty() {
		return nil, fmt.Errorf("%w: nothing to chart", domain.ErrEmptyInput)
	}

	frame := dataprocessing.FromData(data)
	if normalize {
		frame = analysis.Fractional(frame)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Cooling energy"
	if normalize {
		p.Y.Label.Text = "Fraction of total"
	}
	p.Legend.Top = true

	width := barWidth(frame.Len())
	var below *plotter.BarChart
	for j, column := range frame.Columns() {
		col, _ := frame.Column(column)
		bars, err := plotter.NewBarChart(finite(col), width)
		if err != nil {
			return nil, fmt.Errorf("bar chart %s: %w", column, err)
		}
		bars.LineStyle.Width = 0
		bars.Color = parseHex(colors[column], j)
		if below != nil {
			bars.StackOn(below)
		}
		below = bars
		p.Add(bars)
		p.Legend.Add(labels[column], bars)
	}

	p.NominalX(periodLabels(frame.Index(), freq)...)
	return p, nil
}

// RankingChart draws a horizontal bar per zone, largest at the top.
func RankingChart(title string, ranking domain.Ranking, hex string) (*plot.Plot, error) {
	if len(ranking.Rows) == 0 {
		return nil, fmt.Errorf("%w: no zones to rank", domain.ErrEmptyInput)
	}

	n := len(ranking.Rows)
	values := make(plotter.Values, n)
	names := make([]string, n)
	for i, r := range ranking.Rows {
		values[n-1-i] = r.Value
		names[n-1-i] = r.Zone
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = ranking.ValueLabel

	bars, err := plotter.NewBarChart(finite(values), barWidth(n))
	if err != nil {
		return nil, fmt.Errorf("ranking chart: %w", err)
	}
	bars.Horizontal = true
	bars.LineStyle.Width = 0
	bars.Color = parseHex(hex, 0)
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

func barWidth(n int) vg.Length {
	if n <= 0 {
		n = 1
	}
	return vg.Points(math.Max(2, math.Min(30, 500/float64(n))))
}

// finite replaces NaN and infinities, which plotter rejects, with 0.
func finite(xs []float64) plotter.Values {
	out := make(plotter.Values, len(xs))
	for i, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out[i] = x
		}
	}
	return out
}

func periodLabels(index []time.Time, freq string) []string {
	layout := "2006-01-02"
	switch analysis.Frequency(freq) {
	case analysis.Hourly:
		layout = "01-02 15h"
	case analysis.Monthly:
		layout = "2006-01"
	}
	labels := make([]string, len(index))
	for i, ts := range index {
		labels[i] = ts.Format(layout)
	}
	return labels
}

func frequencyName(freq string) string {
	return analysis.Frequency(freq).Name()
}

var fallbackPalette = []color.RGBA{
	{R: 0x34, G: 0x98, B: 0xdb, A: 0xff},
	{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	{R: 0x95, G: 0xa5, B: 0xa6, A: 0xff},
}

// parseHex decodes "#rrggbb". Anything else picks a fallback color.
func parseHex(hex string, i int) color.Color {
	s := strings.TrimPrefix(hex, "#")
	if len(s) == 6 {
		if v, err := strconv.ParseUint(s, 16, 32); err == nil {
			return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
		}
	}
	return fallbackPalette[i%len(fallbackPalette)]
}
