package figure

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

type Format int

const (
	PNG Format = iota
	SVG
)

// FormatFromPath picks the output format from the file extension, defaulting
// to PNG.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return SVG
	}

	return PNG
}

// Chart converts the accumulated state into a go-chart Chart.
func (a *Axes) Chart() chart.Chart {
	series := make([]chart.Series, 0, len(a.traces)+len(a.markers)+1)

	for _, t := range a.traces {
		series = append(series, chart.ContinuousSeries{
			Name:    t.Name,
			Style:   chartStyle(t.Style),
			XValues: t.X,
			YValues: t.Y,
		})
	}

	labels := make([]chart.Value2, 0, len(a.markers)+len(a.annotations))
	for _, m := range a.markers {
		series = append(series, chart.ContinuousSeries{
			Style:   chartStyle(m.Style),
			XValues: []float64{m.X, m.X},
			YValues: []float64{m.Y0, m.Y1},
		})
		if m.Label != "" {
			labels = append(labels, chart.Value2{XValue: m.X, YValue: m.Y1, Label: m.Label})
		}
	}
	for _, an := range a.annotations {
		labels = append(labels, chart.Value2{XValue: an.X, YValue: an.Y, Label: an.Text})
	}
	if len(labels) > 0 {
		series = append(series, chart.AnnotationSeries{Annotations: labels})
	}

	graph := chart.Chart{
		Title:  a.title,
		Width:  a.Width,
		Height: a.Height,
		XAxis: chart.XAxis{
			Name: "Wavelength (Angstroms)",
		},
		YAxis: chart.YAxis{
			Name: "Relative Flux",
		},
		Series: series,
	}

	if a.title == "" {
		graph.TitleStyle = chart.Hidden()
	}

	if a.xlimSet {
		graph.XAxis.Range = &chart.ContinuousRange{Min: a.xmin, Max: a.xmax}
	}

	// go-chart refuses to draw a zero-height range, which a flat spectrum
	// would produce.
	if ymin, ymax, ok := a.YRange(); ok && ymin == ymax {
		pad := 1.0
		if ymin != 0 {
			pad = 0.1 * math.Abs(ymin)
		}
		graph.YAxis.Range = &chart.ContinuousRange{Min: ymin - pad, Max: ymax + pad}
	}

	if a.legend {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	return graph
}

// Render draws the Axes to w.
func (a *Axes) Render(w io.Writer, format Format) error {
	if len(a.traces) == 0 {
		return fmt.Errorf("figure: nothing to render")
	}

	graph := a.Chart()

	var provider chart.RendererProvider
	switch format {
	case SVG:
		provider = chart.SVG
	default:
		provider = chart.PNG
	}

	if err := graph.Render(provider, w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

func chartStyle(s Style) chart.Style {
	out := chart.Style{
		Hidden:      s.Hidden,
		StrokeWidth: s.Width,
	}

	if s.Color != "" {
		out.StrokeColor = drawing.ColorFromHex(strings.TrimPrefix(s.Color, "#"))
	}

	if s.Dashed {
		out.StrokeDashArray = []float64{5.0, 5.0}
	}

	return out
}
