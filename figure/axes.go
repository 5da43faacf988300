// Package figure holds the drawing context shared by the per-order plot calls
// of an echelle spectrum. An Axes accumulates traces, line markers and text
// and is rendered once, at the end, with go-chart.
package figure

import (
	"math"
)

// Style carries the passthrough styling options of a single trace or marker.
// Zero values fall back to the chart defaults.
type Style struct {
	Color  string // Hex, e.g. "#1f77b4"
	Width  float64
	Dashed bool
	Hidden bool
}

type Trace struct {
	Name  string
	X     []float64
	Y     []float64
	Style Style
}

// Marker is a vertical tick from Y0 to Y1 at X, e.g. a redshifted spectral
// line.
type Marker struct {
	X     float64
	Y0    float64
	Y1    float64
	Label string
	Style Style
}

type Annotation struct {
	X    float64
	Y    float64
	Text string
}

// Axes is one plotting surface. It is not safe for concurrent use; callers
// that want independent plots should make independent Axes.
type Axes struct {
	Width  int
	Height int

	title       string
	legend      bool
	traces      []Trace
	markers     []Marker
	annotations []Annotation

	xlimSet bool
	xmin    float64
	xmax    float64
}

// New returns an empty Axes that will render at width x height pixels. Non
// positive dimensions use 1024x512.
func New(width, height int) *Axes {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 512
	}

	return &Axes{Width: width, Height: height}
}

func (a *Axes) SetTitle(title string) {
	a.title = title
}

func (a *Axes) Title() string {
	return a.title
}

func (a *Axes) ShowLegend(show bool) {
	a.legend = show
}

func (a *Axes) LegendShown() bool {
	return a.legend
}

// AddTrace adds a line trace. x and y are copied.
func (a *Axes) AddTrace(name string, x, y []float64, style Style) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}

	xc := make([]float64, n)
	yc := make([]float64, n)
	copy(xc, x)
	copy(yc, y)

	a.traces = append(a.traces, Trace{Name: name, X: xc, Y: yc, Style: style})
}

func (a *Axes) AddMarker(x, y0, y1 float64, label string, style Style) {
	a.markers = append(a.markers, Marker{X: x, Y0: y0, Y1: y1, Label: label, Style: style})
}

func (a *Axes) Annotate(x, y float64, text string) {
	a.annotations = append(a.annotations, Annotation{X: x, Y: y, Text: text})
}

// SetXLim fixes the horizontal axis limits. Without it the chart autoscales.
func (a *Axes) SetXLim(min, max float64) {
	a.xmin, a.xmax = min, max
	a.xlimSet = true
}

// XLim returns the horizontal axis limits and whether they were set.
func (a *Axes) XLim() (min, max float64, ok bool) {
	return a.xmin, a.xmax, a.xlimSet
}

func (a *Axes) Traces() []Trace {
	return a.traces
}

func (a *Axes) Markers() []Marker {
	return a.markers
}

func (a *Axes) Annotations() []Annotation {
	return a.annotations
}

// YRange returns the finite extrema of every trace, or ok == false if there
// is no finite point at all.
func (a *Axes) YRange() (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, t := range a.traces {
		for _, v := range t.Y {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			ok = true
		}
	}

	return min, max, ok
}
