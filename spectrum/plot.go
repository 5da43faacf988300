package spectrum

import (
	"fmt"

	"github.com/carbocation/echelle/figure"
)

// Plot modes
const (
	ModeInput  = "input"
	ModeSmooth = "smooth"
)

// DefaultRMSColor is used for the noise trace when no color is given.
const DefaultRMSColor = "#d62728"

type PlotOptions struct {
	// Mode selects the raw ("input") or smoothed ("smooth") flux. For Smooth
	// it selects what gets smoothed.
	Mode string

	// Title, if non-empty, is set on the axes.
	Title string

	// Label names the trace; defaults to the spectrum's Name.
	Label string

	// ShowErr adds a sqrt(variance) trace when variance is present.
	ShowErr bool

	// Kernel is the smoothing kernel used by Smooth.
	Kernel string

	Verbose bool

	Style    figure.Style
	RMSStyle figure.Style
}

// Plot draws the spectrum on ax.
func (s *Spec1d) Plot(ax *figure.Axes, opts PlotOptions) error {
	if ax == nil {
		return fmt.Errorf("spectrum: nil axes")
	}

	flux, variance := s.flux, s.vari
	switch opts.Mode {
	case "", ModeInput:
	case ModeSmooth:
		if s.smoFlux == nil {
			return fmt.Errorf("spectrum: %s has not been smoothed", s.label())
		}
		flux, variance = s.smoFlux, s.smoVar
	default:
		return fmt.Errorf("spectrum: unknown mode %q", opts.Mode)
	}

	label := opts.Label
	if label == "" {
		label = s.label()
	}

	ax.AddTrace(label, s.wav, flux, opts.Style)

	if opts.ShowErr && variance != nil {
		style := opts.RMSStyle
		if style.Color == "" {
			style.Color = DefaultRMSColor
		}
		ax.AddTrace(label+" rms", s.wav, rms(variance), style)
	}

	if opts.Title != "" {
		ax.SetTitle(opts.Title)
	}

	return nil
}

func (s *Spec1d) label() string {
	if s.Name != "" {
		return s.Name
	}

	wmin, wmax := s.WavelengthRange()
	return fmt.Sprintf("%.0f-%.0f", wmin, wmax)
}
