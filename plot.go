package echelle

import (
	"errors"
	"fmt"
	"log"

	"github.com/carbocation/echelle/figure"
	"github.com/carbocation/echelle/lines"
	"github.com/carbocation/echelle/spectrum"
	"gonum.org/v1/gonum/floats"
)

// DefaultTitle is shown on the labeled order when no title is given.
const DefaultTitle = "Extracted Spectrum"

// TitleRule decides which order carries the title, legend and redshift
// annotation.
type TitleRule int

const (
	// TitleOnLastOrder labels only the last order of the collection.
	TitleOnLastOrder TitleRule = iota

	// TitleLiteral labels an order when its position equals its own pixel
	// count minus one, and once any order has been left unlabeled no title
	// is applied to later orders. This reproduces the behavior of
	// the older plotting code, which compared against the wrong length.
	TitleLiteral
)

type PlotAllOptions struct {
	// Mode is passed to each order's Plot or Smooth ("input" or "smooth").
	Mode string

	// Title of the plot. Empty means DefaultTitle.
	Title string

	// Z, if set, marks the lines of LineSet at this redshift.
	Z *float64

	// LineSet names a lines list. Unknown names fall back to
	// lines.DefaultList. Empty means lines.DefaultList.
	LineSet string

	// Smooth is the smoothing width in pixels; 0 plots the raw spectra.
	Smooth int
	Kernel string

	ShowErr bool
	Verbose bool

	// Style is passed through to every order.
	Style figure.Style

	TitleRule TitleRule
}

// Redshift is a convenience for setting PlotAllOptions.Z.
func Redshift(z float64) *float64 {
	return &z
}

// PlotAll draws every order onto ax, optionally smoothed and with redshifted
// spectral lines marked, and sets the x-axis limits to span the wavelengths of
// all orders. An empty collection leaves ax untouched.
func (e *Echelle) PlotAll(ax *figure.Axes, opts PlotAllOptions) error {
	if ax == nil {
		return fmt.Errorf("echelle: nil axes")
	}

	lineSet := opts.LineSet
	if lineSet == "" {
		lineSet = lines.DefaultList
	}

	haveRange := false
	var wmin, wmax float64

	// Under TitleLiteral, once an order is unlabeled the title is lost for
	// every later order.
	titleCleared := false

	for count, o := range e.orders {

		var labeled bool
		switch opts.TitleRule {
		case TitleLiteral:
			labeled = count == o.Len()-1
		default:
			labeled = count == len(e.orders)-1
		}

		title := ""
		if labeled {
			if !titleCleared {
				title = opts.Title
				if title == "" {
					title = DefaultTitle
				}
			}
			ax.ShowLegend(true)
		} else if opts.TitleRule == TitleLiteral {
			titleCleared = true
		}

		popts := spectrum.PlotOptions{
			Mode:    opts.Mode,
			Title:   title,
			ShowErr: opts.ShowErr,
			Kernel:  opts.Kernel,
			Verbose: opts.Verbose,
			Style:   opts.Style,
		}

		if opts.Smooth > 0 {
			if err := o.Smooth(ax, opts.Smooth, popts); err != nil {
				return err
			}
		} else {
			if err := o.Plot(ax, popts); err != nil {
				return err
			}
		}

		if opts.Z != nil {
			mopts := spectrum.MarkOptions{ShowZ: labeled, UseSmooth: opts.Smooth > 0}

			err := o.MarkLines(ax, lineSet, *opts.Z, mopts)
			if errors.Is(err, lines.ErrUnknownList) {
				if opts.Verbose {
					log.Printf("Line list %q is unknown; using %q\n", lineSet, lines.DefaultList)
				}
				err = o.MarkLines(ax, lines.DefaultList, *opts.Z, mopts)
			}
			if err != nil {
				return err
			}
		}

		wav := o.Wavelength()
		if len(wav) == 0 {
			continue
		}
		if omin := floats.Min(wav); !haveRange || omin < wmin {
			wmin = omin
		}
		if omax := floats.Max(wav); !haveRange || omax > wmax {
			wmax = omax
		}
		haveRange = true
	}

	if haveRange {
		ax.SetXLim(wmin, wmax)
	}

	return nil
}
