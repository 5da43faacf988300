package spectrum

import (
	"fmt"
	"math"
	"sort"

	"github.com/carbocation/echelle/figure"
	"github.com/carbocation/echelle/lines"
)

// Number of pixels on either side of a line searched for the local flux
// extremum.
const markWindow = 5

type MarkOptions struct {
	// ShowZ adds a "z = ..." annotation.
	ShowZ bool

	// UseSmooth places markers relative to the smoothed flux, if available.
	UseSmooth bool

	Style figure.Style
}

// MarkLines draws a tick and label for each line of the named list whose
// redshifted wavelength falls within this spectrum. Emission lines are marked
// above the local flux peak, absorption lines below the local minimum. An
// unknown list name gives an error wrapping lines.ErrUnknownList.
func (s *Spec1d) MarkLines(ax *figure.Axes, listName string, z float64, opts MarkOptions) error {
	if ax == nil {
		return fmt.Errorf("spectrum: nil axes")
	}

	list, err := lines.Lookup(listName)
	if err != nil {
		return err
	}

	flux := s.flux
	if opts.UseSmooth && s.smoFlux != nil {
		flux = s.smoFlux
	}

	fmin, fmax := finiteRange(flux)
	dy := 0.05 * (fmax - fmin)
	if dy == 0 {
		dy = 0.05 * math.Abs(fmax)
	}
	if dy == 0 {
		dy = 1
	}

	wmin, wmax := s.WavelengthRange()
	style := opts.Style
	if style.Color == "" {
		style.Color = "#2ca02c"
	}

	for _, line := range list.Within(z, wmin, wmax) {
		obs := line.Observed(z)
		i := s.nearestPixel(obs)
		lo, hi := localRange(flux, i, markWindow)

		if line.Kind == lines.Absorption {
			ax.AddMarker(obs, lo-dy, lo-2*dy, line.Label, style)
			continue
		}
		ax.AddMarker(obs, hi+dy, hi+2*dy, line.Label, style)
	}

	if opts.ShowZ {
		ax.Annotate(wmin+0.05*(wmax-wmin), fmax+3*dy, fmt.Sprintf("z = %.4f", z))
	}

	return nil
}

// nearestPixel returns the index whose wavelength is closest to w. Wavelengths
// are usually sorted, but this does not assume so.
func (s *Spec1d) nearestPixel(w float64) int {
	if sort.Float64sAreSorted(s.wav) {
		i := sort.SearchFloat64s(s.wav, w)
		if i == len(s.wav) {
			return i - 1
		}
		if i > 0 && w-s.wav[i-1] < s.wav[i]-w {
			return i - 1
		}
		return i
	}

	best, bestDist := 0, math.Inf(1)
	for i, v := range s.wav {
		if d := math.Abs(v - w); d < bestDist {
			best, bestDist = i, d
		}
	}

	return best
}

func localRange(flux []float64, center, window int) (min, max float64) {
	lo, hi := center-window, center+window+1
	if lo < 0 {
		lo = 0
	}
	if hi > len(flux) {
		hi = len(flux)
	}

	return finiteRange(flux[lo:hi])
}

// finiteRange ignores NaN and Inf. It returns 0, 0 if nothing is finite.
func finiteRange(v []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}

	if math.IsInf(min, 1) {
		return 0, 0
	}

	return min, max
}
