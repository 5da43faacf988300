package spectrum

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/carbocation/echelle/figure"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	KernelBoxcar   = "boxcar"
	KernelGaussian = "gaussian"
)

// Kernel returns normalized smoothing weights. For a boxcar, width is the
// number of pixels (rounded up to the next odd number so that the kernel is
// centered). For a gaussian, width is sigma in pixels and the kernel extends
// to 4 sigma.
func Kernel(name string, width int) ([]float64, error) {
	if width < 1 {
		return nil, fmt.Errorf("spectrum: smoothing width must be >= 1, got %d", width)
	}

	var weights []float64

	switch strings.ToLower(name) {
	case "", KernelBoxcar:
		n := width
		if n%2 == 0 {
			n++
		}
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	case KernelGaussian:
		half := int(math.Ceil(4 * float64(width)))
		norm := distuv.Normal{Mu: 0, Sigma: float64(width)}
		weights = make([]float64, 2*half+1)
		for i := range weights {
			weights[i] = norm.Prob(float64(i - half))
		}
	default:
		return nil, fmt.Errorf("spectrum: unknown smoothing kernel %q", name)
	}

	floats.Scale(1/floats.Sum(weights), weights)

	return weights, nil
}

// convolve applies weights centered on every pixel. At the edges only the
// overlapping part of the kernel is used and renormalized. If variance is
// non-nil it is propagated as sum(w^2 var)/sum(w)^2.
func convolve(flux, variance, weights []float64) (smoothed, smoothedVar []float64) {
	half := len(weights) / 2
	n := len(flux)

	smoothed = make([]float64, n)
	if variance != nil {
		smoothedVar = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		var sum, wsum, vsum float64
		for k, w := range weights {
			j := i + k - half
			if j < 0 || j >= n {
				continue
			}
			sum += w * flux[j]
			wsum += w
			if variance != nil {
				vsum += w * w * variance[j]
			}
		}
		smoothed[i] = sum / wsum
		if variance != nil {
			smoothedVar[i] = vsum / (wsum * wsum)
		}
	}

	return smoothed, smoothedVar
}

// SmoothColumns smooths the flux (and variance, if present) without plotting.
// In ModeSmooth an already smoothed spectrum is smoothed again. The
// butterworth kernel drops the variance.
func (s *Spec1d) SmoothColumns(width int, kernel, mode string) error {
	flux, variance := s.flux, s.vari
	switch mode {
	case "", ModeInput:
	case ModeSmooth:
		if s.smoFlux != nil {
			flux, variance = s.smoFlux, s.smoVar
		}
	default:
		return fmt.Errorf("spectrum: unknown mode %q", mode)
	}

	if strings.EqualFold(kernel, KernelButterworth) {
		if width < 1 {
			return fmt.Errorf("spectrum: smoothing width must be >= 1, got %d", width)
		}
		smoothed, err := butterworth(flux, width)
		if err != nil {
			return err
		}
		s.smoFlux, s.smoVar = smoothed, nil
		s.smoWidth = width
		return nil
	}

	weights, err := Kernel(kernel, width)
	if err != nil {
		return err
	}

	s.smoFlux, s.smoVar = convolve(flux, variance, weights)
	s.smoWidth = width

	return nil
}

// Smooth smooths the spectrum with the kernel named in opts (boxcar by
// default) and plots the smoothed trace on ax.
func (s *Spec1d) Smooth(ax *figure.Axes, width int, opts PlotOptions) error {
	if err := s.SmoothColumns(width, opts.Kernel, opts.Mode); err != nil {
		return err
	}

	if opts.Verbose {
		kernel := opts.Kernel
		if kernel == "" {
			kernel = KernelBoxcar
		}
		log.Printf("Smoothing %s with a %s kernel of width %d\n", s.label(), kernel, width)
	}

	opts.Mode = ModeSmooth
	return s.Plot(ax, opts)
}
