package spectrum

import (
	"fmt"
	"math"

	"github.com/jfcg/butter"
)

// KernelButterworth is a first order Butterworth low-pass run forward and then
// backward over the flux, so the result has no phase shift. The width is the
// cutoff period in pixels.
const KernelButterworth = "butterworth"

// butterworth low-pass filters flux. Non-finite pixels are held at the
// previous filtered value so that a single bad pixel does not poison the rest
// of the order. It does not propagate variance.
func butterworth(flux []float64, width int) ([]float64, error) {
	wc := 2 * math.Pi / float64(width)

	forward, err := butterPass(flux, wc, false)
	if err != nil {
		return nil, err
	}

	return butterPass(forward, wc, true)
}

func butterPass(in []float64, wc float64, reverse bool) ([]float64, error) {
	filt := butter.NewLowPass1(wc)
	if filt == nil {
		return nil, fmt.Errorf("spectrum: invalid butterworth filter (attempted wc=%f, but expect .0001 < wc && wc < 3.1415); use a width of at least 3 pixels", wc)
	}

	n := len(in)
	out := make([]float64, n)

	index := func(i int) int {
		if reverse {
			return n - 1 - i
		}
		return i
	}

	// The filter starts from rest, so work relative to the first finite pixel
	// to avoid a ramp up from zero.
	offset := math.NaN()
	for i := 0; i < n; i++ {
		if v := in[index(i)]; !math.IsNaN(v) && !math.IsInf(v, 0) {
			offset = v
			break
		}
	}
	if math.IsNaN(offset) {
		copy(out, in)
		return out, nil
	}

	last := 0.0
	for i := 0; i < n; i++ {
		j := index(i)
		v := in[j]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = last + offset
		}
		last = filt.Next(v - offset)
		out[j] = last + offset
	}

	return out, nil
}
