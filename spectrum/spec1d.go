// Package spectrum holds Spec1d, a one-dimensional spectrum (one echelle
// order) with wavelength, flux and optional variance and sky columns, together
// with the operations needed to plot, smooth and annotate it.
package spectrum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Column names used when a Spec1d is written out as a table.
const (
	ColWav  = "wav"
	ColFlux = "flux"
	ColVar  = "var"
	ColSky  = "sky"
)

type Spec1d struct {
	// Name is the EXTNAME of the HDU the spectrum was read from, if any.
	Name string

	wav  []float64
	flux []float64
	vari []float64 // nil if absent
	sky  []float64 // nil if absent

	// Set by Smooth
	smoFlux  []float64
	smoVar   []float64
	smoWidth int
}

// New builds a spectrum from its columns. variance and sky may be nil;
// otherwise every column must have the same, nonzero, length. The slices are
// copied.
func New(wav, flux, variance, sky []float64) (*Spec1d, error) {
	if len(wav) == 0 {
		return nil, fmt.Errorf("spectrum: no wavelength values")
	}
	if len(flux) != len(wav) {
		return nil, fmt.Errorf("spectrum: %d flux values for %d wavelengths", len(flux), len(wav))
	}
	if variance != nil && len(variance) != len(wav) {
		return nil, fmt.Errorf("spectrum: %d variance values for %d wavelengths", len(variance), len(wav))
	}
	if sky != nil && len(sky) != len(wav) {
		return nil, fmt.Errorf("spectrum: %d sky values for %d wavelengths", len(sky), len(wav))
	}

	return &Spec1d{
		wav:  clone(wav),
		flux: clone(flux),
		vari: clone(variance),
		sky:  clone(sky),
	}, nil
}

// Len is the number of pixels.
func (s *Spec1d) Len() int {
	return len(s.wav)
}

func (s *Spec1d) Wavelength() []float64 {
	return s.wav
}

func (s *Spec1d) Flux() []float64 {
	return s.flux
}

// Variance returns the variance column and whether the spectrum has one.
func (s *Spec1d) Variance() ([]float64, bool) {
	return s.vari, s.vari != nil
}

// Sky returns the sky column and whether the spectrum has one.
func (s *Spec1d) Sky() ([]float64, bool) {
	return s.sky, s.sky != nil
}

// Smoothed returns the smoothed flux and its width, if Smooth has been called.
func (s *Spec1d) Smoothed() ([]float64, int, bool) {
	return s.smoFlux, s.smoWidth, s.smoFlux != nil
}

// WavelengthRange returns the smallest and largest wavelength.
func (s *Spec1d) WavelengthRange() (min, max float64) {
	return floats.Min(s.wav), floats.Max(s.wav)
}

// Column returns a column by its table name.
func (s *Spec1d) Column(name string) ([]float64, error) {
	switch name {
	case ColWav:
		return s.wav, nil
	case ColFlux:
		return s.flux, nil
	case ColVar:
		if s.vari != nil {
			return s.vari, nil
		}
	case ColSky:
		if s.sky != nil {
			return s.sky, nil
		}
	}

	return nil, fmt.Errorf("spectrum: no column %q", name)
}

// ColumnNames lists the columns present, in table order.
func (s *Spec1d) ColumnNames() []string {
	out := []string{ColWav, ColFlux}
	if s.vari != nil {
		out = append(out, ColVar)
	}
	if s.sky != nil {
		out = append(out, ColSky)
	}

	return out
}

// RMS is the per-pixel noise, sqrt(variance). Negative or missing variances
// give NaN.
func rms(variance []float64) []float64 {
	out := make([]float64, len(variance))
	for i, v := range variance {
		if v < 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Sqrt(v)
	}

	return out
}

func clone(in []float64) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	copy(out, in)
	return out
}
