package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/echelle"
	_ "github.com/carbocation/echelle/compileinfoprint"
	"github.com/carbocation/echelle/spectrum"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

type Summary struct {
	Order      int
	Name       string
	Pixels     int
	MinWav     float64
	MaxWav     float64
	MedianFlux float64
	MADFlux    float64 // median absolute deviation, a robust noise estimate
	MedianSNR  float64 // NaN without a variance column
}

func main() {
	var input string
	var bins int
	flag.StringVar(&input, "file", "", "Echelle FITS file. May be compressed, and may be a gs:// path.")
	flag.IntVar(&bins, "hist", 0, "(Optional) If > 0, print a flux histogram with this many bins for each order to stderr")
	flag.Parse()

	if input == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(input, bins); err != nil {
		log.Fatalln(err)
	}
}

func run(input string, bins int) error {
	var client *storage.Client
	var err error
	if echelle.IsGoogleStoragePath(input) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			return err
		}
		defer client.Close()
	}

	ech, err := echelle.Open(input, client, false)
	if err != nil {
		return err
	}

	fmt.Println(strings.Join([]string{
		"order",
		"name",
		"pixels",
		"min_wav",
		"max_wav",
		"median_flux",
		"mad_flux",
		"median_snr"},
		"\t"))

	for i, o := range ech.Orders() {
		v := Summarize(i, o)
		fmt.Printf("%d\t%s\t%d\t%f\t%f\t%g\t%g\t%g\n",
			v.Order,
			v.Name,
			v.Pixels,
			v.MinWav,
			v.MaxWav,
			v.MedianFlux,
			v.MADFlux,
			v.MedianSNR,
		)

		if bins > 0 {
			if err := printHistogram(os.Stderr, i, o.Flux(), bins); err != nil {
				return err
			}
		}
	}

	return nil
}

// Summarize describes one order. Non-finite pixels are ignored in the
// medians.
func Summarize(i int, o echelle.Order) Summary {
	out := Summary{
		Order:     i,
		Pixels:    o.Len(),
		MedianSNR: math.NaN(),
	}

	if len(o.Wavelength()) > 0 {
		out.MinWav = floats.Min(o.Wavelength())
		out.MaxWav = floats.Max(o.Wavelength())
	}
	out.MedianFlux = median(o.Flux())
	out.MADFlux = mad(o.Flux())

	spec, ok := o.(*spectrum.Spec1d)
	if !ok {
		return out
	}
	out.Name = spec.Name

	if variance, ok := spec.Variance(); ok {
		snr := make([]float64, 0, len(variance))
		for j, v := range variance {
			if v > 0 {
				snr = append(snr, spec.Flux()[j]/math.Sqrt(v))
			}
		}
		out.MedianSNR = median(snr)
	}

	return out
}

// printHistogram draws a terminal histogram of the finite flux values.
func printHistogram(w io.Writer, i int, flux []float64, bins int) error {
	data := finite(flux)
	if len(data) == 0 {
		fmt.Fprintf(w, "Order %d: no finite flux\n", i)
		return nil
	}

	fmt.Fprintf(w, "Order %d flux:\n", i)

	return histogram.Fprint(w, histogram.Hist(bins, data), histogram.Linear(40))
}

func mad(v []float64) float64 {
	data := stats.LoadRawData(finite(v))
	if data.Len() < 1 {
		return math.NaN()
	}

	out, err := stats.MedianAbsoluteDeviation(data)
	if err != nil {
		return math.NaN()
	}

	return out
}

func finite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}

	return out
}

// median averages the two middle values for an even count, the same
// definition mad uses.
func median(v []float64) float64 {
	data := stats.LoadRawData(finite(v))
	if data.Len() < 1 {
		return math.NaN()
	}

	out, err := data.Median()
	if err != nil {
		return math.NaN()
	}

	return out
}
