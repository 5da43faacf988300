package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/echelle"
	_ "github.com/carbocation/echelle/compileinfoprint"
	"github.com/carbocation/echelle/figure"
	"github.com/carbocation/echelle/lines"
	"github.com/carbocation/pfx"
)

func main() {
	var input, output, title, zString, lineSet, lineFile, kernel, mode string
	var smooth, widthPx, heightPx int
	var showErr, literalTitle, verbose bool

	flag.StringVar(&input, "file", "", "Echelle FITS file: an empty primary HDU followed by one table per order. May be gzip/bzip2/xz compressed, and may be a gs:// path.")
	flag.StringVar(&output, "out", "", "(Optional) Output image. Extension .svg gives SVG, anything else PNG. Defaults to the input name with a .png extension.")
	flag.StringVar(&title, "title", "", "(Optional) Plot title. Defaults to 'Extracted Spectrum'")
	flag.StringVar(&zString, "z", "", "(Optional) Redshift. If set, spectral lines are marked.")
	flag.StringVar(&lineSet, "lines", lines.DefaultList, fmt.Sprintf("Line list used with -z. One of: %s", strings.Join(lines.Names(), ", ")))
	flag.StringVar(&lineFile, "linefile", "", "(Optional) YAML or delimited (label, wavelength[, em|abs]) file with custom line lists. Delimited files are named after the file.")
	flag.IntVar(&smooth, "smooth", 0, "(Optional) Smoothing width in pixels. 0 means no smoothing.")
	flag.StringVar(&kernel, "kernel", "boxcar", "Smoothing kernel: boxcar, gaussian (width is then sigma) or butterworth (width is then the cutoff period)")
	flag.StringVar(&mode, "mode", "input", "Plot mode: input or smooth")
	flag.IntVar(&widthPx, "width", 1600, "Output width in pixels")
	flag.IntVar(&heightPx, "height", 600, "Output height in pixels")
	flag.BoolVar(&showErr, "showerr", false, "Also plot the RMS spectrum, when the orders carry a variance column")
	flag.BoolVar(&literalTitle, "literal-title", false, "Place the title with the legacy per-order length comparison instead of on the last order")
	flag.BoolVar(&verbose, "verbose", true, "Print progress messages")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if output == "" {
		output = outputName(input)
	}

	opts := echelle.PlotAllOptions{
		Mode:    mode,
		Title:   title,
		LineSet: lineSet,
		Smooth:  smooth,
		Kernel:  kernel,
		ShowErr: showErr,
		Verbose: verbose,
	}

	if zString != "" {
		z, err := strconv.ParseFloat(zString, 64)
		if err != nil {
			log.Fatalln(pfx.Err(fmt.Errorf("-z: %w", err)))
		}
		opts.Z = echelle.Redshift(z)
	}

	if literalTitle {
		opts.TitleRule = echelle.TitleLiteral
	}

	if lineFile != "" {
		names, err := lines.RegisterFile(lineFile)
		if err != nil {
			log.Fatalln(err)
		}
		if verbose {
			log.Printf("Loaded line lists %v from %s\n", names, lineFile)
		}
	}

	if err := run(input, output, widthPx, heightPx, opts); err != nil {
		log.Fatalln(err)
	}
}

func run(input, output string, widthPx, heightPx int, opts echelle.PlotAllOptions) error {
	var client *storage.Client
	var err error
	if echelle.IsGoogleStoragePath(input) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			return err
		}
		defer client.Close()
	}

	ech, err := echelle.Open(input, client, opts.Verbose)
	if err != nil {
		return err
	}

	ax := figure.New(widthPx, heightPx)
	if err := ech.PlotAll(ax, opts); err != nil {
		return err
	}

	outFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer outFile.Close()

	if err := ax.Render(outFile, figure.FormatFromPath(output)); err != nil {
		return err
	}

	if opts.Verbose {
		log.Printf("Plotted %d orders to %s\n", ech.Len(), output)
	}

	return outFile.Close()
}

// outputName turns star.fits.gz or gs://bucket/spec.fits into spec.png in the
// working directory.
func outputName(input string) string {
	base := input
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	for _, suffix := range []string{".gz", ".bz2", ".xz", ".zip", ".fits", ".fit", ".fts"} {
		base = strings.TrimSuffix(base, suffix)
	}

	return base + ".png"
}
