package main

import (
	"context"
	"flag"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"github.com/carbocation/echelle"
	_ "github.com/carbocation/echelle/compileinfoprint"
)

func main() {
	var input, outroot, outformat string
	var verbose bool

	flag.StringVar(&input, "file", "", "Echelle FITS file to read. May be compressed, and may be a gs:// path.")
	flag.StringVar(&outroot, "out", "", "Output root. The multitab format writes <out>.fits, replacing any existing file. May be a gs:// path.")
	flag.StringVar(&outformat, "format", echelle.FormatMultiTable, "Output format: multitab (one FITS file with one table per order) or text (not yet implemented)")
	flag.BoolVar(&verbose, "verbose", true, "Print progress messages")
	flag.Parse()

	if input == "" || outroot == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(input, outroot, outformat, verbose); err != nil {
		log.Fatalln(err)
	}
}

func run(input, outroot, outformat string, verbose bool) error {
	var client *storage.Client
	var err error
	if echelle.IsGoogleStoragePath(input) || echelle.IsGoogleStoragePath(outroot) {
		client, err = storage.NewClient(context.Background())
		if err != nil {
			return err
		}
		defer client.Close()
	}

	ech, err := echelle.Open(input, client, verbose)
	if err != nil {
		return err
	}

	if err := ech.SaveMulti(outroot, outformat, client); err != nil {
		return err
	}

	if verbose && outformat == echelle.FormatMultiTable {
		log.Printf("Wrote %d orders to %s%s\n", ech.Len(), outroot, echelle.FITSSuffix)
	}

	return nil
}
