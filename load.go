package echelle

import (
	"log"

	"cloud.google.com/go/storage"
	"github.com/astrogo/fitsio"
	"github.com/carbocation/echelle/spectrum"
)

// Source selects where a collection comes from. The first populated field, in
// the order Orders, EchFile, FileList, wins.
type Source struct {
	// Orders are pre-built spectra; each must be an Order.
	Orders []interface{}

	// EchFile is a single FITS file holding every order: HDU 0 is an empty
	// primary and each later HDU is one order's table. It may be a gs://
	// path (requires Client) and may be compressed.
	EchFile string

	// FileList holds one single-order file per element. Not yet implemented.
	FileList []string

	Client *storage.Client

	// Verbose logs the name of the file being opened.
	Verbose bool
}

// Load builds a collection from src. Unimplemented or empty sources log a note
// and give an empty collection.
func Load(src Source) (*Echelle, error) {
	switch {
	case src.Orders != nil:
		return FromList(src.Orders)
	case src.EchFile != "":
		return Open(src.EchFile, src.Client, src.Verbose)
	case src.FileList != nil:
		return FromFileList(src.FileList), nil
	}

	log.Println("NOTE: no speclist, echfile or filelist was given; the echelle collection is empty")

	return &Echelle{}, nil
}

// FromFileList is reserved for building a collection from one file per order.
// It currently logs a note and returns an empty collection.
func FromFileList(paths []string) *Echelle {
	log.Println("NOTE: filelist option is not implemented for input")

	return &Echelle{}
}

// Open reads an echelle file, skipping the primary HDU and making one
// spectrum per remaining HDU, in file order. Errors opening the file are
// returned unmodified; on any error no collection is returned.
func Open(path string, client *storage.Client, verbose bool) (*Echelle, error) {
	if verbose {
		log.Printf("Opening echelle spectrum file: %s\n", path)
	}

	raw, err := MaybeOpenFromGoogleStorage(path, client)
	if err != nil {
		return nil, err
	}

	// Closing rdr also closes raw
	rdr, err := MaybeDecompressReadCloser(raw)
	if err != nil {
		raw.Close()
		return nil, err
	}
	defer rdr.Close()

	f, err := fitsio.Open(rdr)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdus := f.HDUs()
	if len(hdus) == 0 {
		return &Echelle{}, nil
	}

	e := &Echelle{orders: make([]Order, 0, len(hdus)-1)}
	for _, hdu := range hdus[1:] {
		spec, err := spectrum.FromHDU(hdu)
		if err != nil {
			return nil, err
		}
		e.orders = append(e.orders, spec)
	}

	return e, nil
}
