package echelle

import (
	"fmt"
	"io"
	"log"

	"cloud.google.com/go/storage"
	"github.com/astrogo/fitsio"
)

// Output formats accepted by SaveMulti
const (
	// FormatMultiTable writes a single FITS file: an empty primary HDU
	// followed by one binary table per order.
	FormatMultiTable = "multitab"

	// FormatText is reserved for one text file per order. Not yet
	// implemented.
	FormatText = "text"
)

// FITSSuffix is appended to the output root by SaveMulti.
const FITSSuffix = ".fits"

// SaveMulti writes the collection to <outroot>.fits in the multitab format,
// replacing any existing file (or gs:// object, given client). Other formats
// are not implemented; they log a note and write nothing. Write errors are
// returned unmodified, and the partial output is discarded: a gs:// object is
// not committed and a local file is removed.
func (e *Echelle) SaveMulti(outroot, outformat string, client *storage.Client) error {
	switch outformat {
	case FormatMultiTable:
		return e.writeMultiTable(outroot+FITSSuffix, client)
	}

	log.Printf("NOTE: output format %q is not yet implemented; nothing was written\n", outformat)

	return nil
}

func (e *Echelle) writeMultiTable(outfile string, client *storage.Client) error {
	// Convert every order before touching the output so that a bad order
	// does not leave a truncated file behind.
	tables := make([]*fitsio.Table, 0, len(e.orders))
	defer func() {
		for _, tbl := range tables {
			tbl.Close()
		}
	}()

	for i, o := range e.orders {
		tbl, err := o.Table(fmt.Sprintf("ORDER%02d", i+1))
		if err != nil {
			return err
		}
		tables = append(tables, tbl)
	}

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	defer phdu.Close()

	w, err := MaybeCreateInGoogleStorage(outfile, client)
	if err != nil {
		return err
	}

	if err := writeFITS(w, phdu, tables); err != nil {
		w.Abort()
		return err
	}

	return w.Close()
}

// writeFITS writes phdu and tables to w without closing w.
func writeFITS(w io.Writer, phdu fitsio.HDU, tables []*fitsio.Table) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}

	if err := f.Write(phdu); err != nil {
		f.Close()
		return err
	}

	for _, tbl := range tables {
		if err := f.Write(tbl); err != nil {
			f.Close()
			return err
		}
	}

	return f.Close()
}
