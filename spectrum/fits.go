package spectrum

import (
	"fmt"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/carbocation/pfx"
)

// Accepted column names, lower case, in order of preference.
var columnAliases = map[string][]string{
	ColWav:  {"wav", "wavelength", "lambda", "wave"},
	ColFlux: {"flux", "counts", "f"},
	ColVar:  {"var", "variance"},
	ColSky:  {"sky"},
}

// FromHDU reads a spectrum from a binary or ASCII table HDU. The wavelength
// and flux columns are required; variance and sky are read when present.
// Column names are matched case insensitively, with a few common aliases.
func FromHDU(hdu fitsio.HDU) (*Spec1d, error) {
	if hdu == nil {
		return nil, fmt.Errorf("spectrum: nil HDU")
	}

	tbl, ok := hdu.(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("spectrum: HDU %q is not a table (type %v)", hdu.Name(), hdu.Type())
	}

	cols, err := readColumns(tbl)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", hdu.Name(), err))
	}

	find := func(key string) []float64 {
		for _, alias := range columnAliases[key] {
			if v, exists := cols[alias]; exists {
				return v
			}
		}
		return nil
	}

	wav, flux := find(ColWav), find(ColFlux)
	if wav == nil || flux == nil {
		return nil, fmt.Errorf("spectrum: table %q lacks a wavelength or flux column", hdu.Name())
	}

	s, err := New(wav, flux, find(ColVar), find(ColSky))
	if err != nil {
		return nil, err
	}
	s.Name = hdu.Name()

	return s, nil
}

// readColumns returns every scalar numeric column of tbl keyed by lower case
// name. Non numeric columns are read and dropped.
func readColumns(tbl *fitsio.Table) (map[string][]float64, error) {
	ascii := tbl.Type() == fitsio.ASCII_TBL
	fcols := tbl.Cols()
	nrows := tbl.NumRows()

	cells := make([]interface{}, len(fcols))
	numeric := make([]bool, len(fcols))
	out := make(map[string][]float64)

	for i, col := range fcols {
		cell, isNum, err := newCell(col, ascii)
		if err != nil {
			return nil, err
		}
		cells[i] = cell
		numeric[i] = isNum
		if isNum {
			out[strings.ToLower(strings.TrimSpace(col.Name))] = make([]float64, 0, nrows)
		}
	}

	rows, err := tbl.Read(0, nrows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		if err := rows.Scan(cells...); err != nil {
			return nil, err
		}
		for i, col := range fcols {
			if !numeric[i] {
				continue
			}
			key := strings.ToLower(strings.TrimSpace(col.Name))
			out[key] = append(out[key], cellFloat(cells[i]))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// newCell allocates a scan destination matching the column's TFORM.
func newCell(col fitsio.Column, ascii bool) (cell interface{}, numeric bool, err error) {
	repeat, code := parseFormat(col.Format)
	if code == 0 {
		return nil, false, fmt.Errorf("column %q: unparseable format %q", col.Name, col.Format)
	}

	if ascii {
		switch code {
		case 'A':
			return new(string), false, nil
		case 'I':
			return new(int), true, nil
		case 'F', 'E', 'D':
			return new(float64), true, nil
		}
		return nil, false, fmt.Errorf("column %q: unsupported ASCII format %q", col.Name, col.Format)
	}

	if code == 'A' {
		return new(string), false, nil
	}

	if repeat != 1 {
		return nil, false, fmt.Errorf("column %q: vector columns (%s) are not supported", col.Name, col.Format)
	}

	switch code {
	case 'L':
		return new(bool), false, nil
	case 'B':
		return new(uint8), true, nil
	case 'I':
		return new(int16), true, nil
	case 'J':
		return new(int32), true, nil
	case 'K':
		return new(int64), true, nil
	case 'E':
		return new(float32), true, nil
	case 'D':
		return new(float64), true, nil
	}

	return nil, false, fmt.Errorf("column %q: unsupported format %q", col.Name, col.Format)
}

// parseFormat splits a TFORM such as "1D", "E" or "F12.4" into its repeat
// count and type code.
func parseFormat(format string) (repeat int, code byte) {
	format = strings.TrimSpace(strings.ToUpper(format))

	i := 0
	for i < len(format) && format[i] >= '0' && format[i] <= '9' {
		repeat = repeat*10 + int(format[i]-'0')
		i++
	}
	if i == 0 {
		repeat = 1
	}
	if i >= len(format) {
		return repeat, 0
	}

	return repeat, format[i]
}

func cellFloat(cell interface{}) float64 {
	switch v := cell.(type) {
	case *float64:
		return *v
	case *float32:
		return float64(*v)
	case *int:
		return float64(*v)
	case *int16:
		return float64(*v)
	case *int32:
		return float64(*v)
	case *int64:
		return float64(*v)
	case *uint8:
		return float64(*v)
	}

	return 0
}

// Table converts the spectrum to a binary table HDU with float64 columns wav,
// flux and, when present, var and sky. The caller owns the returned table and
// should Close it after writing.
func (s *Spec1d) Table(name string) (*fitsio.Table, error) {
	names := s.ColumnNames()

	cols := make([]fitsio.Column, 0, len(names))
	data := make([][]float64, 0, len(names))
	for _, n := range names {
		col := fitsio.Column{Name: n, Format: "D"}
		if n == ColWav {
			col.Unit = "Angstrom"
		}
		cols = append(cols, col)

		v, err := s.Column(n)
		if err != nil {
			return nil, err
		}
		data = append(data, v)
	}

	tbl, err := fitsio.NewTable(name, cols, fitsio.BINARY_TBL)
	if err != nil {
		return nil, pfx.Err(err)
	}

	row := make([]interface{}, len(cols))
	vals := make([]float64, len(cols))
	for i := range vals {
		row[i] = &vals[i]
	}

	for irow := 0; irow < s.Len(); irow++ {
		for icol := range data {
			vals[icol] = data[icol][irow]
		}
		if err := tbl.Write(row...); err != nil {
			tbl.Close()
			return nil, pfx.Err(err)
		}
	}

	return tbl, nil
}
