package lines

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/csimplestring/go-csv/detector"
)

// Map columns in a delimited line list to their positions
const (
	ColLabel int = iota
	ColWavelength
	ColKind
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// ReadDelimited parses a delimited line list with columns label, rest
// wavelength and, optionally, kind ("em" or "abs"). The delimiter is detected
// from the content. A header row is skipped if its wavelength column is not
// numeric. Lines starting with # are ignored.
func ReadDelimited(name string, r io.Reader) (List, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return List{}, err
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = listDelimiter(data)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	out := List{Name: strings.ToLower(name)}

	for i := 0; ; i++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return List{}, pfx.Err(err)
		}

		if len(row) < ColWavelength+1 {
			return List{}, fmt.Errorf("lines: row %d: expected >= 2 columns, got %d", i, len(row))
		}

		wav, err := strconv.ParseFloat(strings.TrimSpace(row[ColWavelength]), 64)
		if err != nil {
			if i == 0 {
				// Header
				continue
			}
			return List{}, fmt.Errorf("lines: row %d: %w", i, err)
		}
		if wav <= 0 {
			return List{}, fmt.Errorf("lines: row %d: non-positive wavelength %f", i, wav)
		}

		line := Line{
			Label:      strings.TrimSpace(row[ColLabel]),
			Wavelength: wav,
			Kind:       Emission,
		}
		if len(row) > ColKind {
			switch k := Kind(strings.ToLower(strings.TrimSpace(row[ColKind]))); k {
			case Emission, Absorption:
				line.Kind = k
			case "":
			default:
				return List{}, fmt.Errorf("lines: row %d: unknown kind %q", i, k)
			}
		}

		out.Lines = append(out.Lines, line)
	}

	if len(out.Lines) == 0 {
		return List{}, fmt.Errorf("lines: %q contains no lines", name)
	}

	return out, nil
}

// listDelimiter only trusts the detector when it returns a plausible field
// separator; decimal points and label punctuation are consistent per line too.
func listDelimiter(data []byte) rune {
	switch d := DetermineDelimiter(bytes.NewReader(data)); d {
	case ',', '\t', ';', '|':
		return d
	}

	if bytes.ContainsRune(data, '\t') {
		return '\t'
	}

	return ','
}

// RegisterFile loads custom lists from path and registers them. YAML files
// (.yaml, .yml) may hold several lists; any other file is read as a single
// delimited list named after the file.
func RegisterFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lists []List

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		lists, err = ReadYAML(f)
		if err != nil {
			return nil, err
		}
	default:
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		l, err := ReadDelimited(name, f)
		if err != nil {
			return nil, err
		}
		lists = []List{l}
	}

	names := make([]string, 0, len(lists))
	for _, l := range lists {
		if err := Register(l); err != nil {
			return nil, err
		}
		names = append(names, l.Name)
	}

	return names, nil
}
