package echelle

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// ErrUnixCompress is returned for .Z (Unix compress) input, which is detected
// but cannot be decoded.
var ErrUnixCompress = errors.New("unix compress (.Z) input is not supported; decompress it first or recompress with gzip, bzip2 or xz")

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType matches the first bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompressReadCloser peeks at the start of rc and, if it carries a
// known compression signature, wraps it in the matching decompressor. Closing
// the result closes rc. FITS files start with "SIMPLE", which matches none of
// the signatures, so uncompressed files pass through.
func MaybeDecompressReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReader(rc)

	// A short stream is fine here; anything under 6 bytes is not a valid
	// compressed stream and will fail later with a better message.
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var r io.Reader
	switch DetectDataType(head) {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		return &multiCloser{Reader: gz, closers: []io.Closer{gz, rc}}, nil
	case DataTypeZip:
		// Only the first file of an archive is read
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, err
		}
		r = zr
	case DataTypeBZip2:
		r = bzip2.NewReader(br)
	case DataTypeXZ:
		r, err = xz.NewReader(br, 0)
		if err != nil {
			return nil, err
		}
	case DataTypeZ:
		// LZW streams from Unix compress have no decoder here
		return nil, ErrUnixCompress
	default:
		// No data type detected. For now, we assume this is uncompressed.
		r = br
	}

	return &multiCloser{Reader: r, closers: []io.Closer{rc}}, nil
}

// multiCloser closes the decompressor (if it needs closing) and then the
// underlying stream.
type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (c *multiCloser) Close() error {
	var first error
	for _, v := range c.closers {
		if err := v.Close(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
