package echelle

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/astrogo/fitsio"
	"github.com/carbocation/echelle/figure"
	"github.com/carbocation/echelle/spectrum"
	"google.golang.org/api/option"
)

func linspace(start, end float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	for i := range out {
		out[i] = start + (end-start)*float64(i)/float64(n-1)
	}
	return out
}

func makeOrder(t *testing.T, wmin, wmax float64, n int, withVar, withSky bool) *spectrum.Spec1d {
	t.Helper()

	flux := linspace(1, 2, n)
	var variance, sky []float64
	if withVar {
		variance = linspace(0.1, 0.2, n)
	}
	if withSky {
		sky = linspace(10, 20, n)
	}

	s, err := spectrum.New(linspace(wmin, wmax, n), flux, variance, sky)
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	return &buf
}

func TestNewPreservesOrder(t *testing.T) {
	a := makeOrder(t, 4000, 5000, 10, false, false)
	b := makeOrder(t, 5000, 6000, 10, false, false)
	c := makeOrder(t, 6000, 7000, 10, false, false)

	ech, err := New(a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	if ech.Len() != 3 {
		t.Fatalf("Expected 3 orders, got %d", ech.Len())
	}
	for i, v := range []*spectrum.Spec1d{a, b, c} {
		if ech.At(i) != Order(v) {
			t.Errorf("Order %d is out of place", i)
		}
	}

	list, err := FromList([]interface{}{c, a})
	if err != nil {
		t.Fatal(err)
	}
	if list.Len() != 2 || list.At(0) != Order(c) || list.At(1) != Order(a) {
		t.Error("FromList did not keep the input order")
	}
}

func TestFromListTypeMismatch(t *testing.T) {
	good := makeOrder(t, 4000, 5000, 10, false, false)
	var typedNil *spectrum.Spec1d

	for _, v := range []struct {
		Name  string
		Items []interface{}
		Index int
	}{
		{"string", []interface{}{good, "not a spectrum", good}, 1},
		{"slice", []interface{}{[]float64{1, 2, 3}}, 0},
		{"nil", []interface{}{good, good, nil}, 2},
		{"typed nil", []interface{}{typedNil}, 0},
	} {
		ech, err := FromList(v.Items)
		if ech != nil {
			t.Errorf("%s: expected no collection", v.Name)
		}

		var mismatch *TypeMismatchError
		if !errors.As(err, &mismatch) {
			t.Fatalf("%s: expected a TypeMismatchError, got %v", v.Name, err)
		}
		if mismatch.Index != v.Index {
			t.Errorf("%s: mismatch at %d, expected %d", v.Name, mismatch.Index, v.Index)
		}
	}

	ech, _ := New()
	if err := ech.Append(42); err == nil {
		t.Error("Append should reject non-Order values")
	}
	if ech.Len() != 0 {
		t.Error("A rejected Append should not grow the collection")
	}
}

func TestLoadSources(t *testing.T) {
	buf := captureLog(t)

	ech, err := Load(Source{})
	if err != nil {
		t.Fatal(err)
	}
	if ech.Len() != 0 {
		t.Errorf("Expected an empty collection, got %d", ech.Len())
	}
	if !strings.Contains(buf.String(), "NOTE") {
		t.Errorf("Expected a note for a missing source, got %q", buf.String())
	}

	buf.Reset()
	ech, err = Load(Source{FileList: []string{"a.fits", "b.fits"}})
	if err != nil {
		t.Fatal(err)
	}
	if ech.Len() != 0 {
		t.Errorf("Expected an empty collection, got %d", ech.Len())
	}
	if !strings.Contains(buf.String(), "filelist option is not implemented") {
		t.Errorf("Expected the filelist note, got %q", buf.String())
	}

	ech, err = Load(Source{Orders: []interface{}{makeOrder(t, 4000, 5000, 5, false, false)}})
	if err != nil {
		t.Fatal(err)
	}
	if ech.Len() != 1 {
		t.Errorf("Expected 1 order, got %d", ech.Len())
	}
}

func TestOpenMissingFile(t *testing.T) {
	ech, err := Open(filepath.Join(t.TempDir(), "nope.fits"), nil, false)
	if ech != nil {
		t.Error("Expected no collection")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Expected a not-exist error, got %v", err)
	}
}

func TestOpenGoogleStorageWithoutClient(t *testing.T) {
	if _, err := Open("gs://bucket/spectrum.fits", nil, false); err == nil {
		t.Fatal("Expected an error for a gs:// path without a client")
	}
}

func TestSaveMultiRoundTrip(t *testing.T) {
	orders := []*spectrum.Spec1d{
		makeOrder(t, 4000, 5000, 20, true, true),
		makeOrder(t, 5000, 6000, 30, true, false),
		makeOrder(t, 6000, 7000, 40, false, false),
	}
	ech, err := New(orders[0], orders[1], orders[2])
	if err != nil {
		t.Fatal(err)
	}

	root := filepath.Join(t.TempDir(), "out")
	if err := ech.SaveMulti(root, FormatMultiTable, nil); err != nil {
		t.Fatal(err)
	}

	// N orders make N+1 HDUs, the first of which holds no table.
	f, err := os.Open(root + FITSSuffix)
	if err != nil {
		t.Fatal(err)
	}
	fits, err := fitsio.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	hdus := fits.HDUs()
	if len(hdus) != 4 {
		t.Fatalf("Expected 4 HDUs, got %d", len(hdus))
	}
	if hdus[0].Type() != fitsio.IMAGE_HDU {
		t.Errorf("HDU 0 should be the primary image HDU, got %v", hdus[0].Type())
	}
	for i, hdu := range hdus[1:] {
		if hdu.Type() != fitsio.BINARY_TBL {
			t.Errorf("HDU %d should be a binary table, got %v", i+1, hdu.Type())
		}
	}
	fits.Close()
	f.Close()

	loaded, err := Open(root+FITSSuffix, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != len(orders) {
		t.Fatalf("Loaded %d orders, expected %d", loaded.Len(), len(orders))
	}

	for i, want := range orders {
		got := loaded.At(i).(*spectrum.Spec1d)
		if got.Len() != want.Len() {
			t.Fatalf("Order %d: %d pixels, expected %d", i, got.Len(), want.Len())
		}
		if a, b := got.ColumnNames(), want.ColumnNames(); strings.Join(a, ",") != strings.Join(b, ",") {
			t.Fatalf("Order %d: columns %v, expected %v", i, a, b)
		}
		for _, col := range want.ColumnNames() {
			gv, _ := got.Column(col)
			wv, _ := want.Column(col)
			for j := range wv {
				if gv[j] != wv[j] {
					t.Fatalf("Order %d column %s row %d: %f, expected %f", i, col, j, gv[j], wv[j])
				}
			}
		}
	}
}

func TestSaveMultiOverwrites(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")

	first, _ := New(
		makeOrder(t, 4000, 5000, 10, false, false),
		makeOrder(t, 5000, 6000, 10, false, false),
		makeOrder(t, 6000, 7000, 10, false, false),
	)
	if err := first.SaveMulti(root, FormatMultiTable, nil); err != nil {
		t.Fatal(err)
	}

	second, _ := New(makeOrder(t, 3000, 3500, 7, true, false))
	if err := second.SaveMulti(root, FormatMultiTable, nil); err != nil {
		t.Fatal(err)
	}

	loaded, err := Open(root+FITSSuffix, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 1 {
		t.Fatalf("Expected the second save to replace the first, got %d orders", loaded.Len())
	}
	if n := loaded.At(0).Len(); n != 7 {
		t.Errorf("Expected 7 pixels, got %d", n)
	}
}

func TestSaveMultiUnknownFormat(t *testing.T) {
	buf := captureLog(t)
	dir := t.TempDir()

	ech, _ := New(makeOrder(t, 4000, 5000, 10, false, false))

	for _, format := range []string{FormatText, "votable"} {
		buf.Reset()
		if err := ech.SaveMulti(filepath.Join(dir, "out"), format, nil); err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !strings.Contains(buf.String(), "not yet implemented") {
			t.Errorf("%s: expected a note, got %q", format, buf.String())
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no files to be written, found %d", len(entries))
	}
}

func TestOpenCompressed(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "out")

	ech, _ := New(
		makeOrder(t, 4000, 5000, 10, true, false),
		makeOrder(t, 5000, 6000, 10, true, false),
	)
	if err := ech.SaveMulti(root, FormatMultiTable, nil); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(root + FITSSuffix)
	if err != nil {
		t.Fatal(err)
	}

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(root+".fits.gz", gz.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := Open(root+".fits.gz", nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("Expected 2 orders, got %d", loaded.Len())
	}
}

func TestPlotAllAxisLimits(t *testing.T) {
	ech, _ := New(
		makeOrder(t, 4000, 5000, 50, false, false),
		makeOrder(t, 5000, 6000, 50, false, false),
	)

	ax := figure.New(0, 0)
	if err := ech.PlotAll(ax, PlotAllOptions{}); err != nil {
		t.Fatal(err)
	}

	min, max, ok := ax.XLim()
	if !ok || min != 4000 || max != 6000 {
		t.Fatalf("Axis limits (%f, %f, %v), expected (4000, 6000, true)", min, max, ok)
	}
	if n := len(ax.Traces()); n != 2 {
		t.Errorf("Expected 2 traces, got %d", n)
	}
	if ax.Title() != DefaultTitle {
		t.Errorf("Title %q, expected %q", ax.Title(), DefaultTitle)
	}

	empty, _ := New()
	ax = figure.New(0, 0)
	if err := empty.PlotAll(ax, PlotAllOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, _, ok := ax.XLim(); ok {
		t.Error("An empty collection should not set axis limits")
	}
}

func TestPlotAllSmoothAndLineFallback(t *testing.T) {
	buf := captureLog(t)

	ech, _ := New(
		makeOrder(t, 6000, 6500, 50, true, false),
		makeOrder(t, 6500, 7000, 50, true, false),
	)

	ax := figure.New(0, 0)
	err := ech.PlotAll(ax, PlotAllOptions{
		Z:       Redshift(0),
		LineSet: "no-such-list",
		Smooth:  3,
		Verbose: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, m := range ax.Markers() {
		if m.Label == "H-alpha" {
			found = true
		}
	}
	if !found {
		t.Error("Expected the strongem fallback to mark H-alpha")
	}
	if !strings.Contains(buf.String(), "unknown") {
		t.Errorf("Expected a fallback note, got %q", buf.String())
	}

	// Only the labeled (last) order annotates the redshift.
	if n := len(ax.Annotations()); n != 1 {
		t.Errorf("Expected 1 redshift annotation, got %d", n)
	}

	for i := 0; i < ech.Len(); i++ {
		if _, _, ok := ech.At(i).(*spectrum.Spec1d).Smoothed(); !ok {
			t.Errorf("Order %d was not smoothed", i)
		}
	}
}

func TestPlotAllTitleRules(t *testing.T) {
	// Order 0 has 10 pixels and order 1 has 2: under the literal rule order 0
	// is unlabeled (0 != 9) and order 1 is labeled (1 == 1), but by then the
	// title has been dropped.
	ech, _ := New(
		makeOrder(t, 4000, 5000, 10, false, false),
		makeOrder(t, 5000, 6000, 2, false, false),
	)

	for _, v := range []struct {
		Rule  TitleRule
		Title string
	}{
		{TitleOnLastOrder, "My Echelle"},
		{TitleLiteral, ""},
	} {
		ax := figure.New(0, 0)
		if err := ech.PlotAll(ax, PlotAllOptions{Title: "My Echelle", TitleRule: v.Rule}); err != nil {
			t.Fatal(err)
		}
		if ax.Title() != v.Title {
			t.Errorf("Rule %d: title %q, expected %q", v.Rule, ax.Title(), v.Title)
		}
	}

	// A single-pixel first order is labeled under the literal rule.
	single, _ := New(
		makeOrder(t, 4000, 4000, 1, false, false),
		makeOrder(t, 5000, 6000, 10, false, false),
	)
	ax := figure.New(0, 0)
	if err := single.PlotAll(ax, PlotAllOptions{TitleRule: TitleLiteral}); err != nil {
		t.Fatal(err)
	}
	if ax.Title() != DefaultTitle {
		t.Errorf("Title %q, expected %q", ax.Title(), DefaultTitle)
	}
}

func TestDetectDataType(t *testing.T) {
	for _, v := range []struct {
		Head     []byte
		Expected DataType
	}{
		{[]byte("SIMPLE  =                    T"), DataTypeNoCompression},
		{[]byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00}, DataTypeGzip},
		{[]byte{0x42, 0x5a, 0x68, 0x39, 0x31, 0x41}, DataTypeBZip2},
		{[]byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}, DataTypeXZ},
		{[]byte{0x1f}, DataTypeNoCompression},
	} {
		if dt := DetectDataType(v.Head); dt != v.Expected {
			t.Errorf("%x: got %d, expected %d", v.Head, dt, v.Expected)
		}
	}
}

// Fixtures compress the same 53 byte FITS-like card.
const compressedPayload = "SIMPLE  =                    T / echelle test payload"

func TestMaybeDecompressReadCloser(t *testing.T) {
	for _, v := range []struct {
		Name string
		Hex  string
	}{
		{"bzip2", "425a6839314159265359b4ecb50e0000093f8040004000800202264c002e44cc20200022231340d1a1a051a32068d323488011d8a5d620aaadd5b1c7b69d5f2e69e142f0d3e2ee48a70a12169d96a1c0"},
		{"xz", "fd377a585a0000016922de360200210116000000742fe5a3e0003400295d00299245da89bb589a3be4a5bc32b358dc97e37253e4619d43c8fa6891b6e4d90a15346b80b8cfaf230000000000bd9e3452000141354c0f579f9042990d010000000001595a"},
		{"zip", "504b0304140000000800241b515dbd9e345225000000350000000a0000006f726465722e666974730bf6f40df0715550b055c0024214f41552933352737252154a528b4b140a122b73f2135300504b01021403140000000800241b515dbd9e345225000000350000000a00000000000000000000008001000000006f726465722e66697473504b05060000000001000100380000004d0000000000"},
		{"plain", hex.EncodeToString([]byte(compressedPayload))},
	} {
		raw, err := hex.DecodeString(v.Hex)
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}

		rc, err := MaybeDecompressReadCloser(io.NopCloser(bytes.NewReader(raw)))
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}
		got, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("%s: %v", v.Name, err)
		}
		if err := rc.Close(); err != nil {
			t.Errorf("%s: close: %v", v.Name, err)
		}

		if string(got) != compressedPayload {
			t.Errorf("%s: got %q", v.Name, got)
		}
	}
}

func TestMaybeDecompressUnixCompress(t *testing.T) {
	// Header of a compress(1) stream: magic, then 16 bit max code in block mode
	head := []byte{0x1f, 0x9d, 0x90, 0x53, 0x92, 0x34, 0x0d}

	if dt := DetectDataType(head); dt != DataTypeZ {
		t.Fatalf("Detected %d, expected %d", dt, DataTypeZ)
	}

	if _, err := MaybeDecompressReadCloser(io.NopCloser(bytes.NewReader(head))); !errors.Is(err, ErrUnixCompress) {
		t.Fatalf("Expected ErrUnixCompress, got %v", err)
	}
}

func TestSplitGSPath(t *testing.T) {
	bucket, object, err := splitGSPath("gs://my-bucket/a/b/c.fits")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "a/b/c.fits" {
		t.Errorf("Got %q, %q", bucket, object)
	}

	if _, _, err := splitGSPath("gs://my-bucket"); err == nil {
		t.Error("Expected an error for a path without an object")
	}
}

func TestOutputAbortLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.fits")

	w, err := MaybeCreateInGoogleStorage(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("SIMPLE")); err != nil {
		t.Fatal(err)
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Expected the aborted file to be removed, got %v", err)
	}
}

func TestOutputAbortGoogleStorage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bucket": "my-bucket", "name": "out.fits"}`))
	}))
	defer srv.Close()

	client, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	w, err := MaybeCreateInGoogleStorage("gs://my-bucket/out.fits", client)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("SIMPLE")); err != nil {
		t.Fatal(err)
	}
	if err := w.Abort(); err != nil {
		t.Fatal(err)
	}

	if n := atomic.LoadInt32(&requests); n != 0 {
		t.Errorf("Expected no upload after Abort, got %d requests", n)
	}
}
