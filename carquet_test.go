package carquet_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Vitruves/carquet-go"
	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/compress/brotli"
	"github.com/Vitruves/carquet-go/compress/gzip"
	"github.com/Vitruves/carquet-go/compress/lz4"
	"github.com/Vitruves/carquet-go/compress/snappy"
	"github.com/Vitruves/carquet-go/compress/uncompressed"
	"github.com/Vitruves/carquet-go/compress/zstd"
	"github.com/Vitruves/carquet-go/encoding/plain"
	"github.com/Vitruves/carquet-go/format"
	"github.com/Vitruves/carquet-go/internal/unsafecast"
)

func ptr[T any](v T) *T { return &v }

func testSchema() []format.SchemaElement {
	return []format.SchemaElement{
		{Name: "schema", NumChildren: ptr(int32(3))},
		{Name: "id", Type: ptr(format.Int64), RepetitionType: ptr(format.Required)},
		{Name: "name", Type: ptr(format.ByteArray), RepetitionType: ptr(format.Optional)},
		{Name: "flag", Type: ptr(format.Boolean), RepetitionType: ptr(format.Required)},
	}
}

type testData struct {
	ids       []int64
	names     []string // "" means null
	nameDefs  []byte
	nameBytes []byte
	flags     []byte
}

func makeTestData(numRows int) *testData {
	d := &testData{}
	for i := 0; i < numRows; i++ {
		d.ids = append(d.ids, int64(i)*3)
		if i%3 == 2 {
			d.names = append(d.names, "")
			d.nameDefs = append(d.nameDefs, 0)
		} else {
			name := fmt.Sprintf("value-%d", i%17)
			d.names = append(d.names, name)
			d.nameDefs = append(d.nameDefs, 1)
			d.nameBytes = plain.AppendByteArray(d.nameBytes, []byte(name))
		}
		d.flags = append(d.flags, byte(i%2))
	}
	return d
}

func writeTestFile(t *testing.T, d *testData, options ...carquet.WriterOption) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w, err := carquet.NewWriter(buf, testSchema(), options...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBatch(0, unsafecast.Int64ToBytes(d.ids), nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBatch(1, d.nameBytes, d.nameDefs, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBatch(2, d.flags, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func openTestFile(t *testing.T, data []byte, options ...carquet.FileOption) *carquet.File {
	t.Helper()
	f, err := carquet.OpenFile(bytes.NewReader(data), int64(len(data)), options...)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

type columnData struct {
	values    []byte
	defLevels []byte
	repLevels []byte
	entries   int
	numValues int
}

func readColumn(t *testing.T, f *carquet.File, rowGroup, column, batchSize int) *columnData {
	t.Helper()
	r, err := f.ColumnChunkReader(rowGroup, column)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	out := &columnData{}
	batch := carquet.Batch{}
	for {
		n, err := r.ReadBatch(batchSize, &batch)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			return out
		}
		out.values = append(out.values, batch.Values...)
		out.defLevels = append(out.defLevels, batch.DefinitionLevels...)
		out.repLevels = append(out.repLevels, batch.RepetitionLevels...)
		out.entries += n
		out.numValues += batch.NumValues
	}
}

func checkTestFile(t *testing.T, f *carquet.File, d *testData, batchSize int) {
	t.Helper()
	if f.NumRows() != int64(len(d.ids)) {
		t.Fatalf("file declares %d rows, want %d", f.NumRows(), len(d.ids))
	}

	ids := readColumn(t, f, 0, 0, batchSize)
	if got := unsafecast.BytesToInt64(ids.values); len(got) != len(d.ids) {
		t.Fatalf("id column returned %d values, want %d", len(got), len(d.ids))
	} else {
		for i := range d.ids {
			if got[i] != d.ids[i] {
				t.Fatalf("id %d is %d, want %d", i, got[i], d.ids[i])
			}
		}
	}

	names := readColumn(t, f, 0, 1, batchSize)
	if names.entries != len(d.names) {
		t.Fatalf("name column returned %d entries, want %d", names.entries, len(d.names))
	}
	if !bytes.Equal(names.defLevels, d.nameDefs) {
		t.Fatal("name definition levels do not round trip")
	}
	var gotNames []string
	if err := plain.RangeByteArray(names.values, func(v []byte) error {
		gotNames = append(gotNames, string(v))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	i := 0
	for j, name := range d.names {
		if d.nameDefs[j] == 0 {
			continue
		}
		if i >= len(gotNames) || gotNames[i] != name {
			t.Fatalf("name entry %d does not round trip", j)
		}
		i++
	}
	if i != len(gotNames) {
		t.Fatalf("name column returned %d values, want %d", len(gotNames), i)
	}

	flags := readColumn(t, f, 0, 2, batchSize)
	if !bytes.Equal(flags.values, d.flags) {
		t.Fatal("flag column does not round trip")
	}
}

func TestFileRoundTrip(t *testing.T) {
	codecs := []compress.Codec{
		new(uncompressed.Codec),
		new(snappy.Codec),
		new(gzip.Codec),
		new(brotli.Codec),
		new(zstd.Codec),
		&lz4.Codec{Level: lz4.Fastest},
	}
	d := makeTestData(1000)

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			data := writeTestFile(t, d, carquet.Compression(codec))
			f := openTestFile(t, data, carquet.VerifyCRC())
			checkTestFile(t, f, d, 333)
		})
		t.Run(codec.String()+"+plain", func(t *testing.T) {
			data := writeTestFile(t, d, carquet.Compression(codec), carquet.NoDictionaryEncoding())
			f := openTestFile(t, data, carquet.VerifyCRC())
			checkTestFile(t, f, d, 333)
		})
	}
}

func TestFileRoundTripSmallPages(t *testing.T) {
	d := makeTestData(500)
	data := writeTestFile(t, d, carquet.PageBufferSize(64))
	f := openTestFile(t, data, carquet.VerifyCRC())

	for _, batchSize := range []int{1, 7, 64, 10000} {
		t.Run(fmt.Sprintf("batch=%d", batchSize), func(t *testing.T) {
			checkTestFile(t, f, d, batchSize)
		})
	}
}

func TestReadBatchPeek(t *testing.T) {
	d := makeTestData(100)
	data := writeTestFile(t, d)
	f := openTestFile(t, data)

	r, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	batch := carquet.Batch{}
	if n, err := r.ReadBatch(0, &batch); n != 0 || err != nil {
		t.Fatalf("peek returned (%d, %v), want (0, nil)", n, err)
	}
	if n, err := r.ReadBatch(1000, &batch); n != 100 || err != nil {
		t.Fatalf("read after peek returned (%d, %v), want (100, nil)", n, err)
	}
}

func TestVerifyCRCDetectsCorruption(t *testing.T) {
	d := makeTestData(100)
	data := writeTestFile(t, d, carquet.NoDictionaryEncoding())

	// Flip a bit in the last byte of the page stream, which sits right
	// before the footer.
	footerSize := int64(binary.LittleEndian.Uint32(data[len(data)-8:]))
	corrupted := append([]byte(nil), data...)
	corrupted[int64(len(data))-8-footerSize-1] ^= 0x40

	// Without checksum verification the corruption goes unnoticed.
	f := openTestFile(t, corrupted)
	if col := readColumn(t, f, 0, 2, 1000); col.entries != 100 {
		t.Fatalf("corrupted file read %d entries, want 100", col.entries)
	}

	f = openTestFile(t, corrupted, carquet.VerifyCRC())
	r, err := f.ColumnChunkReader(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	batch := carquet.Batch{}
	if _, err := r.ReadBatch(1000, &batch); !errors.Is(err, carquet.ErrChecksumMismatch) {
		t.Fatalf("reading a corrupted page returned %v, want ErrChecksumMismatch", err)
	}
}

func TestOpenFileRejectsMalformedFiles(t *testing.T) {
	d := makeTestData(10)
	data := writeTestFile(t, d)

	tests := []struct {
		scenario string
		data     []byte
	}{
		{"empty file", nil},
		{"too short", []byte("PAR1PAR1")},
		{"bad header magic", append([]byte("NOPE"), data[4:]...)},
		{"bad footer magic", append(append([]byte(nil), data[:len(data)-4]...), "NOPE"...)},
		{"truncated footer", data[:len(data)-6]},
		{"footer size past the file start", func() []byte {
			bad := append([]byte(nil), data...)
			binary.LittleEndian.PutUint32(bad[len(bad)-8:], uint32(len(bad)))
			return bad
		}()},
	}
	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			_, err := carquet.OpenFile(bytes.NewReader(test.data), int64(len(test.data)))
			if err == nil {
				t.Fatal("opening a malformed file succeeded")
			}
			if !errors.Is(err, carquet.ErrInvalidFileFormat) && !errors.Is(err, carquet.ErrTruncated) {
				t.Errorf("opening a malformed file returned %v", err)
			}
		})
	}
}

func TestTruncatedColumnChunk(t *testing.T) {
	d := makeTestData(100)
	data := writeTestFile(t, d, carquet.NoDictionaryEncoding())

	// Rewrite the footer so the first column claims twice as many values as
	// its pages hold.
	footerSize := int64(binary.LittleEndian.Uint32(data[len(data)-8:]))
	trailerStart := int64(len(data)) - 8 - footerSize

	metadata := format.FileMetaData{}
	if err := format.DecodeFileMetaData(data[trailerStart:trailerStart+footerSize], &metadata); err != nil {
		t.Fatal(err)
	}
	metadata.RowGroups[0].Columns[0].MetaData.NumValues *= 2
	forged := rebuildFooter(t, data[:trailerStart], &metadata)

	f := openTestFile(t, forged)
	r, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	batch := carquet.Batch{}
	if _, err := r.ReadBatch(1000, &batch); !errors.Is(err, carquet.ErrTruncated) {
		t.Fatalf("reading past the page stream returned %v, want ErrTruncated", err)
	}
}

// Chunk offsets near the int64 maximum must be rejected as out of bounds
// instead of wrapping around during the bounds check.
func TestForgedColumnChunkOffsets(t *testing.T) {
	d := makeTestData(100)
	data := writeTestFile(t, d, carquet.NoDictionaryEncoding())

	footerSize := int64(binary.LittleEndian.Uint32(data[len(data)-8:]))
	trailerStart := int64(len(data)) - 8 - footerSize

	metadata := format.FileMetaData{}
	if err := format.DecodeFileMetaData(data[trailerStart:trailerStart+footerSize], &metadata); err != nil {
		t.Fatal(err)
	}
	meta := &metadata.RowGroups[0].Columns[0].MetaData
	meta.DataPageOffset = 1 << 62
	meta.TotalCompressedSize = 1 << 62
	forged := rebuildFooter(t, data[:trailerStart], &metadata)

	f := openTestFile(t, forged)
	if _, err := f.ColumnChunkReader(0, 0); !errors.Is(err, carquet.ErrTruncated) {
		t.Fatalf("opening a chunk with forged offsets returned %v, want ErrTruncated", err)
	}
}

func TestTrustDataPageOffset(t *testing.T) {
	d := makeTestData(100)
	data := writeTestFile(t, d)

	// Sanity check: the recorded offsets are correct, so both modes agree.
	checkTestFile(t, openTestFile(t, data, carquet.TrustDataPageOffset()), d, 1000)

	// Shift the recorded data_page_offset of the dictionary-encoded id
	// column into the middle of the first data page header.
	footerSize := int64(binary.LittleEndian.Uint32(data[len(data)-8:]))
	trailerStart := int64(len(data)) - 8 - footerSize

	metadata := format.FileMetaData{}
	if err := format.DecodeFileMetaData(data[trailerStart:trailerStart+footerSize], &metadata); err != nil {
		t.Fatal(err)
	}
	metadata.RowGroups[0].Columns[0].MetaData.DataPageOffset += 3
	forged := rebuildFooter(t, data[:trailerStart], &metadata)

	// The computed end of the dictionary page wins by default, so the bogus
	// offset is harmless.
	checkTestFile(t, openTestFile(t, forged), d, 1000)

	f := openTestFile(t, forged, carquet.TrustDataPageOffset())
	r, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	batch := carquet.Batch{}
	if _, err := r.ReadBatch(1000, &batch); err == nil {
		t.Fatal("reading from a bogus trusted offset succeeded")
	}
}

func rebuildFooter(t *testing.T, body []byte, metadata *format.FileMetaData) []byte {
	t.Helper()
	footer, err := format.EncodeFileMetaData(nil, metadata)
	if err != nil {
		t.Fatal(err)
	}
	out := append(append([]byte(nil), body...), footer...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(footer)))
	return append(out, "PAR1"...)
}

func TestOpenMappedView(t *testing.T) {
	d := makeTestData(1000)
	data := writeTestFile(t, d, carquet.NoDictionaryEncoding())
	path := filepath.Join(t.TempDir(), "view.parquet")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	f, err := carquet.OpenMapped(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	r, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	batch := carquet.Batch{}
	n, err := r.ReadBatch(10000, &batch)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1000 {
		t.Fatalf("read %d entries, want 1000", n)
	}
	if !batch.View {
		t.Fatal("a full-page read of an uncompressed mapped required column should be a view")
	}
	got := unsafecast.BytesToInt64(batch.Values)
	for i := range d.ids {
		if got[i] != d.ids[i] {
			t.Fatalf("id %d is %d, want %d", i, got[i], d.ids[i])
		}
	}
	r.Close()

	// A partial read of the same page must copy.
	r, err = f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.ReadBatch(10, &batch); err != nil {
		t.Fatal(err)
	}
	if batch.View {
		t.Fatal("a partial page read must not be a view")
	}

	// The optional name column never qualifies for the view path.
	names, err := f.ColumnChunkReader(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer names.Close()
	if _, err := names.ReadBatch(10000, &batch); err != nil {
		t.Fatal(err)
	}
	if batch.View {
		t.Fatal("an optional column read must not be a view")
	}
}

// A batch that held a view must not keep the mapped region as spare append
// capacity once it is reused: the mapping is read-only, so a later copying
// read appending into it would fault.
func TestBatchReuseAfterViewRead(t *testing.T) {
	d := makeTestData(200)
	data := writeTestFile(t, d, carquet.NoDictionaryEncoding())
	path := filepath.Join(t.TempDir(), "reuse.parquet")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	f, err := carquet.OpenMapped(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	ids, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ids.Close()
	batch := carquet.Batch{}
	if _, err := ids.ReadBatch(10000, &batch); err != nil {
		t.Fatal(err)
	}
	if !batch.View {
		t.Fatal("the id column read should be a view")
	}

	// Booleans always decode into an owned buffer, so this read appends
	// into the reused batch.
	flags, err := f.ColumnChunkReader(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer flags.Close()
	if _, err := flags.ReadBatch(10000, &batch); err != nil {
		t.Fatal(err)
	}
	if batch.View {
		t.Fatal("the flag column read must not be a view")
	}
	if !bytes.Equal(batch.Values, d.flags) {
		t.Fatal("flag column does not round trip through a reused batch")
	}

	// The mapped id values must be intact after the reuse.
	ids2, err := f.ColumnChunkReader(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ids2.Close()
	if _, err := ids2.ReadBatch(10000, &batch); err != nil {
		t.Fatal(err)
	}
	got := unsafecast.BytesToInt64(batch.Values)
	for i := range d.ids {
		if got[i] != d.ids[i] {
			t.Fatalf("id %d is %d after batch reuse, want %d", i, got[i], d.ids[i])
		}
	}
}

func TestRepeatedColumnRoundTrip(t *testing.T) {
	schema := []format.SchemaElement{
		{Name: "schema", NumChildren: ptr(int32(1))},
		{Name: "tags", Type: ptr(format.ByteArray), RepetitionType: ptr(format.Repeated)},
	}

	// Three rows: ["a", "b"], [], ["c"].
	defLevels := []byte{1, 1, 0, 1}
	repLevels := []byte{0, 1, 0, 0}
	var values []byte
	for _, v := range []string{"a", "b", "c"} {
		values = plain.AppendByteArray(values, []byte(v))
	}

	buf := new(bytes.Buffer)
	w, err := carquet.NewWriter(buf, schema)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBatch(0, values, defLevels, repLevels); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f := openTestFile(t, buf.Bytes(), carquet.VerifyCRC())
	if f.NumRows() != 3 {
		t.Fatalf("file declares %d rows, want 3", f.NumRows())
	}
	col := readColumn(t, f, 0, 0, 3)
	if !bytes.Equal(col.defLevels, defLevels) {
		t.Errorf("definition levels are %v, want %v", col.defLevels, defLevels)
	}
	if !bytes.Equal(col.repLevels, repLevels) {
		t.Errorf("repetition levels are %v, want %v", col.repLevels, repLevels)
	}
	if !bytes.Equal(col.values, values) {
		t.Error("values do not round trip")
	}
	if col.numValues != 3 {
		t.Errorf("read %d values, want 3", col.numValues)
	}
}

func TestWriterValidation(t *testing.T) {
	t.Run("mismatched row counts", func(t *testing.T) {
		w, err := carquet.NewWriter(new(bytes.Buffer), testSchema())
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBatch(0, unsafecast.Int64ToBytes([]int64{1, 2}), nil, nil); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err == nil {
			t.Fatal("closing a writer with mismatched row counts succeeded")
		}
	})

	t.Run("invalid boolean byte", func(t *testing.T) {
		w, err := carquet.NewWriter(new(bytes.Buffer), testSchema())
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBatch(2, []byte{0, 1, 2}, nil, nil); err == nil {
			t.Fatal("writing a boolean byte other than 0 or 1 succeeded")
		}
	})

	t.Run("levels on a required column", func(t *testing.T) {
		w, err := carquet.NewWriter(new(bytes.Buffer), testSchema())
		if err != nil {
			t.Fatal(err)
		}
		if err := w.WriteBatch(0, unsafecast.Int64ToBytes([]int64{1}), []byte{1}, nil); err == nil {
			t.Fatal("writing definition levels to a required column succeeded")
		}
	})

	t.Run("value count above non-null levels", func(t *testing.T) {
		w, err := carquet.NewWriter(new(bytes.Buffer), testSchema())
		if err != nil {
			t.Fatal(err)
		}
		var values []byte
		values = plain.AppendByteArray(values, []byte("a"))
		values = plain.AppendByteArray(values, []byte("b"))
		if err := w.WriteBatch(1, values, []byte{1, 0}, nil); err == nil {
			t.Fatal("writing more values than non-null levels succeeded")
		}
	})
}

func TestEmptyFileRoundTrip(t *testing.T) {
	buf := new(bytes.Buffer)
	w, err := carquet.NewWriter(buf, testSchema())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f := openTestFile(t, buf.Bytes())
	if f.NumRows() != 0 {
		t.Fatalf("empty file declares %d rows", f.NumRows())
	}
	if len(f.RowGroups()) != 0 {
		t.Fatalf("empty file declares %d row groups", len(f.RowGroups()))
	}
	if len(f.Columns()) != 3 {
		t.Fatalf("empty file declares %d columns", len(f.Columns()))
	}
}
