package carquet

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/compress/brotli"
	"github.com/Vitruves/carquet-go/compress/gzip"
	"github.com/Vitruves/carquet-go/compress/lz4"
	"github.com/Vitruves/carquet-go/compress/snappy"
	"github.com/Vitruves/carquet-go/compress/uncompressed"
	"github.com/Vitruves/carquet-go/compress/zstd"
	"github.com/Vitruves/carquet-go/encoding/plain"
	"github.com/Vitruves/carquet-go/encoding/rle"
	"github.com/Vitruves/carquet-go/format"
	"github.com/Vitruves/carquet-go/internal/bitpack"
	"github.com/Vitruves/carquet-go/internal/memory"
)

// pageBuffers recycles decompression buffers across column readers.
var pageBuffers memory.BufferPool

var (
	uncompressedCodec uncompressed.Codec
	snappyCodec       snappy.Codec
	gzipCodec         gzip.Codec
	brotliCodec       brotli.Codec
	zstdCodec         zstd.Codec
	lz4RawCodec       lz4.Codec
)

// LookupCompressionCodec returns the codec implementing the given parquet
// compression codec enum value.
func LookupCompressionCodec(codec format.CompressionCodec) (compress.Codec, error) {
	switch codec {
	case format.Uncompressed:
		return &uncompressedCodec, nil
	case format.Snappy:
		return &snappyCodec, nil
	case format.Gzip:
		return &gzipCodec, nil
	case format.Brotli:
		return &brotliCodec, nil
	case format.Zstd:
		return &zstdCodec, nil
	case format.Lz4Raw:
		return &lz4RawCodec, nil
	default:
		return nil, fmt.Errorf("compression codec %s: %w", codec, ErrUnsupported)
	}
}

// Batch receives the output of ColumnChunkReader.ReadBatch.
//
// Values holds the PLAIN representation of the non-null values, except for
// BOOLEAN columns where each value occupies one byte. DefinitionLevels and
// RepetitionLevels hold one level per entry and are only populated when the
// column's respective max level is non-zero.
type Batch struct {
	Values           []byte
	DefinitionLevels []byte
	RepetitionLevels []byte

	// NumValues is the number of non-null values held in Values.
	NumValues int

	// View reports that Values aliases the file's memory region instead of
	// an owned buffer; it stays valid only until the file is closed.
	View bool
}

func (b *Batch) reset() {
	if b.View {
		// Values aliases the file's memory region; truncating it would keep
		// the mapping as spare capacity and a later append would write
		// through it. Drop the backing array instead.
		b.Values = nil
	}
	b.Values = b.Values[:0]
	b.DefinitionLevels = b.DefinitionLevels[:0]
	b.RepetitionLevels = b.RepetitionLevels[:0]
	b.NumValues = 0
	b.View = false
}

// ColumnChunkReader reads the values of one column chunk page by page.
//
// Readers are not safe for concurrent use, but distinct readers over the
// same file are independent: each owns its cursor and scratch buffers, so
// columns of a row group can be drained from separate goroutines.
type ColumnChunkReader struct {
	file   *File
	column *Column
	chunk  *format.ColumnChunk
	config fileConfig

	data       []byte // the column chunk's bytes
	chunkStart int64  // file offset data begins at
	pos        int
	remaining  int64 // entries left across all pages

	dict       *Dictionary
	dictLoaded bool

	// state of the currently loaded page
	pageLoaded   bool
	pageEntries  int
	pageConsumed int
	pageView     bool
	pageWidth    int // bytes per value; 0 for BYTE_ARRAY
	defLevels    []byte
	repLevels    []byte
	values       []byte
	valueOff     int

	// pooled decompression target, released by Close
	pageBuf *memory.Buffer

	// grow-only scratch reused across pages
	valueScratch []byte
	defScratch   []byte
	repScratch   []byte
	indexScratch []int32
}

// ColumnChunkReader opens the column chunk of the given row group and leaf
// column for reading.
func (f *File) ColumnChunkReader(rowGroupIndex, columnIndex int) (*ColumnChunkReader, error) {
	if rowGroupIndex < 0 || rowGroupIndex >= len(f.metadata.RowGroups) {
		return nil, fmt.Errorf("row group %d of %d: %w", rowGroupIndex, len(f.metadata.RowGroups), ErrOutOfRange)
	}
	rowGroup := &f.metadata.RowGroups[rowGroupIndex]
	if columnIndex < 0 || columnIndex >= len(rowGroup.Columns) || columnIndex >= len(f.columns) {
		return nil, fmt.Errorf("column %d of %d: %w", columnIndex, len(rowGroup.Columns), ErrOutOfRange)
	}
	chunk := &rowGroup.Columns[columnIndex]
	meta := &chunk.MetaData

	start := meta.DataPageOffset
	if meta.DictionaryPageOffset > 0 && meta.DictionaryPageOffset < start {
		start = meta.DictionaryPageOffset
	}
	data, err := f.section(start, meta.TotalCompressedSize)
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", f.columns[columnIndex].Element.Name, err)
	}

	return &ColumnChunkReader{
		file:       f,
		column:     &f.columns[columnIndex],
		chunk:      chunk,
		config:     f.config,
		data:       data,
		chunkStart: start,
		remaining:  meta.NumValues,
	}, nil
}

// Column returns the descriptor of the column being read.
func (r *ColumnChunkReader) Column() *Column { return r.column }

// Dictionary returns the column chunk's dictionary, or nil when the chunk
// has none or no page has been loaded yet.
func (r *ColumnChunkReader) Dictionary() *Dictionary { return r.dict }

// ReadBatch reads up to max entries into batch, loading pages as needed and
// continuing across page boundaries. It returns the number of entries read,
// which is less than max only at the end of the column chunk.
//
// A max of zero is a peek: it forces the next page to be loaded, verified
// and decompressed without consuming anything, so a multi-column
// orchestrator can fan decompression work out before copying values.
func (r *ColumnChunkReader) ReadBatch(max int, batch *Batch) (int, error) {
	batch.reset()

	if max == 0 {
		if r.remaining > 0 && (!r.pageLoaded || r.pageConsumed == r.pageEntries) {
			if err := r.loadPage(); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	total := 0
	for total < max && r.remaining > 0 {
		if !r.pageLoaded || r.pageConsumed == r.pageEntries {
			if err := r.loadPage(); err != nil {
				return total, err
			}
		}

		n := min(max-total, r.pageEntries-r.pageConsumed)
		if int64(n) > r.remaining {
			n = int(r.remaining)
		}

		// Zero-copy eligibility is per page and additionally requires the
		// whole page to fit the unfilled part of the request.
		if total == 0 && r.pageView && r.pageConsumed == 0 && n == r.pageEntries {
			batch.Values = r.values
			batch.View = true
			batch.NumValues = n
			r.pageConsumed = n
			r.valueOff = len(r.values)
			r.remaining -= int64(n)
			total += n
			continue
		}
		if batch.View {
			// A view from a previous iteration cannot be appended to; demote
			// it to an owned copy first.
			batch.Values = append([]byte(nil), batch.Values...)
			batch.View = false
		}

		r.consume(n, batch)
		total += n
	}
	return total, nil
}

// consume copies n entries of the loaded page into batch.
func (r *ColumnChunkReader) consume(n int, batch *Batch) {
	start := r.pageConsumed
	end := start + n

	nonNull := n
	if r.column.MaxDefinitionLevel > 0 {
		batch.DefinitionLevels = append(batch.DefinitionLevels, r.defLevels[start:end]...)
		nonNull = 0
		maxDef := byte(r.column.MaxDefinitionLevel)
		for _, l := range r.defLevels[start:end] {
			if l == maxDef {
				nonNull++
			}
		}
	}
	if r.column.MaxRepetitionLevel > 0 {
		batch.RepetitionLevels = append(batch.RepetitionLevels, r.repLevels[start:end]...)
	}

	span := 0
	if r.pageWidth > 0 {
		span = nonNull * r.pageWidth
	} else {
		for itr := 0; itr < nonNull; itr++ {
			size := plain.ByteArrayLengthSize + int(binary.LittleEndian.Uint32(r.values[r.valueOff+span:]))
			span += size
		}
	}
	batch.Values = append(batch.Values, r.values[r.valueOff:r.valueOff+span]...)
	batch.NumValues += nonNull

	r.valueOff += span
	r.pageConsumed = end
	r.remaining -= int64(n)
}

// loadPage reads the next page of the chunk, decompresses it, decodes its
// levels and values, and resets the draining cursors.
func (r *ColumnChunkReader) loadPage() error {
	if !r.dictLoaded {
		if err := r.loadDictionary(); err != nil {
			return err
		}
	}

	for {
		if r.pos >= len(r.data) {
			return fmt.Errorf("column chunk ended with %d values outstanding: %w", r.remaining, ErrTruncated)
		}

		header := format.PageHeader{}
		n, err := format.DecodePageHeader(r.data[r.pos:], &header)
		if err != nil {
			return fmt.Errorf("page header at chunk offset %d: %w", r.pos, err)
		}
		payload, err := r.pagePayload(&header, r.pos+n)
		if err != nil {
			return err
		}
		r.pos += n + int(header.CompressedPageSize)

		switch header.Type {
		case format.DataPage:
			return r.loadDataPageV1(&header, payload)
		case format.DataPageV2:
			return r.loadDataPageV2(&header, payload)
		case format.DictionaryPage:
			return fmt.Errorf("unexpected extra dictionary page at chunk offset %d: %w", r.pos, ErrInvalidEncoding)
		default:
			// Index pages and future page types are skipped.
		}
	}
}

// pagePayload bounds-checks and returns the stored page bytes following the
// header, verifying the CRC when requested.
func (r *ColumnChunkReader) pagePayload(h *format.PageHeader, start int) ([]byte, error) {
	size := int(h.CompressedPageSize)
	if size < 0 || h.UncompressedPageSize < 0 {
		return nil, fmt.Errorf("page with negative size: %w", ErrInvalidEncoding)
	}
	if start+size > len(r.data) {
		return nil, fmt.Errorf("page of %d bytes exceeds the %d remaining in the chunk: %w", size, len(r.data)-start, ErrTruncated)
	}
	stored := r.data[start : start+size]
	if r.config.verifyCRC && h.HasCRC {
		if sum := crc32.ChecksumIEEE(stored); sum != uint32(h.CRC) {
			return nil, fmt.Errorf("page checksum %08x does not match declared %08x: %w", sum, uint32(h.CRC), ErrChecksumMismatch)
		}
	}
	return stored, nil
}

// loadDictionary inspects the first page of the chunk and, if it is a
// dictionary page, decodes it. The computed end of the dictionary page is
// treated as the first data page's position; the recorded data_page_offset
// is only honored with the TrustDataPageOffset option, since some writers
// record it incorrectly.
func (r *ColumnChunkReader) loadDictionary() error {
	r.dictLoaded = true
	if len(r.data) == 0 {
		return nil
	}

	header := format.PageHeader{}
	n, err := format.DecodePageHeader(r.data, &header)
	if err != nil {
		return fmt.Errorf("first page header: %w", err)
	}
	if header.Type != format.DictionaryPage {
		return nil
	}
	dph := header.DictionaryPageHeader
	if dph == nil {
		return fmt.Errorf("dictionary page without dictionary header: %w", ErrInvalidEncoding)
	}
	if dph.Encoding != format.Plain && dph.Encoding != format.PlainDictionary {
		return fmt.Errorf("dictionary page encoding %s: %w", dph.Encoding, ErrUnsupported)
	}

	stored, err := r.pagePayload(&header, n)
	if err != nil {
		return err
	}
	// The dictionary outlives the pooled page scratch, so it gets its own
	// buffer, sized to the declared output to bound the decompression.
	want := int(header.UncompressedPageSize)
	values, err := r.decompress(make([]byte, 0, max(want, 1)), stored, want)
	if err != nil {
		return fmt.Errorf("dictionary page: %w", err)
	}
	if dph.NumValues < 0 {
		return fmt.Errorf("dictionary page declares %d values: %w", dph.NumValues, ErrInvalidEncoding)
	}
	r.dict, err = newDictionary(r.column, int(dph.NumValues), values)
	if err != nil {
		return err
	}

	r.pos = n + int(header.CompressedPageSize)
	if r.config.trustDataPageOffset {
		meta := &r.chunk.MetaData
		declared := meta.DataPageOffset - r.chunkStart
		if declared < 0 || declared > int64(len(r.data)) {
			return fmt.Errorf("data page offset %d outside the column chunk: %w", meta.DataPageOffset, ErrInvalidFileFormat)
		}
		r.pos = int(declared)
	}
	return nil
}

func (r *ColumnChunkReader) loadDataPageV1(h *format.PageHeader, stored []byte) error {
	dph := h.DataPageHeader
	if dph == nil {
		return fmt.Errorf("data page without v1 header: %w", ErrInvalidEncoding)
	}
	if dph.NumValues < 0 {
		return fmt.Errorf("data page declares %d values: %w", dph.NumValues, ErrInvalidEncoding)
	}
	entries := int(dph.NumValues)

	raw := isUncompressed(r.chunk.MetaData.Codec)
	payload := stored
	if !raw {
		var err error
		payload, err = r.decompress(r.pageScratchSlice(int(h.UncompressedPageSize)), stored, int(h.UncompressedPageSize))
		if err != nil {
			return err
		}
	}

	p := 0
	var err error
	if r.column.MaxRepetitionLevel > 0 {
		r.repLevels, p, err = r.decodeLevelsPrefixed(r.repScratch, payload, entries, r.column.MaxRepetitionLevel, "repetition")
		if err != nil {
			return err
		}
		r.repScratch = r.repLevels[:0]
		payload = payload[p:]
	}
	if r.column.MaxDefinitionLevel > 0 {
		r.defLevels, p, err = r.decodeLevelsPrefixed(r.defScratch, payload, entries, r.column.MaxDefinitionLevel, "definition")
		if err != nil {
			return err
		}
		r.defScratch = r.defLevels[:0]
		payload = payload[p:]
	}

	viewEligible := raw && r.file.mappedView() && r.column.MaxDefinitionLevel == 0
	return r.loadValues(dph.Encoding, payload, entries, viewEligible)
}

func (r *ColumnChunkReader) loadDataPageV2(h *format.PageHeader, stored []byte) error {
	v2 := h.DataPageHeaderV2
	if v2 == nil {
		return fmt.Errorf("data page without v2 header: %w", ErrInvalidEncoding)
	}
	if v2.NumValues < 0 || v2.NumNulls < 0 || v2.NumNulls > v2.NumValues {
		return fmt.Errorf("data page v2 declares %d values and %d nulls: %w", v2.NumValues, v2.NumNulls, ErrInvalidEncoding)
	}
	entries := int(v2.NumValues)

	repLen := int(v2.RepetitionLevelsByteLength)
	defLen := int(v2.DefinitionLevelsByteLength)
	if repLen < 0 || defLen < 0 || repLen+defLen > len(stored) {
		return fmt.Errorf("level sections of %d+%d bytes exceed the page payload of %d: %w", repLen, defLen, len(stored), ErrTruncated)
	}

	// The level sections of v2 pages sit before the values and are never
	// compressed.
	var err error
	if r.column.MaxRepetitionLevel > 0 {
		r.repLevels, err = r.decodeLevels(r.repScratch, stored[:repLen], entries, r.column.MaxRepetitionLevel, "repetition")
		if err != nil {
			return err
		}
		r.repScratch = r.repLevels[:0]
	}
	if r.column.MaxDefinitionLevel > 0 {
		r.defLevels, err = r.decodeLevels(r.defScratch, stored[repLen:repLen+defLen], entries, r.column.MaxDefinitionLevel, "definition")
		if err != nil {
			return err
		}
		r.defScratch = r.defLevels[:0]
	}

	payload := stored[repLen+defLen:]
	compressed := v2.IsCompressed && !isUncompressed(r.chunk.MetaData.Codec)
	if compressed {
		want := int(h.UncompressedPageSize) - repLen - defLen
		if want < 0 {
			return fmt.Errorf("level sections larger than the uncompressed page: %w", ErrInvalidEncoding)
		}
		payload, err = r.decompress(r.pageScratchSlice(want), payload, want)
		if err != nil {
			return err
		}
	}

	viewEligible := !compressed && r.file.mappedView() && r.column.MaxDefinitionLevel == 0
	return r.loadValues(v2.Encoding, payload, entries, viewEligible)
}

// loadValues decodes the value section of a data page and installs it as
// the current page.
func (r *ColumnChunkReader) loadValues(enc format.Encoding, payload []byte, entries int, viewEligible bool) error {
	nonNull := entries
	if r.column.MaxDefinitionLevel > 0 {
		nonNull = 0
		maxDef := byte(r.column.MaxDefinitionLevel)
		for _, l := range r.defLevels {
			if l == maxDef {
				nonNull++
			}
		}
	}

	view := false
	width := typeSize(r.column.PhysicalType, r.column.TypeLength)

	switch enc {
	case format.Plain:
		switch r.column.PhysicalType {
		case format.Boolean:
			if len(payload) < bitpack.ByteCount(uint(nonNull)) {
				return fmt.Errorf("%d booleans in a page of %d bytes: %w", nonNull, len(payload), ErrTruncated)
			}
			out := r.valueScratch[:0]
			for i := 0; i < nonNull; i++ {
				if plain.Boolean(payload, i) {
					out = append(out, 1)
				} else {
					out = append(out, 0)
				}
			}
			r.valueScratch = out
			r.values = out
			width = 1
		case format.ByteArray:
			span, err := byteArraySpan(payload, nonNull)
			if err != nil {
				return err
			}
			r.values = payload[:span]
		default:
			if len(payload) < nonNull*width {
				return fmt.Errorf("%d %s values in a page of %d bytes: %w", nonNull, r.column.PhysicalType, len(payload), ErrTruncated)
			}
			r.values = payload[:nonNull*width]
			view = viewEligible
		}

	case format.RLEDictionary, format.PlainDictionary:
		if r.dict == nil {
			return fmt.Errorf("dictionary-encoded page in a chunk without a dictionary page: %w", ErrInvalidEncoding)
		}
		if len(payload) < 1 {
			return fmt.Errorf("dictionary-encoded page without a bit-width byte: %w", ErrTruncated)
		}
		bitWidth := int(payload[0])
		if bitWidth > 32 {
			return fmt.Errorf("dictionary index bit-width %d: %w", bitWidth, ErrInvalidEncoding)
		}
		if cap(r.indexScratch) < nonNull {
			r.indexScratch = make([]int32, nonNull)
		}
		indexes := r.indexScratch[:nonNull]
		d := rle.NewDecoder(payload[1:], bitWidth)
		if err := d.GetBatch(indexes); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return fmt.Errorf("dictionary index stream ended early: %w", ErrTruncated)
			}
			return fmt.Errorf("dictionary index stream: %w", ErrInvalidEncoding)
		}
		out, err := r.dict.gather(r.valueScratch[:0], indexes)
		if err != nil {
			return err
		}
		r.valueScratch = out
		r.values = out
		if r.column.PhysicalType == format.Boolean {
			width = 1
		}

	default:
		return fmt.Errorf("%s data pages: %w", enc, ErrUnsupported)
	}

	r.pageLoaded = true
	r.pageEntries = entries
	r.pageConsumed = 0
	r.pageView = view && width > 0
	r.pageWidth = width
	r.valueOff = 0
	return nil
}

// pageScratchSlice returns the pooled decompression target sized for want
// bytes, acquiring a buffer on first use.
func (r *ColumnChunkReader) pageScratchSlice(want int) []byte {
	if r.pageBuf == nil {
		r.pageBuf = pageBuffers.Get()
	}
	return r.pageBuf.Resize(want)
}

// Close releases the reader's pooled buffers. The reader and any view
// batches it produced must not be used afterwards.
func (r *ColumnChunkReader) Close() error {
	if r.pageBuf != nil {
		pageBuffers.Put(r.pageBuf)
		r.pageBuf = nil
	}
	r.pageLoaded = false
	r.remaining = 0
	r.values = nil
	r.defLevels = nil
	r.repLevels = nil
	return nil
}

func (r *ColumnChunkReader) decompress(scratch, stored []byte, want int) ([]byte, error) {
	codec, err := LookupCompressionCodec(r.chunk.MetaData.Codec)
	if err != nil {
		return nil, err
	}
	out, err := codec.Decode(scratch[:0], stored)
	if err != nil {
		return nil, fmt.Errorf("decompressing page: %w", err)
	}
	if want >= 0 && len(out) != want {
		return nil, fmt.Errorf("page decompressed to %d bytes, header declares %d: %w", len(out), want, ErrInvalidEncoding)
	}
	return out, nil
}

// decodeLevelsPrefixed decodes a v1 length-prefixed level stream from the
// head of payload, returning the levels clamped to entries and the bytes
// consumed.
func (r *ColumnChunkReader) decodeLevelsPrefixed(scratch, payload []byte, entries, maxLevel int, kind string) ([]byte, int, error) {
	e := rle.Encoding{BitWidth: levelWidth(maxLevel)}
	levels, n, err := e.DecodeLevelsPrefixed(scratch, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("%s levels: %w", kind, errInvalid(err))
	}
	levels, err = clampLevels(levels, entries, maxLevel, kind)
	return levels, n, err
}

func (r *ColumnChunkReader) decodeLevels(scratch, section []byte, entries, maxLevel int, kind string) ([]byte, error) {
	e := rle.Encoding{BitWidth: levelWidth(maxLevel)}
	levels, err := e.DecodeLevels(scratch, section)
	if err != nil {
		return nil, fmt.Errorf("%s levels: %w", kind, errInvalid(err))
	}
	return clampLevels(levels, entries, maxLevel, kind)
}

// clampLevels trims the up-to-7 padding values of the final bit-packed run
// and validates the level domain.
func clampLevels(levels []byte, entries, maxLevel int, kind string) ([]byte, error) {
	if len(levels) < entries {
		return nil, fmt.Errorf("%d %s levels for %d entries: %w", len(levels), kind, entries, ErrTruncated)
	}
	levels = levels[:entries]
	for _, l := range levels {
		if int(l) > maxLevel {
			return nil, fmt.Errorf("%s level %d exceeds the column maximum %d: %w", kind, l, maxLevel, ErrOutOfRange)
		}
	}
	return levels, nil
}

// byteArraySpan returns the byte length of the first count length-prefixed
// values of payload.
func byteArraySpan(payload []byte, count int) (int, error) {
	span := 0
	rest := payload
	for itr := 0; itr < count; itr++ {
		v, next, err := plain.NextByteArray(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", err, ErrTruncated)
		}
		span += plain.ByteArrayLengthSize + len(v)
		rest = next
	}
	return span, nil
}

func levelWidth(maxLevel int) int {
	return int(bitpack.Width(uint64(maxLevel)))
}

func isUncompressed(c format.CompressionCodec) bool {
	return c == format.Uncompressed
}

func errInvalid(err error) error {
	return fmt.Errorf("%w: %w", err, ErrInvalidEncoding)
}
