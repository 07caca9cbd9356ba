package carquet

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/encoding/plain"
	"github.com/Vitruves/carquet-go/encoding/rle"
	"github.com/Vitruves/carquet-go/format"
	"github.com/Vitruves/carquet-go/internal/bitpack"
)

// ColumnChunkWriter accumulates the values of one column and encodes them
// into a stream of v1 data pages, preceded by a dictionary page when
// dictionary encoding is in use. Pages are buffered in memory until the
// parent Writer assembles the row group.
type ColumnChunkWriter struct {
	column         *Column
	codec          compress.Codec
	checksums      bool
	pageBufferSize int

	// dictionary encoding state; dict is nil when the column is written
	// with the PLAIN encoding
	dict    *dictBuilder
	indexes []int32

	// accumulation for the page being built
	values    []byte // PLAIN representation; BOOLEAN one byte per value
	defLevels []byte
	repLevels []byte
	entries   int

	// encoded page stream of the chunk
	pages             []byte
	dictPageSize      int
	numPages          int
	numValues         int64
	rows              int64
	totalUncompressed int64
	totalCompressed   int64

	payloadScratch []byte
	encodeScratch  []byte
	storedScratch  []byte
}

func newColumnChunkWriter(column *Column, config *writerConfig) *ColumnChunkWriter {
	w := &ColumnChunkWriter{
		column:         column,
		codec:          config.codec,
		checksums:      !config.noChecksums,
		pageBufferSize: config.pageBufferSize,
	}
	// BOOLEAN columns gain nothing from a two-entry dictionary.
	if !config.noDictionary && column.PhysicalType != format.Boolean {
		w.dict = newDictBuilder(typeSize(column.PhysicalType, column.TypeLength))
	}
	return w
}

// writeBatch appends a batch of entries to the chunk. values holds the PLAIN
// representation of the non-null values (one byte per value for BOOLEAN),
// defLevels and repLevels one level per entry when the column's respective
// max level is non-zero.
func (w *ColumnChunkWriter) writeBatch(values, defLevels, repLevels []byte) error {
	numValues, err := w.countValues(values)
	if err != nil {
		return err
	}

	entries := numValues
	if w.column.MaxDefinitionLevel > 0 {
		entries = len(defLevels)
		nonNull := 0
		maxDef := byte(w.column.MaxDefinitionLevel)
		for _, l := range defLevels {
			if l > maxDef {
				return fmt.Errorf("definition level %d exceeds the column maximum %d", l, maxDef)
			}
			if l == maxDef {
				nonNull++
			}
		}
		if nonNull != numValues {
			return fmt.Errorf("%d values for %d non-null definition levels", numValues, nonNull)
		}
	} else if len(defLevels) != 0 {
		return fmt.Errorf("definition levels on a column with no optional or repeated ancestor")
	}

	if w.column.MaxRepetitionLevel > 0 {
		if len(repLevels) != entries {
			return fmt.Errorf("%d repetition levels for %d entries", len(repLevels), entries)
		}
		maxRep := byte(w.column.MaxRepetitionLevel)
		for _, l := range repLevels {
			if l > maxRep {
				return fmt.Errorf("repetition level %d exceeds the column maximum %d", l, maxRep)
			}
			if l == 0 {
				w.rows++
			}
		}
	} else {
		if len(repLevels) != 0 {
			return fmt.Errorf("repetition levels on a column with no repeated ancestor")
		}
		w.rows += int64(entries)
	}

	w.defLevels = append(w.defLevels, defLevels...)
	w.repLevels = append(w.repLevels, repLevels...)
	if w.dict != nil {
		if err := w.insertValues(values); err != nil {
			return err
		}
	} else {
		w.values = append(w.values, values...)
	}
	w.entries += entries
	w.numValues += int64(entries)

	if w.pageSize() >= w.pageBufferSize {
		return w.flushPage()
	}
	return nil
}

// countValues returns the number of PLAIN values held in the buffer,
// validating its framing.
func (w *ColumnChunkWriter) countValues(values []byte) (int, error) {
	switch w.column.PhysicalType {
	case format.Boolean:
		for _, v := range values {
			if v > 1 {
				return 0, fmt.Errorf("boolean value %d is neither 0 nor 1", v)
			}
		}
		return len(values), nil
	case format.ByteArray:
		if err := plain.ValidateByteArray(values); err != nil {
			return 0, err
		}
		return plain.CountByteArray(values), nil
	default:
		size := typeSize(w.column.PhysicalType, w.column.TypeLength)
		if len(values)%size != 0 {
			return 0, fmt.Errorf("%d bytes do not hold a whole number of %s values", len(values), w.column.PhysicalType)
		}
		return len(values) / size, nil
	}
}

func (w *ColumnChunkWriter) insertValues(values []byte) error {
	if w.column.PhysicalType == format.ByteArray {
		return plain.RangeByteArray(values, func(v []byte) error {
			w.indexes = append(w.indexes, w.dict.insert(v))
			return nil
		})
	}
	size := typeSize(w.column.PhysicalType, w.column.TypeLength)
	for off := 0; off < len(values); off += size {
		w.indexes = append(w.indexes, w.dict.insert(values[off:off+size]))
	}
	return nil
}

func (w *ColumnChunkWriter) pageSize() int {
	if w.dict != nil {
		return 4*len(w.indexes) + len(w.defLevels) + len(w.repLevels)
	}
	return len(w.values) + len(w.defLevels) + len(w.repLevels)
}

// flushPage encodes the accumulated entries as one v1 data page and appends
// it to the chunk's page stream.
func (w *ColumnChunkWriter) flushPage() error {
	if w.entries == 0 {
		return nil
	}

	payload := w.payloadScratch[:0]
	var err error

	if w.column.MaxRepetitionLevel > 0 {
		e := rle.Encoding{BitWidth: levelWidth(w.column.MaxRepetitionLevel)}
		payload, err = e.EncodeLevelsPrefixed(payload, w.repLevels)
		if err != nil {
			return err
		}
	}
	if w.column.MaxDefinitionLevel > 0 {
		e := rle.Encoding{BitWidth: levelWidth(w.column.MaxDefinitionLevel)}
		payload, err = e.EncodeLevelsPrefixed(payload, w.defLevels)
		if err != nil {
			return err
		}
	}

	valueEncoding := format.Plain
	switch {
	case w.dict != nil:
		valueEncoding = format.RLEDictionary
		bitWidth := indexBitWidth(w.dict.len())
		scratch := w.encodeScratch[:0]
		for _, i := range w.indexes {
			scratch = binary.LittleEndian.AppendUint32(scratch, uint32(i))
		}
		e := rle.Encoding{BitWidth: bitWidth}
		encoded, err := e.EncodeInt32(w.storedScratch, scratch)
		if err != nil {
			return err
		}
		w.encodeScratch = scratch
		w.storedScratch = encoded
		payload = append(payload, byte(bitWidth))
		payload = append(payload, encoded...)

	case w.column.PhysicalType == format.Boolean:
		off := len(payload)
		for i, v := range w.values {
			if len(payload) <= off+i/8 {
				payload = append(payload, 0)
			}
			if v != 0 {
				payload[off+i/8] |= 1 << (uint(i) % 8)
			}
		}

	default:
		payload = append(payload, w.values...)
	}
	w.payloadScratch = payload

	header := format.PageHeader{
		Type:                 format.DataPage,
		UncompressedPageSize: int32(len(payload)),
		DataPageHeader: &format.DataPageHeader{
			NumValues:               int32(w.entries),
			Encoding:                valueEncoding,
			DefinitionLevelEncoding: format.RLE,
			RepetitionLevelEncoding: format.RLE,
		},
	}
	if err := w.appendPage(&header, payload); err != nil {
		return err
	}

	w.indexes = w.indexes[:0]
	w.values = w.values[:0]
	w.defLevels = w.defLevels[:0]
	w.repLevels = w.repLevels[:0]
	w.entries = 0
	w.numPages++
	return nil
}

// appendPage compresses payload, fills in the page sizes and checksum, and
// appends the encoded header and stored bytes to the page stream.
func (w *ColumnChunkWriter) appendPage(header *format.PageHeader, payload []byte) error {
	stored := payload
	if !isUncompressed(w.codec.CompressionCodec()) {
		var err error
		stored, err = w.codec.Encode(w.storedScratch[:0], payload)
		if err != nil {
			return fmt.Errorf("compressing page: %w", err)
		}
		w.storedScratch = stored
	}
	header.CompressedPageSize = int32(len(stored))
	if w.checksums {
		header.HasCRC = true
		header.CRC = int32(crc32.ChecksumIEEE(stored))
	}

	before := len(w.pages)
	pages, err := format.EncodePageHeader(w.pages, header)
	if err != nil {
		return err
	}
	w.pages = append(pages, stored...)

	headerSize := int64(len(pages) - before)
	w.totalUncompressed += headerSize + int64(len(payload))
	w.totalCompressed += headerSize + int64(len(stored))
	return nil
}

// finish flushes the pending page and, when dictionary encoding is in use,
// prepends the dictionary page to the page stream.
func (w *ColumnChunkWriter) finish() error {
	if err := w.flushPage(); err != nil {
		return err
	}
	if w.dict == nil {
		return nil
	}

	// The dictionary page must precede the data pages; swap the buffered
	// stream behind it.
	dataPages := w.pages
	w.pages = nil
	header := format.PageHeader{
		Type:                 format.DictionaryPage,
		UncompressedPageSize: int32(len(w.dict.page())),
		DictionaryPageHeader: &format.DictionaryPageHeader{
			NumValues: int32(w.dict.len()),
			Encoding:  format.Plain,
		},
	}
	if err := w.appendPage(&header, w.dict.page()); err != nil {
		return err
	}
	w.dictPageSize = len(w.pages)
	w.pages = append(w.pages, dataPages...)
	return nil
}

// metadata builds the chunk's column metadata for a chunk written at the
// given file offset.
func (w *ColumnChunkWriter) metadata(fileOffset int64) format.ColumnMetaData {
	encodings := []format.Encoding{format.RLE, format.Plain}
	if w.dict != nil {
		encodings = append(encodings, format.RLEDictionary)
	}
	meta := format.ColumnMetaData{
		Type:                  w.column.PhysicalType,
		Encoding:              encodings,
		PathInSchema:          w.column.Path,
		Codec:                 w.codec.CompressionCodec(),
		NumValues:             w.numValues,
		TotalUncompressedSize: w.totalUncompressed,
		TotalCompressedSize:   w.totalCompressed,
		DataPageOffset:        fileOffset + int64(w.dictPageSize),
	}
	if w.dict != nil {
		meta.DictionaryPageOffset = fileOffset
	}
	return meta
}

// writeTo writes the chunk's page stream to out.
func (w *ColumnChunkWriter) writeTo(out io.Writer) (int64, error) {
	n, err := out.Write(w.pages)
	return int64(n), err
}

// indexBitWidth returns the bit width of dictionary indexes for a
// dictionary of the given cardinality. A width of at least 1 keeps the
// index stream well formed even for single-value dictionaries.
func indexBitWidth(cardinality int) int {
	if cardinality <= 1 {
		return 1
	}
	return int(bitpack.Width(uint64(cardinality - 1)))
}
