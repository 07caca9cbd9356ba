package carquet

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/format"
)

const defaultPageBufferSize = 256 * 1024

// WriterOption configures the behavior of NewWriter.
type WriterOption func(*writerConfig)

type writerConfig struct {
	codec          compress.Codec
	noDictionary   bool
	noChecksums    bool
	pageBufferSize int
	createdBy      string
}

// Compression sets the codec applied to every page of the file. The default
// leaves pages uncompressed.
func Compression(codec compress.Codec) WriterOption {
	return func(c *writerConfig) { c.codec = codec }
}

// NoDictionaryEncoding makes every column use the PLAIN encoding instead of
// building a dictionary.
func NoDictionaryEncoding() WriterOption {
	return func(c *writerConfig) { c.noDictionary = true }
}

// NoPageChecksums omits the CRC32 checksum from page headers.
func NoPageChecksums() WriterOption {
	return func(c *writerConfig) { c.noChecksums = true }
}

// PageBufferSize sets the number of buffered bytes above which a column
// flushes its pending values as a data page.
func PageBufferSize(size int) WriterOption {
	return func(c *writerConfig) {
		if size > 0 {
			c.pageBufferSize = size
		}
	}
}

// CreatedBy sets the created_by string recorded in the file footer.
func CreatedBy(createdBy string) WriterOption {
	return func(c *writerConfig) { c.createdBy = createdBy }
}

// Writer writes a parquet file with a single row group to an io.Writer.
// Column values are buffered as encoded pages in memory; the file itself is
// written by Close.
type Writer struct {
	writer  io.Writer
	schema  []format.SchemaElement
	columns []*ColumnChunkWriter
	config  writerConfig
	closed  bool
}

// NewWriter creates a writer for the given flat schema element list. The
// first element must be the schema root.
func NewWriter(w io.Writer, schema []format.SchemaElement, options ...WriterOption) (*Writer, error) {
	columns, err := columnsOf(schema)
	if err != nil {
		return nil, err
	}

	config := writerConfig{
		codec:          &uncompressedCodec,
		pageBufferSize: defaultPageBufferSize,
		createdBy:      "carquet-go version 0.1.0",
	}
	for _, opt := range options {
		opt(&config)
	}
	if _, err := LookupCompressionCodec(config.codec.CompressionCodec()); err != nil {
		return nil, err
	}

	out := &Writer{
		writer:  w,
		schema:  schema,
		columns: make([]*ColumnChunkWriter, len(columns)),
		config:  config,
	}
	for i := range columns {
		out.columns[i] = newColumnChunkWriter(&columns[i], &config)
	}
	return out, nil
}

// NumColumns returns the number of leaf columns of the schema.
func (w *Writer) NumColumns() int { return len(w.columns) }

// WriteBatch appends entries to the given leaf column. values holds the
// PLAIN representation of the non-null values, except for BOOLEAN columns
// where each value occupies one byte; defLevels and repLevels hold one level
// per entry and must be empty when the column's respective max level is
// zero.
//
// Columns are filled independently, but every column must hold the same
// number of rows by the time Close is called.
func (w *Writer) WriteBatch(columnIndex int, values, defLevels, repLevels []byte) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	if columnIndex < 0 || columnIndex >= len(w.columns) {
		return fmt.Errorf("column %d of %d: %w", columnIndex, len(w.columns), ErrOutOfRange)
	}
	c := w.columns[columnIndex]
	if err := c.writeBatch(values, defLevels, repLevels); err != nil {
		return fmt.Errorf("column %q: %w", c.column.Element.Name, err)
	}
	return nil
}

// Close flushes every column, writes the file, and renders the writer
// unusable. It does not close the underlying io.Writer.
func (w *Writer) Close() error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	w.closed = true

	rows := int64(0)
	for i, c := range w.columns {
		if err := c.finish(); err != nil {
			return fmt.Errorf("column %q: %w", c.column.Element.Name, err)
		}
		if i == 0 {
			rows = c.rows
		} else if c.rows != rows {
			return fmt.Errorf("column %q holds %d rows, column %q holds %d", c.column.Element.Name, c.rows, w.columns[0].column.Element.Name, rows)
		}
	}

	if _, err := io.WriteString(w.writer, magic); err != nil {
		return err
	}
	offset := int64(len(magic))

	metadata := format.FileMetaData{
		Version:   2,
		Schema:    w.schema,
		NumRows:   rows,
		CreatedBy: w.config.createdBy,
	}

	if rows > 0 {
		rowGroup := format.RowGroup{
			Columns:    make([]format.ColumnChunk, len(w.columns)),
			NumRows:    rows,
			FileOffset: offset,
		}
		for i, c := range w.columns {
			rowGroup.Columns[i] = format.ColumnChunk{
				MetaData: c.metadata(offset),
			}
			n, err := c.writeTo(w.writer)
			offset += n
			if err != nil {
				return fmt.Errorf("column %q: %w", c.column.Element.Name, err)
			}
			rowGroup.TotalByteSize += c.totalUncompressed
			rowGroup.TotalCompressedSize += c.totalCompressed
		}
		metadata.RowGroups = []format.RowGroup{rowGroup}
	}

	footer, err := format.EncodeFileMetaData(nil, &metadata)
	if err != nil {
		return fmt.Errorf("encoding file metadata: %w", err)
	}
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(footer)))
	footer = append(footer, size[:]...)
	footer = append(footer, magic...)
	if _, err := w.writer.Write(footer); err != nil {
		return err
	}
	return nil
}
