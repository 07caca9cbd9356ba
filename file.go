// Package carquet implements reading and writing of parquet files: footer
// metadata, column chunk page streams, and the value encodings they use.
package carquet

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/format"
	"github.com/Vitruves/carquet-go/internal/mmap"
)

const magic = "PAR1"

// FileOption configures the behavior of OpenFile and OpenMapped.
type FileOption func(*fileConfig)

type fileConfig struct {
	verifyCRC           bool
	trustDataPageOffset bool
}

// VerifyCRC makes column readers verify the CRC32 checksum of every page
// carrying one.
func VerifyCRC() FileOption {
	return func(c *fileConfig) { c.verifyCRC = true }
}

// TrustDataPageOffset makes column readers seek to the data_page_offset
// recorded in the column metadata instead of the computed end of the
// dictionary page. Some writers record this offset incorrectly, so the
// computed position is the default.
func TrustDataPageOffset() FileOption {
	return func(c *fileConfig) { c.trustDataPageOffset = true }
}

// File is a parquet file opened for reading. The metadata and schema are
// parsed eagerly; column chunk pages are read lazily by column readers.
type File struct {
	reader   io.ReaderAt
	size     int64
	data     []byte // non-nil when the whole file is addressable in memory
	mapping  *mmap.Mapping
	metadata format.FileMetaData
	columns  []Column
	config   fileConfig
}

// OpenFile opens a parquet file of the given size from r. If r also exposes
// a Bytes() []byte view of the whole file, pages are served from that view
// without copying.
func OpenFile(r io.ReaderAt, size int64, options ...FileOption) (*File, error) {
	f := &File{reader: r, size: size}
	for _, opt := range options {
		opt(&f.config)
	}
	if b, ok := r.(interface{ Bytes() []byte }); ok {
		if data := b.Bytes(); int64(len(data)) == size {
			f.data = data
		}
	}
	if err := f.init(); err != nil {
		return nil, err
	}
	return f, nil
}

// OpenMapped memory-maps the file at path and opens it, enabling the
// zero-copy read path for eligible pages.
func OpenMapped(path string, options ...FileOption) (*File, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	f := &File{mapping: m, data: m.Data(), size: int64(len(m.Data()))}
	for _, opt := range options {
		opt(&f.config)
	}
	if err := f.init(); err != nil {
		m.Close()
		return nil, err
	}
	return f, nil
}

func (f *File) init() error {
	if f.size < 12 {
		return fmt.Errorf("file of size %d is too short to be a parquet file: %w", f.size, ErrInvalidFileFormat)
	}

	var head, tail [8]byte
	if err := f.readAt(head[:4], 0); err != nil {
		return err
	}
	if err := f.readAt(tail[:], f.size-8); err != nil {
		return err
	}
	if string(head[:4]) != magic {
		return fmt.Errorf("missing %q header magic: %w", magic, ErrInvalidFileFormat)
	}
	if string(tail[4:]) != magic {
		return fmt.Errorf("missing %q footer magic: %w", magic, ErrInvalidFileFormat)
	}

	footerSize := int64(binary.LittleEndian.Uint32(tail[:4]))
	if footerSize > f.size-12 {
		return fmt.Errorf("footer of size %d exceeds the %d bytes between the magic markers: %w", footerSize, f.size-12, ErrInvalidFileFormat)
	}

	footer, err := f.section(f.size-8-footerSize, footerSize)
	if err != nil {
		return err
	}
	if err := format.DecodeFileMetaData(footer, &f.metadata); err != nil {
		return fmt.Errorf("decoding file metadata: %w", err)
	}

	f.columns, err = columnsOf(f.metadata.Schema)
	return err
}

// Metadata returns the parsed footer. The returned value is shared; callers
// must not modify it while column readers are open.
func (f *File) Metadata() *format.FileMetaData { return &f.metadata }

// Schema returns the flat schema element list.
func (f *File) Schema() []format.SchemaElement { return f.metadata.Schema }

// Columns returns the leaf column descriptors in schema order.
func (f *File) Columns() []Column { return f.columns }

// NumRows returns the total row count declared by the footer.
func (f *File) NumRows() int64 { return f.metadata.NumRows }

// RowGroups returns the row group metadata.
func (f *File) RowGroups() []format.RowGroup { return f.metadata.RowGroups }

// Size returns the file size in bytes.
func (f *File) Size() int64 { return f.size }

// Close releases the file mapping if one is held. Column readers created
// from the file must not be used afterwards.
func (f *File) Close() error {
	if f.mapping != nil {
		m := f.mapping
		f.mapping = nil
		f.data = nil
		return m.Close()
	}
	return nil
}

// section returns length bytes starting at off, as a view into the mapped
// region when available or as a fresh copy otherwise.
func (f *File) section(off, length int64) ([]byte, error) {
	// Bounds are checked without summing off and length: both come from
	// untrusted metadata and their sum can wrap around int64.
	if off < 0 || length < 0 || off > f.size || length > f.size-off {
		return nil, fmt.Errorf("byte section of %d bytes at %d is outside the file of size %d: %w", length, off, f.size, ErrTruncated)
	}
	if f.data != nil {
		return f.data[off : off+length], nil
	}
	buf := make([]byte, length)
	if err := f.readAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

func (f *File) readAt(b []byte, off int64) error {
	if f.data != nil {
		if off < 0 || off > f.size || int64(len(b)) > f.size-off {
			return fmt.Errorf("read at %d past the end of the file: %w", off, ErrTruncated)
		}
		copy(b, f.data[off:])
		return nil
	}
	n, err := f.reader.ReadAt(b, off)
	if err != nil && !(err == io.EOF && n == len(b)) {
		return fmt.Errorf("reading %d bytes at offset %d: %w", len(b), off, err)
	}
	return nil
}

// mappedView reports whether page payloads can be served as views into a
// stable in-memory region.
func (f *File) mappedView() bool { return f.data != nil }
