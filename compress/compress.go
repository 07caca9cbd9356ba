// Package compress provides the generic APIs implemented by parquet
// compression codecs in its sub-packages.
//
// https://github.com/apache/parquet-format/blob/master/Compression.md
package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/Vitruves/carquet-go/format"
)

// The Codec interface is implemented by compression codecs applied to the
// payload of parquet pages.
//
// Codec instances must be safe to use concurrently from multiple goroutines.
type Codec interface {
	// Returns a human-readable name for the codec.
	String() string

	// Returns the code of the compression codec in the parquet format.
	CompressionCodec() format.CompressionCodec

	// Writes the compressed version of src to dst and returns it.
	Encode(dst, src []byte) ([]byte, error)

	// Writes the uncompressed version of src to dst and returns it. A
	// non-zero capacity on dst lets callers decoding untrusted input
	// bound the output: codecs whose output size is driven by the stream
	// itself fail once it exceeds the capacity instead of growing without
	// limit.
	Decode(dst, src []byte) ([]byte, error)
}

type Reader interface {
	io.ReadCloser
	Reset(io.Reader) error
}

type Writer interface {
	io.WriteCloser
	Reset(io.Writer)
}

// Compressor is a helper for codecs implemented on stream compressors; it
// pools the underlying writers so Encode does not allocate on the steady
// path.
type Compressor struct {
	writers sync.Pool
}

type compressor struct {
	writer Writer
	output bytesWriter
}

func (c *Compressor) Encode(dst, src []byte, newWriter func(io.Writer) (Writer, error)) ([]byte, error) {
	x, _ := c.writers.Get().(*compressor)
	if x == nil {
		x = new(compressor)
	}
	defer c.writers.Put(x)

	x.output.data = dst[:0]
	if x.writer == nil {
		w, err := newWriter(&x.output)
		if err != nil {
			return dst, err
		}
		x.writer = w
	} else {
		x.writer.Reset(&x.output)
	}

	if _, err := x.writer.Write(src); err != nil {
		return x.output.data, err
	}
	if err := x.writer.Close(); err != nil {
		return x.output.data, err
	}
	return x.output.data, nil
}

// Decompressor pools the underlying readers of stream decompressors.
type Decompressor struct {
	readers sync.Pool
}

type decompressor struct {
	reader Reader
	input  bytes.Reader
}

func (d *Decompressor) Decode(dst, src []byte, newReader func(io.Reader) (Reader, error)) ([]byte, error) {
	x, _ := d.readers.Get().(*decompressor)
	if x == nil {
		x = new(decompressor)
	}
	defer d.readers.Put(x)

	x.input.Reset(src)
	if x.reader == nil {
		r, err := newReader(&x.input)
		if err != nil {
			return dst, err
		}
		x.reader = r
	} else if err := x.reader.Reset(&x.input); err != nil {
		return dst, err
	}

	bound := cap(dst)
	dst = dst[:0]
	for {
		if len(dst) == cap(dst) {
			if bound > 0 && len(dst) >= bound {
				return dst, d.checkEOF(x.reader, bound)
			}
			dst = append(dst, 0)[:len(dst)]
		}
		n, err := x.reader.Read(dst[len(dst):cap(dst)])
		dst = dst[:len(dst)+n]
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return dst, err
		}
	}
}

// checkEOF verifies that a stream which filled the caller's buffer has no
// further output.
func (d *Decompressor) checkEOF(r Reader, bound int) error {
	var tail [1]byte
	for {
		n, err := r.Read(tail[:])
		if n > 0 {
			return fmt.Errorf("decoded output exceeds the %d byte destination capacity", bound)
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return err
		}
	}
}

type bytesWriter struct {
	data []byte
}

func (w *bytesWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}
