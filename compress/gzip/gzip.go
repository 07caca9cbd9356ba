// Package gzip implements the GZIP parquet compression codec.
package gzip

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/format"
)

const (
	NoCompression      = gzip.NoCompression
	BestSpeed          = gzip.BestSpeed
	BestCompression    = gzip.BestCompression
	DefaultCompression = gzip.DefaultCompression
)

type Codec struct {
	Level int

	compressor   compress.Compressor
	decompressor compress.Decompressor
}

func (c *Codec) String() string {
	return "GZIP"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Gzip
}

func (c *Codec) Encode(dst, src []byte) ([]byte, error) {
	return c.compressor.Encode(dst, src, func(w io.Writer) (compress.Writer, error) {
		level := c.Level
		if level == NoCompression {
			level = DefaultCompression
		}
		return gzip.NewWriterLevel(w, level)
	})
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	return c.decompressor.Decode(dst, src, func(r io.Reader) (compress.Reader, error) {
		return gzip.NewReader(r)
	})
}
