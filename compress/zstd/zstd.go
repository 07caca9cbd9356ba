// Package zstd implements the ZSTD parquet compression codec.
package zstd

import (
	"runtime"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Vitruves/carquet-go/format"
)

type Level = zstd.EncoderLevel

const (
	SpeedFastest           = zstd.SpeedFastest
	SpeedDefault           = zstd.SpeedDefault
	SpeedBetterCompression = zstd.SpeedBetterCompression
	SpeedBestCompression   = zstd.SpeedBestCompression
)

type Codec struct {
	Level Level

	// Concurrency is the number of goroutines the underlying encoder and
	// decoder may fan out to; zero means one per core.
	Concurrency int

	encoder *zstd.Encoder
	decoder *zstd.Decoder
	once    sync.Once
	err     error
}

func (c *Codec) String() string {
	return "ZSTD"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Zstd
}

func (c *Codec) Encode(dst, src []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return dst[:0], err
	}
	return c.encoder.EncodeAll(src, dst[:0]), nil
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	if err := c.init(); err != nil {
		return dst[:0], err
	}
	return c.decoder.DecodeAll(src, dst[:0])
}

func (c *Codec) init() error {
	c.once.Do(func() {
		level := c.Level
		if level == 0 {
			level = SpeedDefault
		}
		c.encoder, c.err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(level),
			zstd.WithEncoderConcurrency(c.concurrency()),
		)
		if c.err != nil {
			return
		}
		c.decoder, c.err = zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(c.concurrency()),
		)
	})
	return c.err
}

func (c *Codec) concurrency() int {
	if c.Concurrency > 0 {
		return c.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}
