// Package lz4 implements the LZ4_RAW parquet compression codec, the
// block-level lz4 format without frame headers.
package lz4

import (
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"

	"github.com/Vitruves/carquet-go/format"
)

type Level int

const (
	Fastest Level = iota
	Fast
	Level1
	Level2
	Level3
	Level4
	Level5
	Level6
	Level7
	Level8
	Level9
)

type Codec struct {
	Level Level
}

func (c *Codec) String() string {
	return "LZ4_RAW"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Lz4Raw
}

func (c *Codec) Encode(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst[:0], nil
	}
	bound := lz4.CompressBlockBound(len(src))
	if cap(dst) < bound {
		dst = make([]byte, bound)
	} else {
		dst = dst[:bound]
	}

	var n int
	var err error
	switch c.Level {
	case Fastest, Fast:
		var compressor lz4.Compressor
		n, err = compressor.CompressBlock(src, dst)
	default:
		compressor := lz4.CompressorHC{Level: compressionLevel(c.Level)}
		n, err = compressor.CompressBlock(src, dst)
	}
	if err != nil {
		return dst[:0], err
	}
	if n == 0 {
		// The block api returns 0 for incompressible inputs; LZ4_RAW has no
		// framing to flag a stored block, so fall back to a literal-only
		// sequence which lz4 can always represent.
		return appendLiteralBlock(dst[:0], src), nil
	}
	return dst[:n], nil
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	if len(src) == 0 {
		return dst[:0], nil
	}
	size := cap(dst)
	if size < 4*len(src) {
		size = 4 * len(src)
	}
	if size == 0 {
		size = 64
	}
	for {
		dst = dst[:0]
		dst = append(dst, make([]byte, size)...)
		n, err := lz4.UncompressBlock(src, dst)
		if err == nil {
			return dst[:n], nil
		}
		// The lz4 block format caps the compression ratio at 255x, so any
		// failure past that bound is corruption rather than a short buffer.
		if size >= 255*len(src)+64 || size >= math.MaxInt32/2 {
			return dst[:0], fmt.Errorf("lz4: %w", err)
		}
		size *= 2
	}
}

func compressionLevel(level Level) lz4.CompressionLevel {
	switch level {
	case Level1:
		return lz4.Level1
	case Level2:
		return lz4.Level2
	case Level3:
		return lz4.Level3
	case Level4:
		return lz4.Level4
	case Level5:
		return lz4.Level5
	case Level6:
		return lz4.Level6
	case Level7:
		return lz4.Level7
	case Level8:
		return lz4.Level8
	case Level9:
		return lz4.Level9
	default:
		return lz4.Fast
	}
}

// appendLiteralBlock emits src as a single literal-only lz4 sequence, which
// the block format only permits as the final sequence of a block.
func appendLiteralBlock(dst, src []byte) []byte {
	if len(src) == 0 {
		return dst
	}
	n := len(src)
	token := byte(15 << 4)
	if n < 15 {
		token = byte(n << 4)
	}
	dst = append(dst, token)
	if n >= 15 {
		for v := n - 15; ; v -= 255 {
			if v < 255 {
				dst = append(dst, byte(v))
				break
			}
			dst = append(dst, 255)
		}
	}
	return append(dst, src...)
}
