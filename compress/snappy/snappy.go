// Package snappy implements the SNAPPY parquet compression codec.
package snappy

import (
	"fmt"

	"github.com/klauspost/compress/snappy"

	"github.com/Vitruves/carquet-go/format"
)

type Codec struct {
}

func (c *Codec) String() string {
	return "SNAPPY"
}

func (c *Codec) CompressionCodec() format.CompressionCodec {
	return format.Snappy
}

func (c *Codec) Encode(dst, src []byte) ([]byte, error) {
	return snappy.Encode(dst[:cap(dst)], src), nil
}

func (c *Codec) Decode(dst, src []byte) ([]byte, error) {
	// The decoded length comes from the block header, so a forged block can
	// declare a huge output; honor the caller's bound before allocating.
	if n, err := snappy.DecodedLen(src); err == nil && cap(dst) > 0 && n > cap(dst) {
		return dst[:0], fmt.Errorf("snappy: decoded length %d exceeds the %d byte destination capacity", n, cap(dst))
	}
	return snappy.Decode(dst[:cap(dst)], src)
}
