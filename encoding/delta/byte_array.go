package delta

import (
	"encoding/binary"
	"fmt"

	"github.com/Vitruves/carquet-go/encoding"
	"github.com/Vitruves/carquet-go/encoding/plain"
)

// ByteArrayEncoding is the DELTA_BYTE_ARRAY encoding, also known as
// incremental encoding: each value stores the length of the prefix shared
// with the previous value, followed by its suffix. Prefix lengths form a
// DELTA_BINARY_PACKED INT32 stream; suffixes are DELTA_LENGTH_BYTE_ARRAY.
type ByteArrayEncoding struct {
	encoding.NotSupported
}

func (e *ByteArrayEncoding) String() string { return "DELTA_BYTE_ARRAY" }

func (e *ByteArrayEncoding) EncodeByteArray(dst, src []byte) ([]byte, error) {
	var prefixLengths []byte
	var suffixes []byte
	var prev []byte

	err := plain.RangeByteArray(src, func(v []byte) error {
		p := commonPrefixLength(prev, v)
		prefixLengths = binary.LittleEndian.AppendUint32(prefixLengths, uint32(p))
		suffixes = plain.AppendByteArray(suffixes, v[p:])
		prev = v
		return nil
	})
	if err != nil {
		return dst[:0], e.wrap(err)
	}

	dst = encodeInt32(dst[:0], prefixLengths)
	dst, err = encodeLengthByteArray(dst, suffixes)
	return dst, e.wrap(err)
}

func (e *ByteArrayEncoding) DecodeByteArray(dst, src []byte) ([]byte, error) {
	prefixLengths, n, err := decodeInt32(nil, src)
	if err != nil {
		return dst[:0], e.wrap(err)
	}
	suffixes, _, err := decodeLengthByteArray(nil, src[n:])
	if err != nil {
		return dst[:0], e.wrap(err)
	}

	dst = dst[:0]
	var prev []byte
	i := 0
	err = plain.RangeByteArray(suffixes, func(suffix []byte) error {
		if 4*i >= len(prefixLengths) {
			return fmt.Errorf("%d suffixes but only %d prefix lengths: %w", i+1, len(prefixLengths)/4, encoding.ErrInvalidInput)
		}
		p := int(int32(binary.LittleEndian.Uint32(prefixLengths[4*i:])))
		i++
		if p < 0 || p > len(prev) {
			return fmt.Errorf("prefix length %d exceeds previous value length %d: %w", p, len(prev), encoding.ErrInvalidInput)
		}
		value := make([]byte, 0, p+len(suffix))
		value = append(value, prev[:p]...)
		value = append(value, suffix...)
		dst = plain.AppendByteArray(dst, value)
		prev = value
		return nil
	})
	if err != nil {
		return dst, e.wrap(err)
	}
	if 4*i != len(prefixLengths) {
		return dst, e.wrap(fmt.Errorf("%d prefix lengths but only %d suffixes: %w", len(prefixLengths)/4, i, encoding.ErrInvalidInput))
	}
	return dst, nil
}

func (e *ByteArrayEncoding) wrap(err error) error {
	if err != nil {
		err = encoding.Error(e, err)
	}
	return err
}

func commonPrefixLength(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
