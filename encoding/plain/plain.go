// Package plain implements the PLAIN parquet encoding.
//
// https://github.com/apache/parquet-format/blob/master/Encodings.md#plain-plain--0
//
// Fixed-width types are raw little-endian arrays, booleans are bit-packed 8
// per byte LSB first, and BYTE_ARRAY values are length-prefixed with a
// 4-byte little-endian length. PLAIN is also the in-memory representation
// used across the encoding APIs, so most methods are validated copies.
package plain

import (
	"encoding/binary"
	"fmt"

	"github.com/Vitruves/carquet-go/encoding"
)

// ByteArrayLengthSize is the size of the length prefix of a BYTE_ARRAY
// value.
const ByteArrayLengthSize = 4

type Encoding struct{}

func (e *Encoding) String() string { return "PLAIN" }

func (e *Encoding) EncodeBoolean(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (e *Encoding) EncodeInt32(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst, encoding.ErrEncodeInvalidInputSize(e, "INT32", len(src))
	}
	return append(dst, src...), nil
}

func (e *Encoding) EncodeInt64(dst, src []byte) ([]byte, error) {
	if (len(src) % 8) != 0 {
		return dst, encoding.ErrEncodeInvalidInputSize(e, "INT64", len(src))
	}
	return append(dst, src...), nil
}

func (e *Encoding) EncodeFloat(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst, encoding.ErrEncodeInvalidInputSize(e, "FLOAT", len(src))
	}
	return append(dst, src...), nil
}

func (e *Encoding) EncodeDouble(dst, src []byte) ([]byte, error) {
	if (len(src) % 8) != 0 {
		return dst, encoding.ErrEncodeInvalidInputSize(e, "DOUBLE", len(src))
	}
	return append(dst, src...), nil
}

func (e *Encoding) EncodeByteArray(dst, src []byte) ([]byte, error) {
	if err := ValidateByteArray(src); err != nil {
		return dst, encoding.Error(e, err)
	}
	return append(dst, src...), nil
}

func (e *Encoding) EncodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error) {
	if size < 0 || size > encoding.MaxFixedLenByteArraySize || (len(src)%size) != 0 {
		return dst, encoding.ErrEncodeInvalidInputSize(e, "FIXED_LEN_BYTE_ARRAY", len(src))
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeBoolean(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (e *Encoding) DecodeInt32(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst, encoding.Error(e, encoding.Errorf("decoding INT32 from input of size %d", len(src)))
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeInt64(dst, src []byte) ([]byte, error) {
	if (len(src) % 8) != 0 {
		return dst, encoding.Error(e, encoding.Errorf("decoding INT64 from input of size %d", len(src)))
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeFloat(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst, encoding.Error(e, encoding.Errorf("decoding FLOAT from input of size %d", len(src)))
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeDouble(dst, src []byte) ([]byte, error) {
	if (len(src) % 8) != 0 {
		return dst, encoding.Error(e, encoding.Errorf("decoding DOUBLE from input of size %d", len(src)))
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeByteArray(dst, src []byte) ([]byte, error) {
	if err := ValidateByteArray(src); err != nil {
		return dst, encoding.Error(e, err)
	}
	return append(dst, src...), nil
}

func (e *Encoding) DecodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error) {
	if size < 0 || size > encoding.MaxFixedLenByteArraySize || (len(src)%size) != 0 {
		return dst, encoding.Error(e, encoding.Errorf("decoding FIXED_LEN_BYTE_ARRAY of size %d from input of size %d", size, len(src)))
	}
	return append(dst, src...), nil
}

// AppendBoolean sets the i'th boolean of values to v, extending the
// bit-packed buffer as needed.
func AppendBoolean(values []byte, i int, v bool) []byte {
	if cap(values) > i/8 {
		values = values[:i/8+1]
	} else {
		values = append(values, make([]byte, (i/8+1)-len(values))...)
	}
	if v {
		values[i/8] |= 1 << (uint(i) % 8)
	} else {
		values[i/8] &= ^(1 << (uint(i) % 8))
	}
	return values
}

// Boolean returns the i'th boolean of the bit-packed values.
func Boolean(values []byte, i int) bool {
	return (values[i/8]>>(uint(i)%8))&1 != 0
}

// AppendByteArray appends a length-prefixed BYTE_ARRAY value to dst.
func AppendByteArray(dst, value []byte) []byte {
	var length [ByteArrayLengthSize]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(value)))
	dst = append(dst, length[:]...)
	return append(dst, value...)
}

// RangeByteArray calls fn for every value of a PLAIN-encoded BYTE_ARRAY
// sequence, stopping at the first error.
func RangeByteArray(src []byte, fn func(value []byte) error) error {
	for len(src) > 0 {
		value, next, err := NextByteArray(src)
		if err != nil {
			return err
		}
		if err := fn(value); err != nil {
			return err
		}
		src = next
	}
	return nil
}

// NextByteArray splits the first length-prefixed value off src, returning
// the value and the rest of the input.
func NextByteArray(src []byte) (value, rest []byte, err error) {
	if len(src) < ByteArrayLengthSize {
		return nil, src, fmt.Errorf("truncated BYTE_ARRAY length prefix: %w", encoding.ErrInvalidInput)
	}
	n := int(int32(binary.LittleEndian.Uint32(src)))
	if n < 0 {
		return nil, src, fmt.Errorf("negative BYTE_ARRAY length %d: %w", n, encoding.ErrInvalidInput)
	}
	if n > len(src)-ByteArrayLengthSize {
		return nil, src, fmt.Errorf("BYTE_ARRAY length %d exceeds input: %w", n, encoding.ErrInvalidInput)
	}
	return src[ByteArrayLengthSize : ByteArrayLengthSize+n], src[ByteArrayLengthSize+n:], nil
}

// ValidateByteArray checks the framing of a PLAIN-encoded BYTE_ARRAY
// sequence without materializing values.
func ValidateByteArray(src []byte) error {
	return RangeByteArray(src, func([]byte) error { return nil })
}

// CountByteArray returns the number of values in a well-formed sequence.
func CountByteArray(src []byte) int {
	n := 0
	RangeByteArray(src, func([]byte) error { n++; return nil })
	return n
}
