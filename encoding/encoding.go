// Package encoding provides the generic APIs implemented by parquet
// encodings in its sub-packages.
//
// Values cross the API boundary in their PLAIN representation: fixed-width
// types as little-endian byte slices, BYTE_ARRAY as 4-byte length-prefixed
// sequences. Encode methods convert from PLAIN into the target encoding;
// Decode methods convert back, appending to dst and returning the extended
// slice.
package encoding

import "math"

const (
	// MaxFixedLenByteArraySize bounds the per-value size of
	// FIXED_LEN_BYTE_ARRAY columns.
	MaxFixedLenByteArraySize = math.MaxInt16
)

// The Encoding interface is implemented by types representing parquet column
// encodings.
//
// Encoding instances must be safe to use concurrently from multiple
// goroutines.
type Encoding interface {
	// Returns a human-readable name for the encoding.
	String() string

	// Encode methods serialize the source values into the destination
	// buffer, growing it as needed.
	EncodeBoolean(dst, src []byte) ([]byte, error)
	EncodeInt32(dst, src []byte) ([]byte, error)
	EncodeInt64(dst, src []byte) ([]byte, error)
	EncodeFloat(dst, src []byte) ([]byte, error)
	EncodeDouble(dst, src []byte) ([]byte, error)
	EncodeByteArray(dst, src []byte) ([]byte, error)
	EncodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error)

	// Decode methods deserialize from the source buffer into the
	// destination slice, writing values in the PLAIN encoding.
	DecodeBoolean(dst, src []byte) ([]byte, error)
	DecodeInt32(dst, src []byte) ([]byte, error)
	DecodeInt64(dst, src []byte) ([]byte, error)
	DecodeFloat(dst, src []byte) ([]byte, error)
	DecodeDouble(dst, src []byte) ([]byte, error)
	DecodeByteArray(dst, src []byte) ([]byte, error)
	DecodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error)
}
