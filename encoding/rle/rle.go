// Package rle implements the hybrid RLE/Bit-Packed encoding employed in
// repetition and definition levels, dictionary indexed data pages, and
// boolean values in the PLAIN encoding.
//
// https://github.com/apache/parquet-format/blob/master/Encodings.md#run-length-encoding--bit-packing-hybrid-rle--3
package rle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/encoding"
)

const (
	// This limit is intended to prevent unbounded memory allocations when
	// decoding runs.
	//
	// We use a generous limit which allows for over a million values per page
	// if there is only one run to encode the repetition or definition levels
	// (this should be uncommon).
	maxSupportedValueCount = 1024 * 1024
)

type Encoding struct {
	encoding.NotSupported
	BitWidth int
}

func (e *Encoding) String() string {
	return "RLE"
}

func (e *Encoding) EncodeLevels(dst, src []byte) ([]byte, error) {
	dst, err := encodeBytes(dst[:0], src, uint(e.BitWidth))
	return dst, e.wrap(err)
}

func (e *Encoding) EncodeBoolean(dst, src []byte) ([]byte, error) {
	// When encoding booleans the output is prefixed with its 4 bytes length,
	// as expected by the parquet format. The bytes are reserved up front and
	// filled in once the encoded size is known.
	dst = append(dst[:0], 0, 0, 0, 0)
	dst, err := encodeBits(dst, src)
	binary.LittleEndian.PutUint32(dst, uint32(len(dst))-4)
	return dst, e.wrap(err)
}

func (e *Encoding) EncodeInt32(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst[:0], encoding.ErrEncodeInvalidInputSize(e, "INT32", len(src))
	}
	dst, err := encodeInt32(dst[:0], src, uint(e.BitWidth))
	return dst, e.wrap(err)
}

func (e *Encoding) DecodeLevels(dst, src []byte) ([]byte, error) {
	dst, err := decodeBytes(dst[:0], src, uint(e.BitWidth))
	return dst, e.wrap(err)
}

func (e *Encoding) DecodeBoolean(dst, src []byte) ([]byte, error) {
	if len(src) == 4 {
		return dst[:0], nil
	}
	if len(src) < 4 {
		return dst[:0], e.wrap(fmt.Errorf("input shorter than 4 bytes: %w", encoding.ErrInvalidInput))
	}
	n := int(binary.LittleEndian.Uint32(src))
	src = src[4:]
	if n > len(src) {
		return dst[:0], e.wrap(fmt.Errorf("input shorter than length prefix: %d < %d: %w", len(src), n, encoding.ErrInvalidInput))
	}
	dst, err := decodeBits(dst[:0], src[:n])
	return dst, e.wrap(err)
}

func (e *Encoding) DecodeInt32(dst, src []byte) ([]byte, error) {
	dst, err := decodeInt32(dst[:0], src, uint(e.BitWidth))
	return dst, e.wrap(err)
}

// EncodeLevelsPrefixed encodes levels preceded by the 4 bytes little-endian
// length of the encoded stream, the framing used by the level sections of v1
// data pages.
func (e *Encoding) EncodeLevelsPrefixed(dst, src []byte) ([]byte, error) {
	off := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	dst, err := encodeBytes(dst, src, uint(e.BitWidth))
	if err != nil {
		return dst[:off], e.wrap(err)
	}
	binary.LittleEndian.PutUint32(dst[off:], uint32(len(dst)-off-4))
	return dst, nil
}

// DecodeLevelsPrefixed decodes a length-prefixed level stream from the head
// of src, returning the levels and the number of source bytes consumed, the
// prefix included.
func (e *Encoding) DecodeLevelsPrefixed(dst, src []byte) ([]byte, int, error) {
	if len(src) < 4 {
		return dst[:0], 0, e.wrap(fmt.Errorf("input shorter than 4 bytes: %w", encoding.ErrInvalidInput))
	}
	n := int(int32(binary.LittleEndian.Uint32(src)))
	if n < 0 || n > len(src)-4 {
		return dst[:0], 0, e.wrap(fmt.Errorf("level stream length %d exceeds %d remaining input bytes: %w", n, len(src)-4, encoding.ErrInvalidInput))
	}
	dst, err := decodeBytes(dst[:0], src[4:4+n], uint(e.BitWidth))
	return dst, 4 + n, e.wrap(err)
}

func (e *Encoding) wrap(err error) error {
	if err != nil {
		err = encoding.Error(e, err)
	}
	return err
}

func encodeBits(dst, src []byte) ([]byte, error) {
	for i := 0; i < len(src); {
		// Look for contiguous sections of 8 bits, all zeros or ones; these
		// are run-length encoded as it only takes 2 or 3 bytes to store them.
		if src[i] == 0 || src[i] == 0xFF {
			j := i + 1
			for j < len(src) && src[j] == src[i] {
				j++
			}
			if n := j - i; n > 1 || j == len(src) {
				dst = appendUvarint(dst, uint64(8*n)<<1)
				dst = append(dst, src[i])
				i = j
				continue
			}
		}

		// Sequences of bits that are neither all zeroes nor all ones are
		// bit-packed, which is a simple copy of the input preceded by the
		// bit-pack header; each input byte already holds 8 boolean values.
		j := i + 1
		for j < len(src) {
			if (src[j] == 0 || src[j] == 0xFF) && j+1 < len(src) && src[j+1] == src[j] {
				break
			}
			j++
		}
		dst = appendUvarint(dst, uint64(j-i)<<1|1)
		dst = append(dst, src[i:j]...)
		i = j
	}
	return dst, nil
}

func encodeBytes(dst, src []byte, bitWidth uint) ([]byte, error) {
	if bitWidth > 8 {
		return dst, errEncodeInvalidBitWidth("LEVELS", bitWidth)
	}
	if bitWidth == 0 {
		for _, v := range src {
			if v != 0 {
				return dst, errEncodeOutOfRange("LEVELS", int64(v), bitWidth)
			}
		}
		return appendUvarint(dst, uint64(len(src))<<1), nil
	}

	max := byte(1<<bitWidth) - 1

	for i := 0; i < len(src); {
		if src[i] > max {
			return dst, errEncodeOutOfRange("LEVELS", int64(src[i]), bitWidth)
		}

		j := i + 1
		for j < len(src) && src[j] == src[i] {
			j++
		}

		// Short tails and long runs become RLE runs; anything else is
		// bit-packed in groups of 8 values until the next uniform group.
		if run := j - i; run >= 8 || len(src)-i < 8 {
			dst = appendUvarint(dst, uint64(run)<<1)
			dst = append(dst, src[i])
			i = j
			continue
		}

		j = i + 8
		for j+8 <= len(src) && !uniform8(src[j:j+8]) {
			j += 8
		}
		dst = appendUvarint(dst, uint64((j-i)/8)<<1|1)
		for k := i; k < j; k += 8 {
			var err error
			dst, err = appendPacked8(dst, src[k:k+8], bitWidth)
			if err != nil {
				return dst, err
			}
		}
		i = j
	}

	return dst, nil
}

func encodeInt32(dst, src []byte, bitWidth uint) ([]byte, error) {
	if bitWidth > 32 {
		return dst, errEncodeInvalidBitWidth("INT32", bitWidth)
	}

	count := len(src) / 4
	valueAt := func(k int) uint32 {
		return binary.LittleEndian.Uint32(src[4*k:])
	}

	if bitWidth == 0 {
		for k := 0; k < count; k++ {
			if valueAt(k) != 0 {
				return dst, errEncodeOutOfRange("INT32", int64(valueAt(k)), bitWidth)
			}
		}
		return appendUvarint(dst, uint64(count)<<1), nil
	}

	bitMask := uint32(1<<bitWidth) - 1
	byteCount := int(bitWidth+7) / 8

	for i := 0; i < count; {
		if v := valueAt(i); v > bitMask {
			return dst, errEncodeOutOfRange("INT32", int64(v), bitWidth)
		}

		j := i + 1
		for j < count && valueAt(j) == valueAt(i) {
			j++
		}

		if run := j - i; run >= 8 || count-i < 8 {
			dst = appendUvarint(dst, uint64(run)<<1)
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], valueAt(i))
			dst = append(dst, b[:byteCount]...)
			i = j
			continue
		}

		j = i + 8
		for j+8 <= count && !uniform8Int32(src[4*j:4*j+32]) {
			j += 8
		}
		dst = appendUvarint(dst, uint64((j-i)/8)<<1|1)
		for k := i; k < j; k += 8 {
			acc := uint64(0)
			accBits := uint(0)
			for g := 0; g < 8; g++ {
				v := valueAt(k + g)
				if v > bitMask {
					return dst, errEncodeOutOfRange("INT32", int64(v), bitWidth)
				}
				acc |= uint64(v) << accBits
				accBits += bitWidth
				for accBits >= 8 {
					dst = append(dst, byte(acc))
					acc >>= 8
					accBits -= 8
				}
			}
		}
		i = j
	}

	return dst, nil
}

func decodeBits(dst, src []byte) ([]byte, error) {
	for i := 0; i < len(src); {
		u, n := binary.Uvarint(src[i:])
		if n == 0 {
			return dst, fmt.Errorf("decoding run-length block header: %w", io.ErrUnexpectedEOF)
		}
		if n < 0 {
			return dst, fmt.Errorf("overflow after decoding %d/%d bytes of run-length block header: %w", -n+i, len(src), encoding.ErrInvalidInput)
		}
		i += n

		count, bitpack := uint(u>>1), (u&1) != 0
		if count > maxSupportedValueCount {
			return dst, fmt.Errorf("decoded run-length block cannot have more than %d values: %w", maxSupportedValueCount, encoding.ErrInvalidInput)
		}
		if !bitpack {
			if count > 0 && i >= len(src) {
				return dst, fmt.Errorf("decoding run-length block of %d values: %w", count, io.ErrUnexpectedEOF)
			}
			word := byte(0)
			if i < len(src) {
				word = src[i]
				i++
			}
			for n := uint(0); n < count; n += 8 {
				dst = append(dst, word)
			}
		} else {
			j := i + int(count)
			if j > len(src) {
				return dst, fmt.Errorf("decoding bit-packed block of %d values: %w", 8*count, io.ErrUnexpectedEOF)
			}
			dst = append(dst, src[i:j]...)
			i = j
		}
	}
	return dst, nil
}

func decodeBytes(dst, src []byte, bitWidth uint) ([]byte, error) {
	if bitWidth > 8 {
		return dst, errDecodeInvalidBitWidth("LEVELS", bitWidth)
	}

	bitMask := uint64(1<<bitWidth) - 1

	for i := 0; i < len(src); {
		u, n := binary.Uvarint(src[i:])
		if n == 0 {
			return dst, fmt.Errorf("decoding run-length block header: %w", io.ErrUnexpectedEOF)
		}
		if n < 0 {
			return dst, fmt.Errorf("overflow after decoding %d/%d bytes of run-length block header: %w", -n+i, len(src), encoding.ErrInvalidInput)
		}
		i += n

		count, bitpack := uint(u>>1), (u&1) != 0
		if count > maxSupportedValueCount {
			return dst, fmt.Errorf("decoded run-length block cannot have more than %d values: %w", maxSupportedValueCount, encoding.ErrInvalidInput)
		}
		if !bitpack {
			word := byte(0)
			if bitWidth != 0 {
				if i >= len(src) {
					return dst, fmt.Errorf("decoding run-length block of %d values: %w", count, io.ErrUnexpectedEOF)
				}
				word = src[i] & byte(bitMask)
				i++
			}
			for count > 0 {
				dst = append(dst, word)
				count--
			}
		} else {
			byteCount := int(bitWidth)
			for n := uint(0); n < count; n++ {
				j := i + byteCount
				if j > len(src) {
					return dst, fmt.Errorf("decoding bit-packed block of %d values: %w", 8*count, io.ErrUnexpectedEOF)
				}

				acc := uint64(0)
				accBits := uint(0)
				for _, b := range src[i:j] {
					acc |= uint64(b) << accBits
					accBits += 8
					for accBits >= bitWidth {
						dst = append(dst, byte(acc&bitMask))
						acc >>= bitWidth
						accBits -= bitWidth
					}
				}
				i = j
			}
		}
	}

	return dst, nil
}

func decodeInt32(dst, src []byte, bitWidth uint) ([]byte, error) {
	if bitWidth > 32 {
		return dst, errDecodeInvalidBitWidth("INT32", bitWidth)
	}

	bitMask := uint64(1<<bitWidth) - 1
	byteCount1 := int(bitWidth+7) / 8
	byteCount8 := int(bitWidth)

	for i := 0; i < len(src); {
		u, n := binary.Uvarint(src[i:])
		if n == 0 {
			return dst, fmt.Errorf("decoding run-length block header: %w", io.ErrUnexpectedEOF)
		}
		if n < 0 {
			return dst, fmt.Errorf("overflow after decoding %d/%d bytes of run-length block header: %w", -n+i, len(src), encoding.ErrInvalidInput)
		}
		i += n

		count, bitpack := uint(u>>1), (u&1) != 0
		if count > maxSupportedValueCount {
			return dst, fmt.Errorf("decoded run-length block cannot have more than %d values: %w", maxSupportedValueCount, encoding.ErrInvalidInput)
		}
		if !bitpack {
			j := i + byteCount1
			if j > len(src) {
				return dst, fmt.Errorf("decoding run-length block of %d values: %w", count, io.ErrUnexpectedEOF)
			}

			word := [4]byte{}
			copy(word[:], src[i:j])
			binary.LittleEndian.PutUint32(word[:], uint32(uint64(binary.LittleEndian.Uint32(word[:]))&bitMask))
			i = j

			for count > 0 {
				dst = append(dst, word[:]...)
				count--
			}
		} else {
			for n := uint(0); n < count; n++ {
				j := i + byteCount8
				if j > len(src) {
					return dst, fmt.Errorf("decoding bit-packed block of %d values: %w", 8*count, io.ErrUnexpectedEOF)
				}

				acc := uint64(0)
				accBits := uint(0)
				for _, b := range src[i:j] {
					acc |= uint64(b) << accBits
					accBits += 8
					for accBits >= bitWidth {
						var buf [4]byte
						binary.LittleEndian.PutUint32(buf[:], uint32(acc&bitMask))
						dst = append(dst, buf[:]...)
						acc >>= bitWidth
						accBits -= bitWidth
					}
				}
				i = j
			}
		}
	}

	return dst, nil
}

func errEncodeInvalidBitWidth(typ string, bitWidth uint) error {
	return errInvalidBitWidth("encode", typ, bitWidth)
}

func errDecodeInvalidBitWidth(typ string, bitWidth uint) error {
	return errInvalidBitWidth("decode", typ, bitWidth)
}

func errInvalidBitWidth(op, typ string, bitWidth uint) error {
	return fmt.Errorf("cannot %s %s with invalid bit-width=%d: %w", op, typ, bitWidth, encoding.ErrInvalidArgument)
}

func errEncodeOutOfRange(typ string, value int64, bitWidth uint) error {
	return fmt.Errorf("cannot encode %s value %d with bit-width=%d: %w", typ, value, bitWidth, encoding.ErrInvalidArgument)
}

func appendUvarint(dst []byte, u uint64) []byte {
	var b [binary.MaxVarintLen64]byte
	var n = binary.PutUvarint(b[:], u)
	return append(dst, b[:n]...)
}

func appendPacked8(dst []byte, values []byte, bitWidth uint) ([]byte, error) {
	bitMask := byte(1<<bitWidth) - 1
	acc := uint64(0)
	accBits := uint(0)
	for _, v := range values {
		if v > bitMask {
			return dst, errEncodeOutOfRange("LEVELS", int64(v), bitWidth)
		}
		acc |= uint64(v) << accBits
		accBits += bitWidth
		for accBits >= 8 {
			dst = append(dst, byte(acc))
			acc >>= 8
			accBits -= 8
		}
	}
	return dst, nil
}

func uniform8(b []byte) bool {
	v := b[0]
	for _, c := range b[1:] {
		if c != v {
			return false
		}
	}
	return true
}

func uniform8Int32(b []byte) bool {
	v := binary.LittleEndian.Uint32(b)
	for k := 4; k < len(b); k += 4 {
		if binary.LittleEndian.Uint32(b[k:]) != v {
			return false
		}
	}
	return true
}
