package delta

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/encoding"
	"github.com/Vitruves/carquet-go/internal/bitpack"
)

// BinaryPackedEncoding is the DELTA_BINARY_PACKED encoding for INT32 and
// INT64 columns.
//
// Deltas are computed with wrap-around arithmetic, so sequences spanning the
// full integer range still pack into at most the type's own bit width.
type BinaryPackedEncoding struct {
	encoding.NotSupported
}

func (e *BinaryPackedEncoding) String() string { return "DELTA_BINARY_PACKED" }

func (e *BinaryPackedEncoding) EncodeInt32(dst, src []byte) ([]byte, error) {
	if (len(src) % 4) != 0 {
		return dst[:0], encoding.ErrEncodeInvalidInputSize(e, "INT32", len(src))
	}
	return encodeInt32(dst[:0], src), nil
}

func (e *BinaryPackedEncoding) EncodeInt64(dst, src []byte) ([]byte, error) {
	if (len(src) % 8) != 0 {
		return dst[:0], encoding.ErrEncodeInvalidInputSize(e, "INT64", len(src))
	}
	return encodeInt64(dst[:0], src), nil
}

func (e *BinaryPackedEncoding) DecodeInt32(dst, src []byte) ([]byte, error) {
	dst, _, err := decodeInt32(dst[:0], src)
	return dst, e.wrap(err)
}

func (e *BinaryPackedEncoding) DecodeInt64(dst, src []byte) ([]byte, error) {
	dst, _, err := decodeInt64(dst[:0], src)
	return dst, e.wrap(err)
}

func (e *BinaryPackedEncoding) wrap(err error) error {
	if err != nil {
		err = encoding.Error(e, err)
	}
	return err
}

func encodeInt32(dst, src []byte) []byte {
	count := len(src) / 4
	dst = binary.AppendUvarint(dst, blockSize)
	dst = binary.AppendUvarint(dst, numMiniBlocks)
	dst = binary.AppendUvarint(dst, uint64(count))

	var first int32
	if count > 0 {
		first = int32(binary.LittleEndian.Uint32(src))
	}
	dst = binary.AppendVarint(dst, int64(first))

	deltas := make([]int32, 0, blockSize)
	prev := first
	for i := 1; i < count; {
		deltas = deltas[:0]
		for i < count && len(deltas) < blockSize {
			v := int32(binary.LittleEndian.Uint32(src[4*i:]))
			deltas = append(deltas, v-prev)
			prev = v
			i++
		}
		dst = appendInt32Block(dst, deltas)
	}
	return dst
}

func appendInt32Block(dst []byte, deltas []int32) []byte {
	minDelta := deltas[0]
	for _, d := range deltas[1:] {
		if d < minDelta {
			minDelta = d
		}
	}
	dst = binary.AppendVarint(dst, int64(minDelta))

	var widths [numMiniBlocks]byte
	for m := 0; m < numMiniBlocks; m++ {
		lo := m * miniBlockSize
		if lo >= len(deltas) {
			break
		}
		hi := min(lo+miniBlockSize, len(deltas))
		w := uint(0)
		for _, d := range deltas[lo:hi] {
			if n := bitpack.Width(uint64(uint32(d - minDelta))); n > w {
				w = n
			}
		}
		widths[m] = byte(w)
	}
	dst = append(dst, widths[:]...)

	// Mini blocks are stored in full, the tail of a partial block padded
	// with zeros.
	var block [miniBlockSize]uint64
	for m := 0; m < numMiniBlocks; m++ {
		lo := m * miniBlockSize
		if lo >= len(deltas) {
			break
		}
		hi := min(lo+miniBlockSize, len(deltas))
		for k := 0; k < miniBlockSize; k++ {
			if lo+k < hi {
				block[k] = uint64(uint32(deltas[lo+k] - minDelta))
			} else {
				block[k] = 0
			}
		}
		dst = bitpack.AppendUint64(dst, block[:], uint(widths[m]))
	}
	return dst
}

func encodeInt64(dst, src []byte) []byte {
	count := len(src) / 8
	dst = binary.AppendUvarint(dst, blockSize)
	dst = binary.AppendUvarint(dst, numMiniBlocks)
	dst = binary.AppendUvarint(dst, uint64(count))

	var first int64
	if count > 0 {
		first = int64(binary.LittleEndian.Uint64(src))
	}
	dst = binary.AppendVarint(dst, first)

	deltas := make([]int64, 0, blockSize)
	prev := first
	for i := 1; i < count; {
		deltas = deltas[:0]
		for i < count && len(deltas) < blockSize {
			v := int64(binary.LittleEndian.Uint64(src[8*i:]))
			deltas = append(deltas, v-prev)
			prev = v
			i++
		}
		dst = appendInt64Block(dst, deltas)
	}
	return dst
}

func appendInt64Block(dst []byte, deltas []int64) []byte {
	minDelta := deltas[0]
	for _, d := range deltas[1:] {
		if d < minDelta {
			minDelta = d
		}
	}
	dst = binary.AppendVarint(dst, minDelta)

	var widths [numMiniBlocks]byte
	for m := 0; m < numMiniBlocks; m++ {
		lo := m * miniBlockSize
		if lo >= len(deltas) {
			break
		}
		hi := min(lo+miniBlockSize, len(deltas))
		w := uint(0)
		for _, d := range deltas[lo:hi] {
			if n := bitpack.Width(uint64(d - minDelta)); n > w {
				w = n
			}
		}
		widths[m] = byte(w)
	}
	dst = append(dst, widths[:]...)

	var block [miniBlockSize]uint64
	for m := 0; m < numMiniBlocks; m++ {
		lo := m * miniBlockSize
		if lo >= len(deltas) {
			break
		}
		hi := min(lo+miniBlockSize, len(deltas))
		for k := 0; k < miniBlockSize; k++ {
			if lo+k < hi {
				block[k] = uint64(deltas[lo+k] - minDelta)
			} else {
				block[k] = 0
			}
		}
		dst = bitpack.AppendUint64(dst, block[:], uint(widths[m]))
	}
	return dst
}

type blockHeader struct {
	miniBlocks    int
	miniBlockSize int
	totalCount    int
	firstValue    int64
}

func decodeHeader(src []byte) (h blockHeader, n int, err error) {
	bs, k := binary.Uvarint(src)
	if k <= 0 {
		return h, 0, fmt.Errorf("decoding block size: %w", io.ErrUnexpectedEOF)
	}
	n += k
	mb, k := binary.Uvarint(src[n:])
	if k <= 0 {
		return h, 0, fmt.Errorf("decoding mini block count: %w", io.ErrUnexpectedEOF)
	}
	n += k
	total, k := binary.Uvarint(src[n:])
	if k <= 0 {
		return h, 0, fmt.Errorf("decoding total value count: %w", io.ErrUnexpectedEOF)
	}
	n += k
	first, k := binary.Varint(src[n:])
	if k <= 0 {
		return h, 0, fmt.Errorf("decoding first value: %w", io.ErrUnexpectedEOF)
	}
	n += k

	if bs == 0 || bs%128 != 0 || bs > maxSupportedValueCount {
		return h, 0, fmt.Errorf("invalid block size %d: %w", bs, encoding.ErrInvalidInput)
	}
	if mb == 0 || bs%mb != 0 || (bs/mb)%32 != 0 {
		return h, 0, fmt.Errorf("invalid mini block count %d for block size %d: %w", mb, bs, encoding.ErrInvalidInput)
	}
	if total > maxSupportedValueCount {
		return h, 0, fmt.Errorf("declared value count %d exceeds limit %d: %w", total, maxSupportedValueCount, encoding.ErrInvalidInput)
	}

	h.miniBlocks = int(mb)
	h.miniBlockSize = int(bs / mb)
	h.totalCount = int(total)
	h.firstValue = first
	return h, n, nil
}

func decodeInt32(dst, src []byte) ([]byte, int, error) {
	h, p, err := decodeHeader(src)
	if err != nil {
		return dst, 0, err
	}
	if h.totalCount == 0 {
		return dst, p, nil
	}

	prev := int32(h.firstValue)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(prev))
	remaining := h.totalCount - 1

	scratch := make([]uint64, h.miniBlockSize)
	for remaining > 0 {
		minDelta, k := binary.Varint(src[p:])
		if k <= 0 {
			return dst, p, fmt.Errorf("decoding min delta: %w", io.ErrUnexpectedEOF)
		}
		p += k
		if p+h.miniBlocks > len(src) {
			return dst, p, fmt.Errorf("decoding mini block widths: %w", io.ErrUnexpectedEOF)
		}
		widths := src[p : p+h.miniBlocks]
		p += h.miniBlocks

		for m := 0; m < h.miniBlocks && remaining > 0; m++ {
			w := uint(widths[m])
			if w > 32 {
				return dst, p, fmt.Errorf("mini block bit-width %d exceeds 32: %w", w, encoding.ErrInvalidInput)
			}
			size := bitpack.PackedSize(h.miniBlockSize, w)
			if p+size > len(src) {
				return dst, p, fmt.Errorf("decoding mini block values: %w", io.ErrUnexpectedEOF)
			}
			take := min(h.miniBlockSize, remaining)
			r := bitpack.NewUint64Reader(src[p:p+size], w)
			if r.ReadBatch(scratch[:take]) != take {
				return dst, p, fmt.Errorf("decoding mini block values: %w", io.ErrUnexpectedEOF)
			}
			for _, v := range scratch[:take] {
				prev += int32(minDelta) + int32(uint32(v))
				dst = binary.LittleEndian.AppendUint32(dst, uint32(prev))
			}
			p += size
			remaining -= take
		}
	}
	return dst, p, nil
}

func decodeInt64(dst, src []byte) ([]byte, int, error) {
	h, p, err := decodeHeader(src)
	if err != nil {
		return dst, 0, err
	}
	if h.totalCount == 0 {
		return dst, p, nil
	}

	prev := h.firstValue
	dst = binary.LittleEndian.AppendUint64(dst, uint64(prev))
	remaining := h.totalCount - 1

	scratch := make([]uint64, h.miniBlockSize)
	for remaining > 0 {
		minDelta, k := binary.Varint(src[p:])
		if k <= 0 {
			return dst, p, fmt.Errorf("decoding min delta: %w", io.ErrUnexpectedEOF)
		}
		p += k
		if p+h.miniBlocks > len(src) {
			return dst, p, fmt.Errorf("decoding mini block widths: %w", io.ErrUnexpectedEOF)
		}
		widths := src[p : p+h.miniBlocks]
		p += h.miniBlocks

		for m := 0; m < h.miniBlocks && remaining > 0; m++ {
			w := uint(widths[m])
			if w > 64 {
				return dst, p, fmt.Errorf("mini block bit-width %d exceeds 64: %w", w, encoding.ErrInvalidInput)
			}
			size := bitpack.PackedSize(h.miniBlockSize, w)
			if p+size > len(src) {
				return dst, p, fmt.Errorf("decoding mini block values: %w", io.ErrUnexpectedEOF)
			}
			take := min(h.miniBlockSize, remaining)
			r := bitpack.NewUint64Reader(src[p:p+size], w)
			if r.ReadBatch(scratch[:take]) != take {
				return dst, p, fmt.Errorf("decoding mini block values: %w", io.ErrUnexpectedEOF)
			}
			for _, v := range scratch[:take] {
				prev += minDelta + int64(v)
				dst = binary.LittleEndian.AppendUint64(dst, uint64(prev))
			}
			p += size
			remaining -= take
		}
	}
	return dst, p, nil
}
