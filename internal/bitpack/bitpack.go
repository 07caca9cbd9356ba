// Package bitpack packs and unpacks unsigned integers at arbitrary bit
// widths, LSB first, 8 values per group, matching the layout shared by the
// RLE/bit-packing hybrid and DELTA_BINARY_PACKED encodings.
package bitpack

// ByteCount returns the number of bytes needed to hold bitCount bits.
func ByteCount(bitCount uint) int {
	return int((bitCount + 7) / 8)
}

// AppendUint64 appends the low bitWidth bits of each value in src to dst.
// The total number of bits written is len(src)*bitWidth, rounded up to a
// whole byte at the end of the output only.
func AppendUint64(dst []byte, src []uint64, bitWidth uint) []byte {
	if bitWidth == 0 {
		return dst
	}
	mask := uint64(1)<<bitWidth - 1 // all ones when bitWidth == 64

	var cur byte
	var curBits uint
	for _, v := range src {
		v &= mask
		remaining := bitWidth
		for remaining > 0 {
			cur |= byte(v << curBits)
			n := 8 - curBits
			if n > remaining {
				n = remaining
			}
			curBits += n
			remaining -= n
			v >>= n
			if curBits == 8 {
				dst = append(dst, cur)
				cur, curBits = 0, 0
			}
		}
	}
	if curBits > 0 {
		dst = append(dst, cur)
	}
	return dst
}

// Uint64Reader consumes bit-packed values from a byte slice.
type Uint64Reader struct {
	data     []byte
	bitWidth uint
	pos      int  // byte position
	bitOff   uint // bit offset within data[pos]
}

func NewUint64Reader(data []byte, bitWidth uint) *Uint64Reader {
	return &Uint64Reader{data: data, bitWidth: bitWidth}
}

// Remaining returns how many more values fit in the unread input.
func (r *Uint64Reader) Remaining() int {
	bits := uint(len(r.data)-r.pos)*8 - r.bitOff
	if r.bitWidth == 0 {
		return 0
	}
	return int(bits / r.bitWidth)
}

// Read decodes the next value, returning false when the input is exhausted.
func (r *Uint64Reader) Read() (uint64, bool) {
	w := r.bitWidth
	if w == 0 {
		return 0, true
	}
	bitsLeft := uint(len(r.data)-r.pos)*8 - r.bitOff
	if bitsLeft < w {
		return 0, false
	}

	var v uint64
	var got uint
	pos, off := r.pos, r.bitOff
	for got < w {
		b := uint64(r.data[pos] >> off)
		take := 8 - off
		if take > w-got {
			take = w - got
		}
		v |= (b & (1<<take - 1)) << got
		got += take
		off += take
		if off == 8 {
			off = 0
			pos++
		}
	}
	r.pos, r.bitOff = pos, off
	return v, true
}

// ReadBatch fills dst, returning the number of values decoded before the
// input ran out.
func (r *Uint64Reader) ReadBatch(dst []uint64) int {
	for i := range dst {
		v, ok := r.Read()
		if !ok {
			return i
		}
		dst[i] = v
	}
	return len(dst)
}

// UnpackUint32 decodes count values of the given bit width from src into
// dst. It returns the number of source bytes consumed, or -1 if src is too
// short.
func UnpackUint32(dst []uint32, src []byte, count int, bitWidth uint) int {
	need := ByteCount(uint(count) * bitWidth)
	if need > len(src) {
		return -1
	}
	r := NewUint64Reader(src[:need], bitWidth)
	for i := 0; i < count; i++ {
		v, ok := r.Read()
		if !ok {
			return -1
		}
		dst[i] = uint32(v)
	}
	return need
}

// PackedSize returns the byte size of count values at the given width.
func PackedSize(count int, bitWidth uint) int {
	return ByteCount(uint(count) * bitWidth)
}

// Width returns the minimum bit width able to represent v.
func Width(v uint64) uint {
	w := uint(0)
	for v != 0 {
		v >>= 1
		w++
	}
	return w
}
