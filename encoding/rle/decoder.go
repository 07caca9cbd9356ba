package rle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/encoding"
)

// Decoder is a pull-based reader over a hybrid RLE/Bit-Packed stream. It is
// used where values are consumed incrementally, such as definition levels
// and dictionary indices interleaved with other page content.
//
// The decoder never reads past the input slice; a run whose payload extends
// beyond it fails with io.ErrUnexpectedEOF instead.
type Decoder struct {
	data     []byte
	pos      int
	bitWidth uint

	rleCount uint32
	rleValue int32

	bpCount  uint32
	bpRunPos uint8
	bpRun    [8]int32
}

// NewDecoder returns a decoder reading values of the given bit-width from
// data. The slice is retained, not copied.
func NewDecoder(data []byte, bitWidth int) *Decoder {
	return &Decoder{data: data, bitWidth: uint(bitWidth)}
}

// Reset rewinds the decoder onto a new input slice, reusing the receiver.
func (d *Decoder) Reset(data []byte, bitWidth int) {
	*d = Decoder{data: data, bitWidth: uint(bitWidth)}
}

// Get returns the next value, or io.EOF once the input is exhausted at a run
// boundary.
func (d *Decoder) Get() (int32, error) {
	if d.rleCount == 0 && d.bpCount == 0 && d.bpRunPos == 0 {
		if err := d.readRunHeader(); err != nil {
			return 0, err
		}
	}

	switch {
	case d.rleCount > 0:
		d.rleCount--
		return d.rleValue, nil
	case d.bpCount > 0 || d.bpRunPos > 0:
		if d.bpRunPos == 0 {
			if err := d.readBitPackedRun(); err != nil {
				return 0, err
			}
			d.bpCount--
		}
		v := d.bpRun[d.bpRunPos]
		d.bpRunPos = (d.bpRunPos + 1) % 8
		return v, nil
	default:
		return 0, io.EOF
	}
}

// GetBatch fills dst with the next len(dst) values.
func (d *Decoder) GetBatch(dst []int32) error {
	for i := range dst {
		v, err := d.Get()
		if err != nil {
			return err
		}
		dst[i] = v
	}
	return nil
}

// Skip discards the next n values.
func (d *Decoder) Skip(n int) error {
	for n > 0 {
		if d.rleCount > 0 {
			c := uint32(n)
			if c > d.rleCount {
				c = d.rleCount
			}
			d.rleCount -= c
			n -= int(c)
			continue
		}
		if _, err := d.Get(); err != nil {
			return err
		}
		n--
	}
	return nil
}

func (d *Decoder) readRunHeader() error {
	if d.pos >= len(d.data) {
		return io.EOF
	}
	u, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 || u>>1 > maxSupportedValueCount {
		return fmt.Errorf("rle: invalid run header: %w", encoding.ErrInvalidInput)
	}
	d.pos += n

	if u&1 != 0 {
		d.bpCount = uint32(u >> 1)
		if d.bpCount == 0 {
			return fmt.Errorf("rle: empty bit-packed run: %w", encoding.ErrInvalidInput)
		}
		d.bpRunPos = 0
		return nil
	}

	d.rleCount = uint32(u >> 1)
	if d.rleCount == 0 {
		return fmt.Errorf("rle: empty RLE run: %w", encoding.ErrInvalidInput)
	}
	return d.readRLERunValue()
}

func (d *Decoder) readRLERunValue() error {
	size := int(d.bitWidth+7) / 8
	if d.pos+size > len(d.data) {
		return fmt.Errorf("rle: truncated RLE run value: %w", io.ErrUnexpectedEOF)
	}
	var b [4]byte
	copy(b[:], d.data[d.pos:d.pos+size])
	d.pos += size

	v := binary.LittleEndian.Uint32(b[:])
	if d.bitWidth < 32 && v >= 1<<d.bitWidth {
		return fmt.Errorf("rle: RLE run value %d exceeds bit-width %d: %w", v, d.bitWidth, encoding.ErrInvalidInput)
	}
	d.rleValue = int32(v)
	return nil
}

func (d *Decoder) readBitPackedRun() error {
	size := int(d.bitWidth)
	if d.pos+size > len(d.data) {
		return fmt.Errorf("rle: truncated bit-packed run: %w", io.ErrUnexpectedEOF)
	}

	bitMask := uint64(1)<<d.bitWidth - 1
	acc := uint64(0)
	accBits := uint(0)
	k := 0
	for _, b := range d.data[d.pos : d.pos+size] {
		acc |= uint64(b) << accBits
		accBits += 8
		for accBits >= d.bitWidth && k < 8 {
			d.bpRun[k] = int32(acc & bitMask)
			acc >>= d.bitWidth
			accBits -= d.bitWidth
			k++
		}
	}
	d.pos += size
	return nil
}
