package carquet

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Vitruves/carquet-go/encoding/plain"
	"github.com/Vitruves/carquet-go/format"
)

// Dictionary holds the decoded dictionary page of a column chunk: the unique
// values in their PLAIN representation plus, for BYTE_ARRAY columns, an
// index-to-offset table so every gather is O(1) instead of rescanning the
// length-prefixed payload from the start.
type Dictionary struct {
	typ        format.Type
	typeLength int
	numValues  int
	values     []byte
	offsets    []uint32
}

func newDictionary(col *Column, numValues int, values []byte) (*Dictionary, error) {
	d := &Dictionary{
		typ:        col.PhysicalType,
		typeLength: col.TypeLength,
		numValues:  numValues,
		values:     values,
	}
	switch col.PhysicalType {
	case format.ByteArray:
		d.offsets = make([]uint32, 0, numValues)
		off := uint32(0)
		err := plain.RangeByteArray(values, func(v []byte) error {
			d.offsets = append(d.offsets, off)
			off += uint32(plain.ByteArrayLengthSize + len(v))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("dictionary page: %w", err)
		}
		if len(d.offsets) != numValues {
			return nil, fmt.Errorf("dictionary page holds %d values, header declares %d: %w", len(d.offsets), numValues, ErrInvalidEncoding)
		}
	case format.Boolean:
		return nil, fmt.Errorf("dictionary encoding of BOOLEAN columns: %w", ErrUnsupported)
	default:
		size := typeSize(col.PhysicalType, col.TypeLength)
		if len(values) != numValues*size {
			return nil, fmt.Errorf("dictionary page of %d bytes cannot hold %d %s values: %w", len(values), numValues, col.PhysicalType, ErrInvalidEncoding)
		}
	}
	return d, nil
}

// Len returns the number of values in the dictionary.
func (d *Dictionary) Len() int { return d.numValues }

// gather appends the PLAIN representation of the values referenced by
// indexes to dst, validating every index against the dictionary size.
func (d *Dictionary) gather(dst []byte, indexes []int32) ([]byte, error) {
	if d.typ == format.ByteArray {
		for _, i := range indexes {
			if i < 0 || int(i) >= d.numValues {
				return dst, fmt.Errorf("index %d of dictionary with %d values: %w", i, d.numValues, ErrDictionaryIndexOutOfBounds)
			}
			off := d.offsets[i]
			n := plain.ByteArrayLengthSize + int(binary.LittleEndian.Uint32(d.values[off:]))
			dst = append(dst, d.values[off:int(off)+n]...)
		}
		return dst, nil
	}

	size := typeSize(d.typ, d.typeLength)
	for _, i := range indexes {
		if i < 0 || int(i) >= d.numValues {
			return dst, fmt.Errorf("index %d of dictionary with %d values: %w", i, d.numValues, ErrDictionaryIndexOutOfBounds)
		}
		off := int(i) * size
		dst = append(dst, d.values[off:off+size]...)
	}
	return dst, nil
}

// dictBuilder assigns dense 0-based indexes to distinct values during
// encoding. Values hash through FNV-1a into buckets of candidate indexes,
// resolved by comparing the stored bytes.
type dictBuilder struct {
	typeSize int // 0 for BYTE_ARRAY
	index    map[uint64][]int32
	values   []byte
	offsets  []uint32
	count    int32
}

func newDictBuilder(typeSize int) *dictBuilder {
	return &dictBuilder{
		typeSize: typeSize,
		index:    make(map[uint64][]int32),
	}
}

func (b *dictBuilder) insert(v []byte) int32 {
	h := fnv1a(v)
	for _, id := range b.index[h] {
		if bytes.Equal(b.valueAt(id), v) {
			return id
		}
	}
	id := b.count
	b.count++
	if b.typeSize > 0 {
		b.values = append(b.values, v...)
	} else {
		b.offsets = append(b.offsets, uint32(len(b.values)))
		b.values = plain.AppendByteArray(b.values, v)
	}
	b.index[h] = append(b.index[h], id)
	return id
}

func (b *dictBuilder) valueAt(id int32) []byte {
	if b.typeSize > 0 {
		off := int(id) * b.typeSize
		return b.values[off : off+b.typeSize]
	}
	off := b.offsets[id]
	n := int(binary.LittleEndian.Uint32(b.values[off:]))
	return b.values[int(off)+plain.ByteArrayLengthSize : int(off)+plain.ByteArrayLengthSize+n]
}

// page returns the PLAIN payload of the dictionary page.
func (b *dictBuilder) page() []byte { return b.values }

func (b *dictBuilder) len() int { return int(b.count) }

func fnv1a(data []byte) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for _, c := range data {
		h ^= uint64(c)
		h *= prime64
	}
	return h
}
