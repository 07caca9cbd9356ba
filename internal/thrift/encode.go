package thrift

import (
	"encoding/binary"
	"math"
)

// Encoder appends Compact Protocol values to a byte buffer. It mirrors every
// Decoder operation and tracks the same per-scope last-field-id stack to emit
// the short field header form whenever the delta fits in a nibble.
type Encoder struct {
	buf []byte
	err error

	lastFieldID [MaxDepth]int16
	depth       int
}

// NewEncoder returns an encoder appending to buf (which may be nil).
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Bytes returns the encoded output.
func (e *Encoder) Bytes() []byte { return e.buf }

// Err returns the first error encountered while encoding, or nil.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) writeUvarint(u uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], u)
	e.buf = append(e.buf, b[:n]...)
}

func (e *Encoder) writeVarint(v int64) {
	e.writeUvarint(zigzagEncode(v))
}

func (e *Encoder) WriteStructBegin() {
	if e.depth+1 >= MaxDepth {
		e.fail(ErrDepthExceeded)
		return
	}
	e.depth++
	e.lastFieldID[e.depth] = 0
}

// WriteStructEnd emits the STOP byte and closes the struct scope.
func (e *Encoder) WriteStructEnd() {
	e.buf = append(e.buf, byte(Stop))
	if e.depth > 0 {
		e.depth--
	}
}

// WriteFieldHeader emits a field header for id with the given wire type,
// using the compact delta form when the id is 1 to 15 above the previous
// field in this scope, and the explicit zigzag form otherwise. Field IDs
// need not be written in increasing order; out-of-order IDs simply take the
// long form.
func (e *Encoder) WriteFieldHeader(id int16, typ Type) {
	delta := int(id) - int(e.lastFieldID[e.depth])
	if delta >= 1 && delta <= 15 {
		e.buf = append(e.buf, byte(delta)<<4|byte(typ))
	} else {
		e.buf = append(e.buf, byte(typ))
		e.writeVarint(int64(id))
	}
	e.lastFieldID[e.depth] = id
}

// WriteBoolField encodes a boolean field; the value rides in the type nibble
// of the header itself.
func (e *Encoder) WriteBoolField(id int16, v bool) {
	typ := FalseBool
	if v {
		typ = TrueBool
	}
	e.WriteFieldHeader(id, typ)
}

// WriteBool encodes a standalone boolean (a list or map element) as a full
// byte.
func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, byte(TrueBool))
	} else {
		e.buf = append(e.buf, byte(FalseBool))
	}
}

func (e *Encoder) WriteI8(v int8) { e.buf = append(e.buf, byte(v)) }

func (e *Encoder) WriteI16(v int16) { e.writeVarint(int64(v)) }

func (e *Encoder) WriteI32(v int32) { e.writeVarint(int64(v)) }

func (e *Encoder) WriteI64(v int64) { e.writeVarint(v) }

func (e *Encoder) WriteDouble(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteBytes(v []byte) {
	e.writeUvarint(uint64(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *Encoder) WriteString(v string) {
	e.writeUvarint(uint64(len(v)))
	e.buf = append(e.buf, v...)
}

// WriteListHeader emits a list or set header: sizes below 15 ride in the
// high nibble, larger sizes follow as a varint.
func (e *Encoder) WriteListHeader(size int, elem Type) {
	if size < 0x0F {
		e.buf = append(e.buf, byte(size)<<4|byte(elem))
	} else {
		e.buf = append(e.buf, 0xF0|byte(elem))
		e.writeUvarint(uint64(size))
	}
}

// WriteMapHeader emits a map header. Empty maps omit the key/value type
// byte.
func (e *Encoder) WriteMapHeader(size int, key, val Type) {
	e.writeUvarint(uint64(size))
	if size > 0 {
		e.buf = append(e.buf, byte(key)<<4|byte(val))
	}
}
