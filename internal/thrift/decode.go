package thrift

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// Decoder reads Compact Protocol values from a byte slice. The zero value is
// not usable; construct with NewDecoder.
//
// Binary and string reads return views into the input buffer; the input must
// outlive the decoded values.
type Decoder struct {
	data []byte
	pos  int
	err  error

	// Field IDs are delta-encoded within a struct scope, so each nesting
	// level tracks the last field ID it has seen.
	lastFieldID [MaxDepth]int16
	depth       int

	// TRUE/FALSE field headers carry the boolean value in the type nibble;
	// the value is held here until the next ReadBool consumes it.
	pendingBool    bool
	hasPendingBool bool
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Err returns the first error encountered by the decoder, or nil. Callers
// must check it after a parsing loop; reads performed after an error return
// zero values.
func (d *Decoder) Err() error { return d.err }

// Pos returns the number of input bytes consumed so far.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread input bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.pos }

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Fail injects an error into the decoder's sticky state, so callers
// performing their own validation (type checks, count ceilings) stop the
// parse the same way protocol errors do.
func (d *Decoder) Fail(err error) { d.fail(err) }

func (d *Decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.data) {
		d.fail(ErrTruncated)
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *Decoder) readUvarint() uint64 {
	if d.err != nil {
		return 0
	}
	var x uint64
	var s uint
	for i := 0; ; i++ {
		if i == binary.MaxVarintLen64 {
			// Ten groups already consumed with the continuation bit still
			// set; the value cannot fit in 64 bits no matter what follows.
			d.fail(ErrVarintOverflow)
			return 0
		}
		if d.pos >= len(d.data) {
			d.fail(ErrTruncated)
			return 0
		}
		v := d.data[d.pos]
		d.pos++
		if v < 0x80 {
			if i == binary.MaxVarintLen64-1 && v > 1 {
				d.fail(ErrVarintOverflow)
				return 0
			}
			return x | uint64(v)<<s
		}
		x |= uint64(v&0x7f) << s
		s += 7
	}
}

func (d *Decoder) readVarint() int64 {
	return zigzagDecode(d.readUvarint())
}

// ReadStructBegin opens a struct scope. Every call must be paired with
// ReadStructEnd once the STOP field has been read.
func (d *Decoder) ReadStructBegin() {
	if d.err != nil {
		return
	}
	if d.depth+1 >= MaxDepth {
		d.fail(ErrDepthExceeded)
		return
	}
	d.depth++
	d.lastFieldID[d.depth] = 0
}

func (d *Decoder) ReadStructEnd() {
	if d.depth > 0 {
		d.depth--
	}
}

// Containers skipped by Skip draw from the same nesting budget as structs,
// so deeply nested list/set/map input cannot recurse without bound.
func (d *Decoder) enterContainer() bool {
	if d.err != nil {
		return false
	}
	if d.depth+1 >= MaxDepth {
		d.fail(ErrDepthExceeded)
		return false
	}
	d.depth++
	return true
}

func (d *Decoder) exitContainer() { d.depth-- }

// ReadFieldHeader reads the next field header in the current struct scope.
// A returned type of Stop marks the end of the struct. For TrueBool and
// FalseBool the boolean value is recorded and consumed by the next ReadBool.
func (d *Decoder) ReadFieldHeader() (id int16, typ Type) {
	// A boolean recorded by a previous header whose value was never
	// consumed must not carry over into this field.
	d.hasPendingBool = false
	v := d.readByte()
	if d.err != nil {
		return 0, Stop
	}

	typ = Type(v & 0x0F)
	if typ == Stop {
		return 0, Stop
	}
	if typ > UUID {
		d.fail(fmt.Errorf("thrift: invalid field type %d", byte(typ)))
		return 0, Stop
	}

	if delta := v >> 4; delta != 0 {
		id = d.lastFieldID[d.depth] + int16(delta)
	} else {
		id = int16(d.readVarint())
	}
	d.lastFieldID[d.depth] = id

	if typ == TrueBool || typ == FalseBool {
		d.pendingBool = typ == TrueBool
		d.hasPendingBool = true
	}
	return id, typ
}

// ReadBool consumes a pending boolean from the last field header, or reads
// one byte for booleans inside list/map elements.
func (d *Decoder) ReadBool() bool {
	if d.hasPendingBool {
		d.hasPendingBool = false
		return d.pendingBool
	}
	return Type(d.readByte()) == TrueBool
}

func (d *Decoder) ReadI8() int8 { return int8(d.readByte()) }

func (d *Decoder) ReadI16() int16 { return int16(d.readVarint()) }

func (d *Decoder) ReadI32() int32 { return int32(d.readVarint()) }

func (d *Decoder) ReadI64() int64 { return d.readVarint() }

func (d *Decoder) ReadDouble() float64 {
	if d.err != nil {
		return 0
	}
	if d.pos+8 > len(d.data) {
		d.fail(ErrTruncated)
		return 0
	}
	bits := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return math.Float64frombits(bits)
}

// ReadBytes returns a view into the input holding a length-prefixed binary
// value.
func (d *Decoder) ReadBytes() []byte {
	n := d.readUvarint()
	if d.err != nil {
		return nil
	}
	if n > uint64(d.Remaining()) {
		d.fail(ErrTruncated)
		return nil
	}
	if n == 0 {
		return nil
	}
	v := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return v
}

// ReadString is ReadBytes returning a string sharing the input's backing
// array.
func (d *Decoder) ReadString() string {
	b := d.ReadBytes()
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// ReadListHeader reads a list or set header. The returned size is validated
// against the remaining input: every element takes at least one byte on the
// wire, so a size larger than the remaining byte count is necessarily a
// forgery and is rejected before the caller allocates or loops.
func (d *Decoder) ReadListHeader() (size int, elem Type) {
	v := d.readByte()
	if d.err != nil {
		return 0, Stop
	}

	elem = Type(v & 0x0F)
	size = int(v >> 4)
	if size == 0x0F {
		n := d.readUvarint()
		if n > uint64(math.MaxInt32) {
			d.fail(ErrCountTooLarge)
			return 0, elem
		}
		size = int(n)
	}

	if size > d.Remaining() {
		d.fail(ErrCountTooLarge)
		return 0, elem
	}
	return size, elem
}

// ReadMapHeader reads a map header: a varint size, then one byte packing the
// key and value types (omitted when the map is empty). Each entry takes at
// least two wire bytes, bounding forged sizes the same way as lists.
func (d *Decoder) ReadMapHeader() (size int, key, val Type) {
	n := d.readUvarint()
	if d.err != nil || n == 0 {
		return 0, Stop, Stop
	}
	if n > uint64(math.MaxInt32) || 2*n > uint64(d.Remaining()) {
		d.fail(ErrCountTooLarge)
		return 0, Stop, Stop
	}
	kv := d.readByte()
	return int(n), Type(kv >> 4), Type(kv & 0x0F)
}

// Skip consumes a value of the given type without materializing it, so
// unknown fields can be ignored for forward compatibility. Skipping Stop is
// an error: it is a struct terminator, not a value, and treating it as a
// no-op would let malformed input loop forever.
func (d *Decoder) Skip(typ Type) {
	if d.err != nil {
		return
	}
	switch typ {
	case TrueBool, FalseBool:
		if d.hasPendingBool {
			d.hasPendingBool = false
		} else {
			d.readByte()
		}
	case I8:
		d.readByte()
	case I16, I32, I64:
		d.readUvarint()
	case Double:
		if d.pos+8 > len(d.data) {
			d.fail(ErrTruncated)
		} else {
			d.pos += 8
		}
	case Binary:
		d.ReadBytes()
	case List, Set:
		size, elem := d.ReadListHeader()
		if !d.enterContainer() {
			return
		}
		for i := 0; i < size && d.err == nil; i++ {
			d.skipElem(elem)
		}
		d.exitContainer()
	case Map:
		size, key, val := d.ReadMapHeader()
		if !d.enterContainer() {
			return
		}
		for i := 0; i < size && d.err == nil; i++ {
			d.skipElem(key)
			d.skipElem(val)
		}
		d.exitContainer()
	case Struct:
		d.skipStruct()
	case UUID:
		if d.pos+16 > len(d.data) {
			d.fail(ErrTruncated)
		} else {
			d.pos += 16
		}
	case Stop:
		d.fail(ErrSkipStop)
	default:
		d.fail(fmt.Errorf("thrift: cannot skip unknown type %d", byte(typ)))
	}
}

// skipElem skips a container element. Inside containers booleans occupy a
// full byte rather than a type nibble.
func (d *Decoder) skipElem(typ Type) {
	if typ == TrueBool || typ == FalseBool {
		d.readByte()
		return
	}
	d.Skip(typ)
}

func (d *Decoder) skipStruct() {
	d.ReadStructBegin()
	for d.err == nil {
		_, typ := d.ReadFieldHeader()
		if typ == Stop {
			break
		}
		d.Skip(typ)
	}
	d.ReadStructEnd()
}
