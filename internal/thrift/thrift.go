// Package thrift implements the subset of the Thrift Compact Protocol used
// by the parquet file format: metadata footers and page headers.
//
// The decoder is a pull parser; callers drive field dispatch themselves and
// are expected to skip fields they do not recognize. Decoding errors are
// sticky: once an error occurs every further read is a no-op returning the
// zero value, so a struct-parsing loop can run to completion and check
// Err() once at the end.
package thrift

import (
	"errors"
	"fmt"
)

// Type is a Compact Protocol wire type, as encoded in the low nibble of a
// field header byte.
type Type byte

const (
	Stop      Type = 0
	TrueBool  Type = 1
	FalseBool Type = 2
	I8        Type = 3
	I16       Type = 4
	I32       Type = 5
	I64       Type = 6
	Double    Type = 7
	Binary    Type = 8
	List      Type = 9
	Set       Type = 10
	Map       Type = 11
	Struct    Type = 12
	UUID      Type = 13
)

func (t Type) String() string {
	switch t {
	case Stop:
		return "STOP"
	case TrueBool, FalseBool:
		return "BOOL"
	case I8:
		return "I8"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case Double:
		return "DOUBLE"
	case Binary:
		return "BINARY"
	case List:
		return "LIST"
	case Set:
		return "SET"
	case Map:
		return "MAP"
	case Struct:
		return "STRUCT"
	case UUID:
		return "UUID"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// MaxDepth bounds struct/container nesting in both directions. Deeper input
// is rejected instead of recursing, which keeps adversarial payloads from
// exhausting the stack.
const MaxDepth = 32

var (
	ErrTruncated      = errors.New("thrift: truncated input")
	ErrVarintOverflow = errors.New("thrift: varint overflows 64 bits")
	ErrDepthExceeded  = errors.New("thrift: nesting depth exceeds limit")
	ErrCountTooLarge  = errors.New("thrift: container size exceeds remaining input")
	ErrSkipStop       = errors.New("thrift: cannot skip STOP")
)

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func zigzagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}
