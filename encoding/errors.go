package encoding

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported is returned when the encoding does not support the
	// type of values being encoded or decoded. Test with errors.Is; the
	// error may be wrapped with type information.
	ErrNotSupported = errors.New("encoding not supported")

	// ErrInvalidInput is returned when the source of a decode operation is
	// malformed: truncated streams, negative lengths, values claiming more
	// bytes than remain.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidArgument is returned when the arguments of an encode
	// operation are inconsistent, such as a source size that is not a
	// multiple of the value size.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error wraps err with the name of the encoding that produced it.
func Error(e Encoding, err error) error {
	return fmt.Errorf("%s: %w", e, err)
}

// Errorf formats an error wrapping ErrInvalidInput.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidInput)...)
}

// ErrEncodeInvalidInputSize reports an encode source whose byte size is not
// a multiple of the value size.
func ErrEncodeInvalidInputSize(e Encoding, typ string, size int) error {
	return Error(e, fmt.Errorf("cannot encode %s from input of size %d: %w", typ, size, ErrInvalidArgument))
}

// NotSupported is a base type for encodings that only implement a subset of
// the Encoding interface; every method returns ErrNotSupported.
type NotSupported struct{}

func (NotSupported) String() string { return "NOT_SUPPORTED" }

func (NotSupported) EncodeBoolean(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("BOOLEAN")
}

func (NotSupported) EncodeInt32(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("INT32")
}

func (NotSupported) EncodeInt64(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("INT64")
}

func (NotSupported) EncodeFloat(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("FLOAT")
}

func (NotSupported) EncodeDouble(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("DOUBLE")
}

func (NotSupported) EncodeByteArray(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("BYTE_ARRAY")
}

func (NotSupported) EncodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error) {
	return dst, errNotSupported("FIXED_LEN_BYTE_ARRAY")
}

func (NotSupported) DecodeBoolean(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("BOOLEAN")
}

func (NotSupported) DecodeInt32(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("INT32")
}

func (NotSupported) DecodeInt64(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("INT64")
}

func (NotSupported) DecodeFloat(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("FLOAT")
}

func (NotSupported) DecodeDouble(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("DOUBLE")
}

func (NotSupported) DecodeByteArray(dst, src []byte) ([]byte, error) {
	return dst, errNotSupported("BYTE_ARRAY")
}

func (NotSupported) DecodeFixedLenByteArray(dst, src []byte, size int) ([]byte, error) {
	return dst, errNotSupported("FIXED_LEN_BYTE_ARRAY")
}

func errNotSupported(typ string) error {
	return fmt.Errorf("%s: %w", typ, ErrNotSupported)
}
