package carquet

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFileFormat is returned when a file does not carry the PAR1
	// magic bytes or its footer framing is inconsistent.
	ErrInvalidFileFormat = errors.New("invalid file format")

	// ErrTruncated is returned when fewer bytes are available than a length
	// or count field promises.
	ErrTruncated = errors.New("truncated input")

	// ErrInvalidEncoding is returned for malformed encoded data: bad varints,
	// negative lengths, values claiming more bytes than remain.
	ErrInvalidEncoding = errors.New("invalid encoding")

	// ErrOutOfRange is returned when a decoded quantity falls outside its
	// valid domain, such as a dictionary index past the dictionary size.
	ErrOutOfRange = errors.New("value out of range")

	// ErrChecksumMismatch is returned when a page fails CRC32 verification.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrUnsupported is returned for structurally valid input using a
	// feature this reader does not implement.
	ErrUnsupported = errors.New("unsupported feature")

	// ErrDictionaryIndexOutOfBounds is returned when a dictionary-encoded
	// page references an index at or past the dictionary cardinality.
	ErrDictionaryIndexOutOfBounds = fmt.Errorf("dictionary index out of bounds: %w", ErrOutOfRange)
)
