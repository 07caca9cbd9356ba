// Package delta implements the DELTA_BINARY_PACKED, DELTA_LENGTH_BYTE_ARRAY
// and DELTA_BYTE_ARRAY parquet encodings.
//
// https://github.com/apache/parquet-format/blob/master/Encodings.md#delta-encoding-delta_binary_packed--5
package delta

const (
	blockSize     = 128
	numMiniBlocks = 4
	miniBlockSize = blockSize / numMiniBlocks

	// Limit on the declared value count of a DELTA_BINARY_PACKED stream,
	// preventing unbounded allocations when the header is forged; zero-width
	// mini blocks produce values from no input bytes at all.
	maxSupportedValueCount = 1024 * 1024
)
