package delta

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Vitruves/carquet-go/encoding"
	"github.com/Vitruves/carquet-go/encoding/plain"
)

// LengthByteArrayEncoding is the DELTA_LENGTH_BYTE_ARRAY encoding: value
// lengths are stored as a DELTA_BINARY_PACKED INT32 stream followed by the
// concatenated value bytes.
type LengthByteArrayEncoding struct {
	encoding.NotSupported
}

func (e *LengthByteArrayEncoding) String() string { return "DELTA_LENGTH_BYTE_ARRAY" }

func (e *LengthByteArrayEncoding) EncodeByteArray(dst, src []byte) ([]byte, error) {
	dst, err := encodeLengthByteArray(dst[:0], src)
	return dst, e.wrap(err)
}

func (e *LengthByteArrayEncoding) DecodeByteArray(dst, src []byte) ([]byte, error) {
	dst, _, err := decodeLengthByteArray(dst[:0], src)
	return dst, e.wrap(err)
}

func (e *LengthByteArrayEncoding) wrap(err error) error {
	if err != nil {
		err = encoding.Error(e, err)
	}
	return err
}

func encodeLengthByteArray(dst, src []byte) ([]byte, error) {
	var lengths []byte
	err := plain.RangeByteArray(src, func(v []byte) error {
		lengths = binary.LittleEndian.AppendUint32(lengths, uint32(len(v)))
		return nil
	})
	if err != nil {
		return dst, err
	}

	dst = encodeInt32(dst, lengths)
	plain.RangeByteArray(src, func(v []byte) error {
		dst = append(dst, v...)
		return nil
	})
	return dst, nil
}

func decodeLengthByteArray(dst, src []byte) ([]byte, int, error) {
	lengths, n, err := decodeInt32(nil, src)
	if err != nil {
		return dst, 0, err
	}
	data := src[n:]

	for i := 0; i < len(lengths); i += 4 {
		length := int(int32(binary.LittleEndian.Uint32(lengths[i:])))
		if length < 0 {
			return dst, n, fmt.Errorf("negative value length %d: %w", length, encoding.ErrInvalidInput)
		}
		if length > len(data) {
			return dst, n, fmt.Errorf("value length %d exceeds remaining %d input bytes: %w", length, len(data), io.ErrUnexpectedEOF)
		}
		dst = plain.AppendByteArray(dst, data[:length])
		data = data[length:]
		n += length
	}
	return dst, n, nil
}
