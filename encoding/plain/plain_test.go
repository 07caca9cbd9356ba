package plain_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Vitruves/carquet-go/encoding"
	"github.com/Vitruves/carquet-go/encoding/plain"
)

func TestAppendBoolean(t *testing.T) {
	values := []byte{}

	for i := 0; i < 100; i++ {
		values = plain.AppendBoolean(values, i, (i%2) != 0)
	}

	if !bytes.Equal(values, []byte{
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b10101010,
		0b00001010,
	}) {
		t.Errorf("%08b\n", values)
	}
}

// Nine booleans bit-pack into exactly two bytes and decode back unchanged.
func TestBooleanNineValues(t *testing.T) {
	input := []bool{true, false, true, true, false, false, true, false, true}

	var packed []byte
	for i, v := range input {
		packed = plain.AppendBoolean(packed, i, v)
	}
	if len(packed) != 2 {
		t.Fatalf("packed %d bytes, want 2", len(packed))
	}

	for i, want := range input {
		if got := plain.Boolean(packed, i); got != want {
			t.Errorf("bit %d: got %t, want %t", i, got, want)
		}
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	var buf []byte
	values := [][]byte{[]byte("hello"), {}, []byte("world"), []byte("!")}
	for _, v := range values {
		buf = plain.AppendByteArray(buf, v)
	}

	var got [][]byte
	err := plain.RangeByteArray(buf, func(v []byte) error {
		got = append(got, append([]byte{}, v...))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(values) {
		t.Fatalf("decoded %d values, want %d", len(got), len(values))
	}
	for i := range values {
		if !bytes.Equal(got[i], values[i]) {
			t.Errorf("value %d: got %q, want %q", i, got[i], values[i])
		}
	}
	if n := plain.CountByteArray(buf); n != len(values) {
		t.Errorf("counted %d values, want %d", n, len(values))
	}
}

func TestByteArrayNegativeLength(t *testing.T) {
	src := []byte{0xFF, 0xFF, 0xFF, 0xFF, 'x'}
	if err := plain.ValidateByteArray(src); !errors.Is(err, encoding.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestByteArrayLengthExceedsInput(t *testing.T) {
	src := []byte{100, 0, 0, 0, 'x', 'y'}
	if err := plain.ValidateByteArray(src); !errors.Is(err, encoding.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
}

func TestFixedWidthSizeValidation(t *testing.T) {
	e := new(plain.Encoding)
	if _, err := e.EncodeInt32(nil, make([]byte, 7)); !errors.Is(err, encoding.ErrInvalidArgument) {
		t.Errorf("EncodeInt32: got %v", err)
	}
	if _, err := e.DecodeInt64(nil, make([]byte, 12)); !errors.Is(err, encoding.ErrInvalidInput) {
		t.Errorf("DecodeInt64: got %v", err)
	}
	if _, err := e.DecodeFixedLenByteArray(nil, make([]byte, 10), 3); !errors.Is(err, encoding.ErrInvalidInput) {
		t.Errorf("DecodeFixedLenByteArray: got %v", err)
	}
}
