package rle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/Vitruves/carquet-go/encoding"
)

func TestEncodeDecodeLevels(t *testing.T) {
	tests := []struct {
		name     string
		bitWidth int
		src      []byte
	}{
		{name: "empty", bitWidth: 1, src: []byte{}},
		{name: "all zero width 0", bitWidth: 0, src: make([]byte, 100)},
		{name: "single value", bitWidth: 1, src: []byte{1}},
		{name: "long run", bitWidth: 1, src: bytes.Repeat([]byte{1}, 1000)},
		{name: "alternating", bitWidth: 1, src: []byte{0, 1, 0, 1, 1, 0, 1, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0}},
		{name: "width 3", bitWidth: 3, src: []byte{7, 0, 3, 5, 1, 2, 6, 4, 7, 7, 7, 7, 7, 7, 7, 7, 2}},
		{name: "width 8", bitWidth: 8, src: []byte{255, 0, 128, 64, 32, 16, 8, 4, 2, 1}},
		{name: "short tail", bitWidth: 2, src: []byte{1, 2, 3}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := &Encoding{BitWidth: test.bitWidth}

			buf, err := e.EncodeLevels(nil, test.src)
			if err != nil {
				t.Fatal(err)
			}

			got, err := e.DecodeLevels(nil, buf)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, test.src) {
				t.Errorf("levels mismatch\ngot  %v\nwant %v", got, test.src)
			}
		})
	}
}

func TestEncodeLevelsValueOutOfRange(t *testing.T) {
	e := &Encoding{BitWidth: 2}
	if _, err := e.EncodeLevels(nil, []byte{4}); err == nil {
		t.Fatal("expected error for value 4 with bit-width 2")
	}
}

func TestEncodeDecodeInt32(t *testing.T) {
	tests := []struct {
		name     string
		bitWidth int
		values   []int32
	}{
		{name: "constant", bitWidth: 10, values: []int32{999, 999, 999, 999, 999}},
		{name: "mixed", bitWidth: 4, values: []int32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 3}},
		{name: "runs and packs", bitWidth: 16, values: append(append([]int32{1, 5, 3, 9, 2, 8, 4, 6}, repeatInt32(1000, 20)...), 7)},
		{name: "width 32", bitWidth: 32, values: []int32{-1, 0, 1 << 30}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := &Encoding{BitWidth: test.bitWidth}
			src := int32ToBytes(test.values)

			buf, err := e.EncodeInt32(nil, src)
			if err != nil {
				t.Fatal(err)
			}

			got, err := e.DecodeInt32(nil, buf)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("values mismatch\ngot  %v\nwant %v", bytesToInt32(got), test.values)
			}
		})
	}
}

func TestEncodeDecodeBoolean(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{name: "empty", src: []byte{}},
		{name: "all ones", src: bytes.Repeat([]byte{0xFF}, 12)},
		{name: "all zeros", src: make([]byte, 12)},
		{name: "mixed", src: []byte{0x5A, 0x01}},
		{name: "runs then mixed", src: append(bytes.Repeat([]byte{0xFF}, 8), 0x5A, 0x33)},
	}

	e := &Encoding{BitWidth: 1}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			buf, err := e.EncodeBoolean(nil, test.src)
			if err != nil {
				t.Fatal(err)
			}
			if n := binary.LittleEndian.Uint32(buf); int(n) != len(buf)-4 {
				t.Fatalf("length prefix %d, want %d", n, len(buf)-4)
			}

			got, err := e.DecodeBoolean(nil, buf)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, test.src) {
				t.Errorf("booleans mismatch\ngot  %08b\nwant %08b", got, test.src)
			}
		})
	}
}

func TestDecoderMatchesDecodeLevels(t *testing.T) {
	levels := make([]byte, 500)
	prng := rand.New(rand.NewSource(1))
	for i := range levels {
		if prng.Intn(3) == 0 {
			levels[i] = byte(prng.Intn(8))
		} else {
			levels[i] = 7
		}
	}

	e := &Encoding{BitWidth: 3}
	buf, err := e.EncodeLevels(nil, levels)
	if err != nil {
		t.Fatal(err)
	}

	d := NewDecoder(buf, 3)
	for i, want := range levels {
		got, err := d.Get()
		if err != nil {
			t.Fatalf("value %d: %v", i, err)
		}
		if got != int32(want) {
			t.Fatalf("value %d: got %d, want %d", i, got, want)
		}
	}
	if _, err := d.Get(); err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestDecoderSkip(t *testing.T) {
	values := repeatInt32(3, 100)
	values = append(values, 1, 2, 3, 4, 5, 6, 7, 8)

	e := &Encoding{BitWidth: 4}
	buf, err := e.EncodeInt32(nil, int32ToBytes(values))
	if err != nil {
		t.Fatal(err)
	}

	d := NewDecoder(buf, 4)
	if err := d.Skip(102); err != nil {
		t.Fatal(err)
	}
	rest := make([]int32, 6)
	if err := d.GetBatch(rest); err != nil {
		t.Fatal(err)
	}
	want := []int32{3, 4, 5, 6, 7, 8}
	for i := range want {
		if rest[i] != want[i] {
			t.Fatalf("after skip: got %v, want %v", rest, want)
		}
	}
}

// Feeding arbitrary garbage as an RLE stream must fail or produce values
// without ever reading past the input buffer.
func TestDecoderGarbageInput(t *testing.T) {
	prng := rand.New(rand.NewSource(42))
	garbage := make([]byte, 256)
	prng.Read(garbage)

	d := NewDecoder(garbage, 8)
	out := make([]int32, 100)
	if err := d.GetBatch(out); err != nil {
		// Malformed runs are reported, not read past; the error must carry a
		// recognizable class.
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) &&
			!errors.Is(err, encoding.ErrInvalidInput) {
			t.Fatalf("unexpected error class: %v", err)
		}
	}
}

func TestDecoderRejectsOversizedRLEValue(t *testing.T) {
	// RLE run of 4 values whose payload byte exceeds bit-width 2.
	buf := []byte{8, 0xFF}
	d := NewDecoder(buf, 2)
	if _, err := d.Get(); err == nil {
		t.Fatal("expected error for out-of-range run value")
	}
}

func FuzzDecodeLevels(f *testing.F) {
	e := &Encoding{BitWidth: 3}
	if seed, err := e.EncodeLevels(nil, []byte{1, 2, 3, 4, 5, 6, 7, 0, 1}); err == nil {
		f.Add(seed)
	}
	f.Add([]byte{8, 0xFF, 0x03})
	f.Fuzz(func(t *testing.T, data []byte) {
		for width := 0; width < 9; width++ {
			e := &Encoding{BitWidth: width}
			e.DecodeLevels(nil, data)
		}
		d := NewDecoder(data, 8)
		d.GetBatch(make([]int32, 64))
	})
}

func repeatInt32(v int32, n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func int32ToBytes(values []int32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func bytesToInt32(b []byte) []int32 {
	values := make([]int32, len(b)/4)
	for i := range values {
		values[i] = int32(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return values
}
