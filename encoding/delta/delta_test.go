package delta

import (
	"bytes"
	"encoding/binary"
	"math"
	"math/rand"
	"testing"
)

func int32ToBytes(values []int32) []byte {
	b := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[4*i:], uint32(v))
	}
	return b
}

func int64ToBytes(values []int64) []byte {
	b := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(b[8*i:], uint64(v))
	}
	return b
}

func TestBinaryPackedInt32RoundTrip(t *testing.T) {
	prng := rand.New(rand.NewSource(7))
	random := make([]int32, 1000)
	for i := range random {
		random[i] = prng.Int31() - prng.Int31()
	}

	tests := []struct {
		name   string
		values []int32
	}{
		{name: "empty", values: []int32{}},
		{name: "one value", values: []int32{42}},
		{name: "increasing", values: []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{name: "partial mini block", values: []int32{5, 4, 3, 2, 1}},
		{name: "exactly one block", values: sequence32(0, 129)},
		{name: "several blocks", values: sequence32(-1000, 1000)},
		{name: "random", values: random},
		{name: "extreme jumps", values: []int32{
			math.MinInt32, math.MaxInt32, math.MinInt32, math.MaxInt32,
			0, math.MinInt32, math.MaxInt32, -1, 1,
		}},
		{name: "full range walk", values: []int32{
			math.MinInt32, math.MinInt32 + 1, -1, 0, 1, math.MaxInt32 - 1, math.MaxInt32,
		}},
	}

	e := new(BinaryPackedEncoding)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
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
				t.Errorf("values mismatch after round trip")
			}
		})
	}
}

func TestBinaryPackedInt64RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
	}{
		{name: "empty", values: []int64{}},
		{name: "timestamps", values: []int64{1700000000000, 1700000000017, 1700000000017, 1700000001003}},
		{name: "extreme jumps", values: []int64{math.MinInt64, math.MaxInt64, 0, math.MinInt64}},
		{name: "several blocks", values: sequence64(1 << 40, 300)},
	}

	e := new(BinaryPackedEncoding)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := int64ToBytes(test.values)
			buf, err := e.EncodeInt64(nil, src)
			if err != nil {
				t.Fatal(err)
			}
			got, err := e.DecodeInt64(nil, buf)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("values mismatch after round trip")
			}
		})
	}
}

// A constant sequence compresses to zero-width mini blocks, so a thousand
// values fit in a few dozen bytes.
func TestBinaryPackedConstantIsCompact(t *testing.T) {
	values := make([]int32, 1000)
	for i := range values {
		values[i] = 123456
	}

	e := new(BinaryPackedEncoding)
	buf, err := e.EncodeInt32(nil, int32ToBytes(values))
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) > 64 {
		t.Errorf("encoded 1000 constant values into %d bytes", len(buf))
	}
}

func TestBinaryPackedForgedCountRejected(t *testing.T) {
	var buf []byte
	buf = binary.AppendUvarint(buf, 128)
	buf = binary.AppendUvarint(buf, 4)
	buf = binary.AppendUvarint(buf, 1<<40)
	buf = binary.AppendVarint(buf, 0)

	e := new(BinaryPackedEncoding)
	if _, err := e.DecodeInt32(nil, buf); err == nil {
		t.Fatal("expected error for forged value count")
	}
}

func TestBinaryPackedTruncatedInput(t *testing.T) {
	e := new(BinaryPackedEncoding)
	buf, err := e.EncodeInt32(nil, int32ToBytes(sequence32(0, 500)))
	if err != nil {
		t.Fatal(err)
	}
	for _, cut := range []int{1, 5, len(buf) / 2, len(buf) - 1} {
		if _, err := e.DecodeInt32(nil, buf[:cut]); err == nil {
			t.Errorf("truncation at %d bytes not detected", cut)
		}
	}
}

func TestLengthByteArrayRoundTrip(t *testing.T) {
	values := [][]byte{
		[]byte("Hello"), []byte("World"), []byte("Foobar"), {}, []byte("ABCDEF"),
	}
	src := plainByteArrays(values)

	e := new(LengthByteArrayEncoding)
	buf, err := e.EncodeByteArray(nil, src)
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.DecodeByteArray(nil, buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("values mismatch after round trip")
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values [][]byte
	}{
		{name: "empty", values: nil},
		{name: "shared prefixes", values: [][]byte{
			[]byte("axis"), []byte("axle"), []byte("babble"), []byte("babel"), []byte("babel"),
		}},
		{name: "no sharing", values: [][]byte{
			[]byte("alpha"), []byte("beta"), []byte("gamma"),
		}},
		{name: "empty values", values: [][]byte{{}, []byte("x"), {}, []byte("xy")}},
	}

	e := new(ByteArrayEncoding)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := plainByteArrays(test.values)
			buf, err := e.EncodeByteArray(nil, src)
			if err != nil {
				t.Fatal(err)
			}
			got, err := e.DecodeByteArray(nil, buf)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("values mismatch after round trip")
			}
		})
	}
}

// A forged prefix length larger than the previous value must be rejected
// instead of slicing out of bounds.
func TestByteArrayPrefixExceedsPrevious(t *testing.T) {
	prefixLengths := encodeInt32(nil, int32ToBytes([]int32{0, 100}))
	suffixes, err := encodeLengthByteArray(nil, plainByteArrays([][]byte{[]byte("ab"), []byte("cd")}))
	if err != nil {
		t.Fatal(err)
	}
	buf := append(prefixLengths, suffixes...)

	e := new(ByteArrayEncoding)
	if _, err := e.DecodeByteArray(nil, buf); err == nil {
		t.Fatal("expected error for prefix length exceeding previous value")
	}
}

func FuzzDecodeBinaryPackedInt32(f *testing.F) {
	e := new(BinaryPackedEncoding)
	if seed, err := e.EncodeInt32(nil, int32ToBytes(sequence32(-5, 200))); err == nil {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		e.DecodeInt32(nil, data)
		e.DecodeInt64(nil, data)
	})
}

func FuzzDecodeByteArray(f *testing.F) {
	e := new(ByteArrayEncoding)
	if seed, err := e.EncodeByteArray(nil, plainByteArrays([][]byte{[]byte("ab"), []byte("abc")})); err == nil {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		e.DecodeByteArray(nil, data)
		new(LengthByteArrayEncoding).DecodeByteArray(nil, data)
	})
}

func sequence32(base int32, n int) []int32 {
	s := make([]int32, n)
	for i := range s {
		s[i] = base + int32(i)
	}
	return s
}

func sequence64(base int64, n int) []int64 {
	s := make([]int64, n)
	for i := range s {
		s[i] = base + int64(i)*1000003
	}
	return s
}

func plainByteArrays(values [][]byte) []byte {
	var b []byte
	for _, v := range values {
		b = binary.LittleEndian.AppendUint32(b, uint32(len(v)))
		b = append(b, v...)
	}
	return b
}
