package compress_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/Vitruves/carquet-go/compress"
	"github.com/Vitruves/carquet-go/compress/brotli"
	"github.com/Vitruves/carquet-go/compress/gzip"
	"github.com/Vitruves/carquet-go/compress/lz4"
	"github.com/Vitruves/carquet-go/compress/snappy"
	"github.com/Vitruves/carquet-go/compress/uncompressed"
	"github.com/Vitruves/carquet-go/compress/zstd"
)

var tests = [...]struct {
	scenario string
	codec    compress.Codec
}{
	{
		scenario: "uncompressed",
		codec:    new(uncompressed.Codec),
	},

	{
		scenario: "snappy",
		codec:    new(snappy.Codec),
	},

	{
		scenario: "gzip",
		codec:    new(gzip.Codec),
	},

	{
		scenario: "brotli",
		codec:    new(brotli.Codec),
	},

	{
		scenario: "zstd",
		codec:    new(zstd.Codec),
	},

	{
		scenario: "lz4-fastest",
		codec:    &lz4.Codec{Level: lz4.Fastest},
	},
	{
		scenario: "lz4-fast",
		codec:    &lz4.Codec{Level: lz4.Fast},
	},
	{
		scenario: "lz4-l1",
		codec:    &lz4.Codec{Level: lz4.Level1},
	},
	{
		scenario: "lz4-l5",
		codec:    &lz4.Codec{Level: lz4.Level5},
	},
	{
		scenario: "lz4-l9",
		codec:    &lz4.Codec{Level: lz4.Level9},
	},
}

var testdata = bytes.Repeat([]byte("1234567890qwertyuiopasdfghjklzxcvbnm"), 10e3)

func TestCompressionCodec(t *testing.T) {
	buffer := make([]byte, 0, len(testdata))
	output := make([]byte, 0, len(testdata))

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			const N = 10
			// Run the test multiple times to exercise codecs that maintain
			// state across compression/decompression.
			for i := 0; i < N; i++ {
				var err error

				buffer, err = test.codec.Encode(buffer[:0], testdata)
				if err != nil {
					t.Fatal(err)
				}

				output, err = test.codec.Decode(output[:0], buffer)
				if err != nil {
					t.Fatal(err)
				}

				if !bytes.Equal(testdata, output) {
					t.Errorf("content mismatch after compressing and decompressing (attempt %d/%d)", i+1, N)
				}
			}
		})
	}
}

// Incompressible inputs must still round trip; the lz4 block api signals
// them specially and the codec falls back to a literal-only block.
func TestCompressionCodecIncompressible(t *testing.T) {
	noise := make([]byte, 4096)
	rand.New(rand.NewSource(3)).Read(noise)

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			buffer, err := test.codec.Encode(nil, noise)
			if err != nil {
				t.Fatal(err)
			}
			output, err := test.codec.Decode(nil, buffer)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(noise, output) {
				t.Error("content mismatch after compressing and decompressing")
			}
		})
	}
}

// A block or stream whose decoded output exceeds the sized destination must
// fail at the bound instead of buffering an attacker-chosen amount first.
func TestDecodeOutputExceedsDestinationCapacity(t *testing.T) {
	payload := bytes.Repeat([]byte("highly compressible page content "), 1<<12)
	codecs := []compress.Codec{
		new(snappy.Codec),
		new(gzip.Codec),
		new(brotli.Codec),
	}
	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			buffer, err := codec.Encode(nil, payload)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := codec.Decode(make([]byte, 0, 64), buffer); err == nil {
				t.Fatal("expected error for output exceeding the destination capacity")
			}
		})
	}
}

func TestCompressionCodecEmptyInput(t *testing.T) {
	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			buffer, err := test.codec.Encode(nil, nil)
			if err != nil {
				t.Fatal(err)
			}
			output, err := test.codec.Decode(nil, buffer)
			if err != nil {
				t.Fatal(err)
			}
			if len(output) != 0 {
				t.Errorf("decoding an empty input produced %d bytes", len(output))
			}
		})
	}
}

type simpleReader struct{ io.Reader }

func (s *simpleReader) Close() error            { return nil }
func (s *simpleReader) Reset(r io.Reader) error { s.Reader = r; return nil }

type simpleWriter struct{ io.Writer }

func (s *simpleWriter) Close() error      { return nil }
func (s *simpleWriter) Reset(w io.Writer) { s.Writer = w }

func BenchmarkCompressor(b *testing.B) {
	compressor := compress.Compressor{}
	src := make([]byte, 1000)
	dst := make([]byte, 1000)

	benchmarkZeroAllocsPerRun(b, func() {
		dst, _ = compressor.Encode(dst, src, func(w io.Writer) (compress.Writer, error) {
			return &simpleWriter{Writer: w}, nil
		})
	})
}

func BenchmarkDecompressor(b *testing.B) {
	decompressor := compress.Decompressor{}
	src := make([]byte, 1000)
	dst := make([]byte, 1000)

	benchmarkZeroAllocsPerRun(b, func() {
		dst, _ = decompressor.Decode(dst, src, func(r io.Reader) (compress.Reader, error) {
			return &simpleReader{Reader: r}, nil
		})
	})
}

func benchmarkZeroAllocsPerRun(b *testing.B, f func()) {
	if allocs := testing.AllocsPerRun(b.N, f); allocs != 0 && !testing.Short() {
		b.Errorf("too many memory allocations: %g > 0", allocs)
	}
}
