package carquet

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Vitruves/carquet-go/encoding/plain"
	"github.com/Vitruves/carquet-go/format"
)

func TestDictBuilderRepeatedValue(t *testing.T) {
	b := newDictBuilder(4)

	var v [4]byte
	binary.LittleEndian.PutUint32(v[:], 999)
	for itr := 0; itr < 100; itr++ {
		if id := b.insert(v[:]); id != 0 {
			t.Fatalf("insert of a repeated value returned index %d, want 0", id)
		}
	}

	if b.len() != 1 {
		t.Errorf("dictionary holds %d values, want 1", b.len())
	}
	if page := b.page(); len(page) != 4 {
		t.Errorf("dictionary page is %d bytes, want 4", len(page))
	}
}

func TestDictBuilderByteArray(t *testing.T) {
	b := newDictBuilder(0)

	values := []string{"alpha", "beta", "alpha", "", "gamma", "beta"}
	wantIDs := []int32{0, 1, 0, 2, 3, 1}
	for i, v := range values {
		if id := b.insert([]byte(v)); id != wantIDs[i] {
			t.Fatalf("insert(%q) = %d, want %d", v, id, wantIDs[i])
		}
	}
	if b.len() != 4 {
		t.Fatalf("dictionary holds %d values, want 4", b.len())
	}
	for i, want := range []string{"alpha", "beta", "", "gamma"} {
		if got := string(b.valueAt(int32(i))); got != want {
			t.Errorf("valueAt(%d) = %q, want %q", i, got, want)
		}
	}
}

func TestDictionaryGather(t *testing.T) {
	col := &Column{PhysicalType: format.Int32}
	values := int32ToBytes(t, 10, 20, 30)
	d, err := newDictionary(col, 3, values)
	if err != nil {
		t.Fatal(err)
	}

	out, err := d.gather(nil, []int32{2, 0, 2, 1})
	if err != nil {
		t.Fatal(err)
	}
	if want := int32ToBytes(t, 30, 10, 30, 20); string(out) != string(want) {
		t.Errorf("gather returned % x, want % x", out, want)
	}
}

func TestDictionaryGatherOutOfBounds(t *testing.T) {
	col := &Column{PhysicalType: format.Int32}
	d, err := newDictionary(col, 2, int32ToBytes(t, 1, 2))
	if err != nil {
		t.Fatal(err)
	}

	for _, index := range []int32{2, -1, 1 << 30} {
		_, err := d.gather(nil, []int32{0, index})
		if !errors.Is(err, ErrDictionaryIndexOutOfBounds) {
			t.Errorf("gather with index %d returned %v, want ErrDictionaryIndexOutOfBounds", index, err)
		}
		if !errors.Is(err, ErrOutOfRange) {
			t.Errorf("gather with index %d returned %v, want an ErrOutOfRange", index, err)
		}
	}
}

func TestDictionaryByteArrayOffsets(t *testing.T) {
	var values []byte
	for _, v := range []string{"a", "", "longer value", "b"} {
		values = plain.AppendByteArray(values, []byte(v))
	}
	col := &Column{PhysicalType: format.ByteArray}
	d, err := newDictionary(col, 4, values)
	if err != nil {
		t.Fatal(err)
	}

	out, err := d.gather(nil, []int32{3, 2, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	if err := plain.RangeByteArray(out, func(v []byte) error {
		got = append(got, string(v))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "longer value", "", "a"}
	if len(got) != len(want) {
		t.Fatalf("gather returned %d values, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("gathered value %d is %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDictionaryRejectsBoolean(t *testing.T) {
	col := &Column{PhysicalType: format.Boolean}
	if _, err := newDictionary(col, 1, []byte{1}); !errors.Is(err, ErrUnsupported) {
		t.Errorf("boolean dictionary returned %v, want ErrUnsupported", err)
	}
}

func TestDictionaryTruncatedPage(t *testing.T) {
	col := &Column{PhysicalType: format.Int64}
	if _, err := newDictionary(col, 3, make([]byte, 20)); !errors.Is(err, ErrInvalidEncoding) {
		t.Errorf("short dictionary page returned %v, want ErrInvalidEncoding", err)
	}
}

func int32ToBytes(t *testing.T, values ...int32) []byte {
	t.Helper()
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}
