// Package unsafecast bypasses the Go type system to reinterpret slices of
// fixed-width values as byte slices and back without copying.
//
// The decode pipeline represents column values in their PLAIN byte layout;
// these conversions are what keep the fixed-width fast paths copy-free on
// little-endian hosts. Callers are responsible for ensuring the memory
// layouts actually match.
package unsafecast

import "unsafe"

type slice struct {
	ptr unsafe.Pointer
	len int
	cap int
}

// Slice converts a []From to a []To sharing the same backing array, scaling
// the length and capacity by the size ratio of the two element types.
func Slice[To, From any](data []From) []To {
	// unsafe.Slice would drop the capacity, so the conversion is spelled out.
	var zf From
	var zt To
	s := slice{
		ptr: *(*unsafe.Pointer)(unsafe.Pointer(&data)),
		len: int((uintptr(len(data)) * unsafe.Sizeof(zf)) / unsafe.Sizeof(zt)),
		cap: int((uintptr(cap(data)) * unsafe.Sizeof(zf)) / unsafe.Sizeof(zt)),
	}
	return *(*[]To)(unsafe.Pointer(&s))
}

// BytesToInt32 reinterprets a PLAIN-encoded little-endian byte slice as
// int32 values.
func BytesToInt32(data []byte) []int32 { return Slice[int32](data) }

// Int32ToBytes is the inverse of BytesToInt32.
func Int32ToBytes(data []int32) []byte { return Slice[byte](data) }

// BytesToInt64 reinterprets a PLAIN-encoded little-endian byte slice as
// int64 values.
func BytesToInt64(data []byte) []int64 { return Slice[int64](data) }

// Int64ToBytes is the inverse of BytesToInt64.
func Int64ToBytes(data []int64) []byte { return Slice[byte](data) }

// BytesToUint32 reinterprets a byte slice as uint32 values.
func BytesToUint32(data []byte) []uint32 { return Slice[uint32](data) }

// BytesToString converts a byte slice to a string sharing its backing array.
// The slice must not be modified while the string is in use.
func BytesToString(data []byte) string {
	return unsafe.String(unsafe.SliceData(data), len(data))
}

// StringToBytes applies the inverse conversion of BytesToString.
func StringToBytes(data string) []byte {
	return unsafe.Slice(unsafe.StringData(data), len(data))
}
