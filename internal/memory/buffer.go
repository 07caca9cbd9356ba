// Package memory provides grow-only scratch buffers whose lifetime is tied
// to the currently loaded page of a column reader.
//
// A page reader reuses the same buffers across pages: capacity only grows,
// the logical length is reset per page. This amortizes allocations across a
// column chunk without holding onto page-sized garbage.
package memory

import "sync"

// Buffer is a grow-only byte scratch buffer.
type Buffer struct {
	data []byte
}

// Resize sets the logical length to n, reallocating only when the capacity
// is insufficient, and returns the resized slice. Previous content is not
// preserved.
func (b *Buffer) Resize(n int) []byte {
	if cap(b.data) < n {
		b.data = make([]byte, n, nextSize(n))
	}
	b.data = b.data[:n]
	return b.data
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() []byte {
	if b.data == nil {
		return nil
	}
	b.data = b.data[:0]
	return b.data
}

// Bytes returns the current content.
func (b *Buffer) Bytes() []byte { return b.data }

func nextSize(n int) int {
	const minAlloc = 1024
	size := minAlloc
	for size < n {
		size *= 2
	}
	return size
}

// BufferPool recycles Buffers across column readers.
type BufferPool struct {
	pool sync.Pool
}

func (p *BufferPool) Get() *Buffer {
	if b, _ := p.pool.Get().(*Buffer); b != nil {
		return b
	}
	return new(Buffer)
}

func (p *BufferPool) Put(b *Buffer) {
	if b != nil {
		b.Reset()
		p.pool.Put(b)
	}
}
