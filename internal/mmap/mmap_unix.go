//go:build unix

// Package mmap maps files into memory for the zero-copy read path. Pages
// decoded from a mapping can be returned as views into the mapped region
// instead of copies, as long as the mapping outlives them.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a read-only memory-mapped file.
type Mapping struct {
	data []byte
}

// Open maps the file at path read-only. Empty files map to an empty,
// unmapped region.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := info.Size()
	if size == 0 {
		return &Mapping{}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Mapping{data: data}, nil
}

// Data returns the mapped bytes. The slice is only valid until Close.
func (m *Mapping) Data() []byte { return m.data }

// Close unmaps the region. Views into the mapping become invalid.
func (m *Mapping) Close() error {
	if m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return unix.Munmap(data)
}
