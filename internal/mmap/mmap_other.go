//go:build !unix

package mmap

import "os"

// Mapping falls back to reading the whole file on platforms without mmap
// support. The zero-copy read path still works against the resident copy.
type Mapping struct {
	data []byte
}

func Open(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data}, nil
}

func (m *Mapping) Data() []byte { return m.data }

func (m *Mapping) Close() error {
	m.data = nil
	return nil
}
