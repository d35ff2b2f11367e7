package sources

import (
	"bytes"
	"context"
	"io"
)

// MemorySource serves bytes held in memory (tests, uploads).
type MemorySource struct {
	name string
	data []byte
}

// NewMemorySource creates a source from bytes. name supplies the format hint.
func NewMemorySource(name string, data []byte) *MemorySource {
	return &MemorySource{name: name, data: data}
}

func (m *MemorySource) Name() string { return m.name }
func (m *MemorySource) Size() int64  { return int64(len(m.data)) }

// Open returns a reader for the data.
func (m *MemorySource) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}
