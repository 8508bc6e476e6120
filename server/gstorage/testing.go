package gstorage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// MemoryObjects is an in-memory bucket store, keyed by bucket then object name
type MemoryObjects struct {
	mu      sync.Mutex
	Buckets map[string]map[string][]byte
}

// NewMemoryGStorage returns a GStorage backed by objects
func NewMemoryGStorage(objects *MemoryObjects) *GStorage {
	if objects.Buckets == nil {
		objects.Buckets = map[string]map[string][]byte{}
	}
	return &GStorage{objects: objects}
}

type memoryWriter struct {
	bytes.Buffer
	close func([]byte)
}

func (w *memoryWriter) Close() error {
	w.close(w.Bytes())
	return nil
}

func (m *MemoryObjects) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	return &memoryWriter{close: func(data []byte) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.Buckets[bucket] == nil {
			m.Buckets[bucket] = map[string][]byte{}
		}
		m.Buckets[bucket][object] = append([]byte{}, data...)
	}}
}

func (m *MemoryObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.Buckets[bucket][object]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryObjects) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := []string{}
	for name := range m.Buckets[bucket] {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
