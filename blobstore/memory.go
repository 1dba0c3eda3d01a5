package blobstore

import (
	"bytes"
	"context"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
)

// MemoryStore is an in-process BlobStore for tests and for piping a
// snapshot between registries without touching disk.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

func (m *MemoryStore) get(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[name]
	return b, ok
}

// set takes ownership of data. Stored slices are never written again.
func (m *MemoryStore) set(name string, data []byte) {
	m.mu.Lock()
	m.blobs[name] = data
	m.mu.Unlock()
}

func (m *MemoryStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m.get(name)
	if !ok {
		return nil, ErrNotFound
	}
	return memoryBlob(data), nil
}

// Create buffers writes and publishes them on Close.
func (m *MemoryStore) Create(ctx context.Context, name string) (WritableBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryWriter{store: m, name: name}, nil
}

// Put stores a copy of data.
func (m *MemoryStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.set(name, bytes.Clone(data))
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.blobs, name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	names := slices.Sorted(maps.Keys(m.blobs))
	m.mu.RUnlock()

	return slices.DeleteFunc(names, func(n string) bool {
		return !strings.HasPrefix(n, prefix)
	}), nil
}

type memoryBlob []byte

func (b memoryBlob) Size() int64 { return int64(len(b)) }

func (b memoryBlob) Close() error { return nil }

func (b memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}

func (b memoryBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= b.Size() {
		return nil, io.EOF
	}
	return io.NopCloser(io.NewSectionReader(bytes.NewReader(b), off, length)), nil
}

type memoryWriter struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memoryWriter) Sync() error { return nil }

func (w *memoryWriter) Close() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	w.store.set(w.name, bytes.Clone(w.buf.Bytes()))
	return nil
}

// Abort drops the buffered bytes without publishing.
func (w *memoryWriter) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
