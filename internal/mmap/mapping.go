package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// Mapping is a fixed region of a file mapped once and unmapped by Close.
// Registries map control blocks with it and local snapshot stores map
// whole blobs read-only.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

func newMapping(b Backing, off int64, size int, writable bool) (*Mapping, error) {
	data, unmap, err := osMap(b, off, size, writable)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, unmap: unmap}, nil
}

// Open maps the file at path read-only. An empty file yields an empty
// mapping.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	switch n := fi.Size(); {
	case n == 0:
		return &Mapping{}, nil
	case n < 0 || int64(int(n)) != n:
		return nil, ErrInvalidSize
	default:
		return newMapping(f, 0, int(n), false)
	}
}

// MapShared maps size bytes of b at off. The mapping is MAP_SHARED, so
// writes through a writable mapping reach every process mapping the range.
// off must be a multiple of Granularity().
func MapShared(b Backing, off int64, size int, writable bool) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if off < 0 || off%int64(Granularity()) != 0 {
		return nil, ErrInvalidOffset
	}
	return newMapping(b, off, size, writable)
}

// Bytes returns the mapped memory, or nil after Close. The slice must not
// be used once Close has been called.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size is the mapped length in bytes.
func (m *Mapping) Size() int { return len(m.data) }

// ReadAt implements io.ReaderAt over the mapped bytes.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	switch {
	case m.closed.Load():
		return 0, ErrClosed
	case off < 0:
		return 0, ErrInvalidOffset
	case off >= int64(len(m.data)):
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the region. Later calls do nothing.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}
