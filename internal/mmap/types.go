package mmap

import (
	"errors"
	"io"
)

var (
	// ErrClosed is returned when attempting to access a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when the requested size is invalid (e.g. negative or too large).
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned when the offset is invalid (e.g. negative or unaligned).
	ErrInvalidOffset = errors.New("mmap: invalid offset")
	// ErrNotMapped is returned by Flush and Refresh on an unmapped window.
	ErrNotMapped = errors.New("mmap: window not mapped")
	// ErrReservationLost is returned by a window whose address range could
	// not be restored after a failed Map. The window is unusable.
	ErrReservationLost = errors.New("mmap: window reservation lost")
)

// Backing is a file that can be mapped.
// *os.File satisfies it.
type Backing interface {
	io.ReaderAt
	io.WriterAt
	Fd() uintptr
}

// Window is a fixed-size, relocatable view of a Backing.
type Window interface {
	// Map points the window at the backing bytes starting at off.
	// off must be a multiple of Granularity().
	Map(off int64) error
	// Unmap detaches the window from the backing file but keeps its address space.
	Unmap() error
	// Bytes returns the window contents, or nil while unmapped.
	Bytes() []byte
	// Flush makes writes to Bytes()[lo:hi] visible to other mappers of the file.
	Flush(lo, hi int) error
	// Refresh reloads Bytes()[lo:hi] from the backing file.
	Refresh(lo, hi int) error
	// Len is the window size in bytes.
	Len() int
	// Close releases the window. It is idempotent.
	Close() error
}
