package mmap

import (
	"errors"
	"io"
)

// NewWindow reserves a window of length bytes over b using the best
// mechanism the platform offers.
func NewWindow(b Backing, length int) (Window, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	return newPlatformWindow(b, length)
}

// NewCopyWindow returns a window that copies ranges in and out of a private
// buffer with ReadAt/WriteAt. It works on any Backing, including ones
// without a real file descriptor.
func NewCopyWindow(b io.ReaderAt, w io.WriterAt, length int) (Window, error) {
	if err := checkLength(length); err != nil {
		return nil, err
	}
	return &copyWindow{r: b, w: w, buf: make([]byte, length), off: -1}, nil
}

func checkLength(length int) error {
	if length <= 0 || length%Granularity() != 0 {
		return ErrInvalidSize
	}
	return nil
}

func checkOffset(off int64) error {
	if off < 0 || off%int64(Granularity()) != 0 {
		return ErrInvalidOffset
	}
	return nil
}

type copyWindow struct {
	r      io.ReaderAt
	w      io.WriterAt
	buf    []byte
	off    int64
	closed bool
}

func (c *copyWindow) Map(off int64) error {
	if c.closed {
		return ErrClosed
	}
	if err := checkOffset(off); err != nil {
		return err
	}
	n, err := c.r.ReadAt(c.buf, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	clear(c.buf[n:])
	c.off = off
	return nil
}

func (c *copyWindow) Unmap() error {
	if c.closed {
		return ErrClosed
	}
	c.off = -1
	return nil
}

func (c *copyWindow) Bytes() []byte {
	if c.closed || c.off < 0 {
		return nil
	}
	return c.buf
}

func (c *copyWindow) Flush(lo, hi int) error {
	if err := c.checkRange(lo, hi); err != nil {
		return err
	}
	_, err := c.w.WriteAt(c.buf[lo:hi], c.off+int64(lo))
	return err
}

func (c *copyWindow) Refresh(lo, hi int) error {
	if err := c.checkRange(lo, hi); err != nil {
		return err
	}
	n, err := c.r.ReadAt(c.buf[lo:hi], c.off+int64(lo))
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	clear(c.buf[lo+n : hi])
	return nil
}

func (c *copyWindow) checkRange(lo, hi int) error {
	if c.closed {
		return ErrClosed
	}
	if c.off < 0 {
		return ErrNotMapped
	}
	if lo < 0 || hi > len(c.buf) || lo > hi {
		return ErrInvalidOffset
	}
	return nil
}

func (c *copyWindow) Len() int { return len(c.buf) }

func (c *copyWindow) Close() error {
	c.closed = true
	c.buf = nil
	return nil
}
